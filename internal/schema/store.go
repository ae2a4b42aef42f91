package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	schemaKey   = "stepform:schema"
	settingsKey = "stepform:settings"
)

// Store persists the form schema and settings in a key-value store.
type Store struct {
	redis *redis.Client
}

// NewStore creates a schema store backed by the given Redis client.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

// Get retrieves the saved schema, returning the default when none exists.
func (s *Store) Get(ctx context.Context) (Schema, error) {
	data, err := s.redis.Get(ctx, schemaKey).Bytes()
	if err == redis.Nil {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("schema: get: %w", err)
	}

	var sch Schema
	if err := json.Unmarshal(data, &sch); err != nil {
		return nil, fmt.Errorf("schema: unmarshal: %w", err)
	}
	return sch, nil
}

// Set validates and saves the schema. Invalid schemas are rejected before any
// write, so the stored copy is always loadable.
func (s *Store) Set(ctx context.Context, sch Schema) error {
	if err := sch.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(sch)
	if err != nil {
		return fmt.Errorf("schema: marshal: %w", err)
	}
	if err := s.redis.Set(ctx, schemaKey, data, 0).Err(); err != nil {
		return fmt.Errorf("schema: set: %w", err)
	}
	return nil
}

// GetSettings retrieves form settings, returning defaults when unset.
func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	data, err := s.redis.Get(ctx, settingsKey).Bytes()
	if err == redis.Nil {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("schema: get settings: %w", err)
	}

	var cfg Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Settings{}, fmt.Errorf("schema: unmarshal settings: %w", err)
	}
	return cfg, nil
}

// SetSettings saves form settings.
func (s *Store) SetSettings(ctx context.Context, cfg Settings) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("schema: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, settingsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("schema: set settings: %w", err)
	}
	return nil
}
