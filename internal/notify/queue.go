package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type taskKind string

const (
	taskAdminEmail taskKind = "admin_email"
	taskUserEmail  taskKind = "user_email"
)

type taskPayload struct {
	ID           string   `json:"id"`
	Kind         taskKind `json:"kind"`
	SubmissionID string   `json:"submission_id"`
}

func encodeTask(payload taskPayload) (taskPayload, string, error) {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return taskPayload{}, "", fmt.Errorf("notify: failed to encode task: %w", err)
	}

	return payload, string(body), nil
}

func decodeTask(body string) (taskPayload, error) {
	var payload taskPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return taskPayload{}, fmt.Errorf("notify: failed to decode task: %w", err)
	}
	if payload.SubmissionID == "" {
		return taskPayload{}, fmt.Errorf("notify: task %s has no submission id", payload.ID)
	}
	return payload, nil
}
