// Package uploads enforces per-field file constraints and moves accepted files
// into permanent storage.
package uploads

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stepform/stepform/internal/schema"
	"github.com/stepform/stepform/pkg/logging"
)

// File is one uploaded file as received at the HTTP boundary.
type File struct {
	Name    string
	Size    int64
	Content io.Reader
}

// StoredFile is the permanent-storage result for an accepted upload.
type StoredFile struct {
	Key string
	URL string
}

// FileStore moves accepted uploads into permanent storage.
type FileStore interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (url string, err error)
}

// PolicyError describes a rejected upload with a user-facing message and a
// coarse reason for metrics.
type PolicyError struct {
	Reason  string
	Message string
}

func (e *PolicyError) Error() string { return e.Message }

// PolicyConfig carries the deployment-level upload defaults. Field-level
// settings always win; these apply to fields that do not configure their own.
type PolicyConfig struct {
	MaxSizeMB         int
	AllowedExtensions []string
	SaveTimeout       time.Duration
}

// Policy validates uploads against field constraints before any storage write,
// so a rejected file never reaches permanent storage.
type Policy struct {
	store       FileStore
	maxSizeMB   int
	allowedExts []string
	saveTimeout time.Duration
	logger      *logging.Logger
}

// NewPolicy creates an upload policy backed by the given store.
func NewPolicy(store FileStore, cfg PolicyConfig, logger *logging.Logger) *Policy {
	if store == nil {
		panic("uploads: file store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Policy{
		store:       store,
		maxSizeMB:   cfg.MaxSizeMB,
		allowedExts: normalizeExtensions(cfg.AllowedExtensions),
		saveTimeout: cfg.SaveTimeout,
		logger:      logger,
	}
}

// Validate checks the file against the field's size and extension constraints
// and, only when both pass, relocates it to permanent storage.
func (p *Policy) Validate(ctx context.Context, field *schema.Field, file *File) (*StoredFile, error) {
	if maxBytes := p.maxSizeBytes(field); file.Size > maxBytes {
		return nil, &PolicyError{
			Reason:  "file_size",
			Message: fmt.Sprintf("File \"%s\" is too large. Max allowed: %dMB", field.Label, maxBytes/(1024*1024)),
		}
	}

	ext := Extension(file.Name)
	allowed := p.allowedExtensions(field)
	if !contains(allowed, ext) {
		return nil, &PolicyError{
			Reason:  "file_type",
			Message: fmt.Sprintf("File type .%s is not allowed for \"%s\". Allowed: %s", ext, field.Label, strings.Join(allowed, ", ")),
		}
	}

	if p.saveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.saveTimeout)
		defer cancel()
	}
	key := storageKey(ext)
	url, err := p.store.Save(ctx, key, contentTypeFor(ext), file.Content)
	if err != nil {
		p.logger.Error("upload store failed", "field", field.ID, "key", key, "error", err)
		return nil, &PolicyError{
			Reason:  "file_store",
			Message: fmt.Sprintf("File upload failed for \"%s\": %s", field.Label, err),
		}
	}

	p.logger.Info("file stored", "field", field.ID, "key", key, "size", file.Size)
	return &StoredFile{Key: key, URL: url}, nil
}

// maxSizeBytes resolves the size ceiling: field setting, then the configured
// deployment default, then the built-in default.
func (p *Policy) maxSizeBytes(field *schema.Field) int64 {
	if field.MaxSizeMB <= 0 && p.maxSizeMB > 0 {
		return int64(p.maxSizeMB) * 1024 * 1024
	}
	return field.MaxSizeBytes()
}

// allowedExtensions resolves the allowlist with the same precedence as
// maxSizeBytes.
func (p *Policy) allowedExtensions(field *schema.Field) []string {
	if len(field.AllowedExtensions) == 0 && len(p.allowedExts) > 0 {
		return p.allowedExts
	}
	return field.EffectiveAllowedExtensions()
}

func normalizeExtensions(in []string) []string {
	var out []string
	for _, ext := range in {
		ext = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(ext, ".")))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

// Extension returns the lowercase filename extension after the final dot,
// without the dot itself.
func Extension(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	return strings.ToLower(ext)
}

func storageKey(ext string) string {
	now := time.Now().UTC()
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	return fmt.Sprintf("uploads/%04d/%02d/%s", now.Year(), now.Month(), name)
}

func contentTypeFor(ext string) string {
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
