// Package submission covers the lifecycle of a form submission: multipart
// parsing, per-step validation, persistence, and handoff to notifications.
package submission

import (
	"time"

	"github.com/stepform/stepform/internal/uploads"
)

// Submission statuses.
const (
	StatusNew  = "new"
	StatusRead = "read"
)

// Submission is a persisted form submission. The four system identities live
// in dedicated columns; everything else goes into Fields keyed by the field's
// label at submit time.
type Submission struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields"`
	Status    string            `json:"status"`
	IPAddress string            `json:"ip_address,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// RawSubmission is the parsed multipart payload before validation. Top-level
// system keys win over same-named entries in the custom bag.
type RawSubmission struct {
	Name    string
	Email   string
	Phone   string
	Message string
	// Custom holds every non-system value keyed by field id.
	Custom map[string]string
	// Files holds uploaded files keyed by field id.
	Files map[string]*uploads.File
}

// Value returns the raw value for a field id. System identities read the
// top-level attribute first and fall back to the custom bag.
func (r *RawSubmission) Value(fieldID string) string {
	var top string
	switch fieldID {
	case "name":
		top = r.Name
	case "email":
		top = r.Email
	case "phone":
		top = r.Phone
	case "message":
		top = r.Message
	}
	if top != "" {
		return top
	}
	return r.Custom[fieldID]
}
