package submission

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/stepform/stepform/internal/schema"
	"github.com/stepform/stepform/internal/uploads"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^[0-9]+$`)
)

// Validator turns a raw multipart payload into a Submission by walking the
// schema step by step. The first violation stops the walk; the returned
// ValidationError carries the 1-based step index so the client can jump back.
type Validator struct {
	policy *uploads.Policy
}

// NewValidator creates a validator. policy handles file fields and may be nil
// when the schema has none.
func NewValidator(policy *uploads.Policy) *Validator {
	return &Validator{policy: policy}
}

// Validate checks every visible field in render order and collects the
// accepted values. Fields hidden by an unmet condition are skipped entirely:
// not required, not validated, not stored.
func (v *Validator) Validate(ctx context.Context, sch schema.Schema, raw *RawSubmission) (*Submission, error) {
	sub := &Submission{
		Fields: make(map[string]string),
		Status: StatusNew,
	}
	// seen holds the values of visible fields processed so far, keyed by field
	// id, for evaluating later conditions. Hidden fields contribute nothing,
	// so suppression cascades.
	seen := make(map[string]string)

	for stepIdx, step := range sch {
		stepNum := stepIdx + 1
		for i := range step.Fields {
			f := &step.Fields[i]

			if !f.Condition.Matches(seen) {
				continue
			}

			if f.Type == schema.TypeFile {
				if err := v.validateFile(ctx, f, raw, sub, stepNum); err != nil {
					return nil, err
				}
				continue
			}

			value := raw.Value(f.ID)
			if f.Required && strings.TrimSpace(value) == "" {
				return nil, &ValidationError{
					Step:    stepNum,
					Reason:  "required",
					Message: fmt.Sprintf("The field \"%s\" is required.", f.Label),
				}
			}

			if value != "" {
				switch f.Type {
				case schema.TypeEmail:
					if !emailRe.MatchString(value) {
						return nil, &ValidationError{Step: stepNum, Reason: "email", Message: "Please enter a valid email address"}
					}
				case schema.TypeTel:
					if !phoneRe.MatchString(value) {
						return nil, &ValidationError{Step: stepNum, Reason: "phone", Message: "Phone number must contain only digits"}
					}
				}
			}

			seen[f.ID] = value
			v.accept(f, value, sub)
		}
	}

	return sub, nil
}

// validateFile applies the required check and delegates constraint checks and
// storage to the upload policy. A policy rejection inherits the step index.
func (v *Validator) validateFile(ctx context.Context, f *schema.Field, raw *RawSubmission, sub *Submission, stepNum int) error {
	file := raw.Files[f.ID]
	if file == nil {
		if f.Required {
			return &ValidationError{
				Step:    stepNum,
				Reason:  "required",
				Message: fmt.Sprintf("The field \"%s\" is required.", f.Label),
			}
		}
		return nil
	}

	if v.policy == nil {
		return &ValidationError{
			Step:    stepNum,
			Reason:  "file_store",
			Message: fmt.Sprintf("File upload failed for \"%s\": uploads are not configured", f.Label),
		}
	}

	stored, err := v.policy.Validate(ctx, f, file)
	if err != nil {
		var perr *uploads.PolicyError
		if errors.As(err, &perr) {
			return &ValidationError{Step: stepNum, Reason: perr.Reason, Message: perr.Message}
		}
		return &ValidationError{
			Step:    stepNum,
			Reason:  "file_store",
			Message: fmt.Sprintf("File upload failed for \"%s\": %s", f.Label, err),
		}
	}

	sub.Fields[f.Label] = stored.URL
	return nil
}

// accept stores a validated value: system fields fill their dedicated
// attribute, everything else lands in the extras bag keyed by label.
// Duplicate labels overwrite, last write wins.
func (v *Validator) accept(f *schema.Field, value string, sub *Submission) {
	if f.IsSystem() {
		switch f.ID {
		case "name":
			sub.Name = value
			return
		case "email":
			sub.Email = value
			return
		case "phone":
			sub.Phone = value
			return
		case "message":
			sub.Message = value
			return
		}
	}
	if value != "" {
		sub.Fields[f.Label] = value
	}
}
