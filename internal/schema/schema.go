// Package schema models the admin-authored multi-step form: ordered steps of
// typed fields with per-field constraints and conditional visibility. The wire
// shape is the legacy JSON layout (steps array, fields as an ordered object
// keyed by field id) so existing stored schemas keep loading.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Schema is the ordered sequence of steps making up the form.
type Schema []Step

// Step is one page of the multi-step form. Field order is render order and
// validation order.
type Step struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Fields FieldList `json:"fields"`
}

// FieldList serializes as a JSON object keyed by field id while preserving
// insertion order, which encoding/json maps cannot do.
type FieldList []Field

// MarshalJSON writes the fields as an object in slice order.
func (fl FieldList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fl {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.ID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.wire())
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON walks the object tokens so key order survives the decode.
func (fl *FieldList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("schema: decode fields: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		// Legacy empty-step encoding is an empty array.
		if delim, ok := tok.(json.Delim); ok && delim == '[' {
			*fl = nil
			return nil
		}
		return fmt.Errorf("schema: fields must be a JSON object, got %v", tok)
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("schema: decode field id: %w", err)
		}
		id, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("schema: field id must be a string, got %v", keyTok)
		}

		var w fieldWire
		if err := dec.Decode(&w); err != nil {
			return fmt.Errorf("schema: decode field %q: %w", id, err)
		}
		fields = append(fields, w.field(id))
	}

	*fl = fields
	return nil
}

// Validate checks the structural invariants: at least one step, unique step
// ids, globally unique field ids, per-field shape, and conditions that only
// reference earlier non-file fields.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return ErrNoSteps
	}

	stepIDs := make(map[string]struct{}, len(s))
	earlier := make(map[string]FieldType)

	for _, step := range s {
		id := strings.TrimSpace(step.ID)
		if id == "" {
			return fmt.Errorf("schema: step %q has no id: %w", step.Title, ErrDuplicateStepID)
		}
		if _, dup := stepIDs[id]; dup {
			return fmt.Errorf("schema: step id %q: %w", id, ErrDuplicateStepID)
		}
		stepIDs[id] = struct{}{}

		for i := range step.Fields {
			f := &step.Fields[i]
			if _, dup := earlier[f.ID]; dup {
				return fmt.Errorf("schema: field id %q: %w", f.ID, ErrDuplicateFieldID)
			}
			if err := f.validate(earlier); err != nil {
				return err
			}
			earlier[f.ID] = f.Type
		}
	}
	return nil
}

// FieldByID returns the field and the 1-based index of the step holding it.
func (s Schema) FieldByID(id string) (*Field, int, bool) {
	for stepIdx, step := range s {
		for i := range step.Fields {
			if step.Fields[i].ID == id {
				return &step.Fields[i], stepIdx + 1, true
			}
		}
	}
	return nil, 0, false
}

// Fields yields every field in render order.
func (s Schema) Fields() []Field {
	var out []Field
	for _, step := range s {
		out = append(out, step.Fields...)
	}
	return out
}

// Default returns the two-step starter schema used when nothing has been
// saved yet: contact identities on step one, the message on step two.
func Default() Schema {
	return Schema{
		{
			ID:    "step_1",
			Title: "Contact Information",
			Fields: FieldList{
				{ID: "name", Label: "Name", Type: TypeText, Required: true, Width: "50", System: true, Placeholder: "e.g., John Doe"},
				{ID: "email", Label: "Email", Type: TypeEmail, Required: true, Width: "50", System: true, Placeholder: "e.g., john@example.com"},
				{ID: "phone", Label: "Phone", Type: TypeTel, Width: "100", System: true, Placeholder: "e.g., 1234567890"},
			},
		},
		{
			ID:    "step_2",
			Title: "Message & Details",
			Fields: FieldList{
				{ID: "message", Label: "Your Message", Type: TypeTextarea, Required: true, Width: "100", System: true, Placeholder: "How can we help you?"},
			},
		},
	}
}
