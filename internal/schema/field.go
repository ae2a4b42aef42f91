package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FieldType is the closed set of input types a form field can take.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeEmail    FieldType = "email"
	TypeTel      FieldType = "tel"
	TypeTextarea FieldType = "textarea"
	TypeSelect   FieldType = "select"
	TypeFile     FieldType = "file"
	TypeDate     FieldType = "date"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeText, TypeEmail, TypeTel, TypeTextarea, TypeSelect, TypeFile, TypeDate:
		return true
	}
	return false
}

// systemFieldIDs are the four built-in identities that map to fixed submission
// attributes instead of the generic extras bag.
var systemFieldIDs = map[string]struct{}{
	"name":    {},
	"email":   {},
	"phone":   {},
	"message": {},
}

// DefaultMaxSizeMB is the file size ceiling applied when a file field does not
// configure its own.
const DefaultMaxSizeMB = 5

// defaultAllowedExtensions is used when a file field does not restrict extensions.
var defaultAllowedExtensions = []string{"jpg", "jpeg", "png", "pdf", "doc", "docx", "mp3", "mp4"}

// Field is a single named input with a type, constraints, and optional
// conditional visibility. The zero value is not valid; fields are built by the
// admin API or by unmarshalling the wire shape.
type Field struct {
	ID          string
	Label       string
	Type        FieldType
	Placeholder string
	// Options is only meaningful for select fields; order is presentation order.
	Options []string
	// Width is the layout column share: "100", "50" or "33".
	Width    string
	Required bool
	// System marks the field as one of the built-in identities.
	System bool
	// AllowedExtensions and MaxSizeMB are only meaningful for file fields.
	AllowedExtensions []string
	MaxSizeMB         int
	// Condition hides the field unless another field's value matches.
	Condition *Condition
}

// IsSystem reports whether the field maps to a fixed submission attribute.
// Legacy schemas identify system fields by id rather than by flag, so both are
// honored.
func (f *Field) IsSystem() bool {
	if f.System {
		return true
	}
	_, ok := systemFieldIDs[f.ID]
	return ok
}

// MaxSizeBytes returns the effective upload ceiling for a file field.
func (f *Field) MaxSizeBytes() int64 {
	mb := f.MaxSizeMB
	if mb <= 0 {
		mb = DefaultMaxSizeMB
	}
	return int64(mb) * 1024 * 1024
}

// EffectiveAllowedExtensions returns the lowercase extension allowlist for a
// file field, falling back to the default set when unconfigured.
func (f *Field) EffectiveAllowedExtensions() []string {
	if len(f.AllowedExtensions) == 0 {
		return defaultAllowedExtensions
	}
	out := make([]string, 0, len(f.AllowedExtensions))
	for _, ext := range f.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(ext, ".")))
		if ext != "" {
			out = append(out, ext)
		}
	}
	if len(out) == 0 {
		return defaultAllowedExtensions
	}
	return out
}

// validate checks the field's own shape; earlier maps every field id that
// renders before this one to its type, for condition ordering.
func (f *Field) validate(earlier map[string]FieldType) error {
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("schema: field with label %q has no id: %w", f.Label, ErrInvalidField)
	}
	if strings.TrimSpace(f.Label) == "" {
		return fmt.Errorf("schema: field %q has no label: %w", f.ID, ErrInvalidField)
	}
	if !f.Type.Valid() {
		return fmt.Errorf("schema: field %q has unknown type %q: %w", f.ID, f.Type, ErrInvalidField)
	}
	switch f.Width {
	case "", "100", "50", "33":
	default:
		return fmt.Errorf("schema: field %q has invalid width %q: %w", f.ID, f.Width, ErrInvalidField)
	}
	if f.Type == TypeSelect && len(f.Options) == 0 {
		return fmt.Errorf("schema: select field %q has no options: %w", f.ID, ErrInvalidField)
	}
	if f.Condition != nil {
		target := strings.TrimSpace(f.Condition.Field)
		if target == "" {
			return fmt.Errorf("schema: field %q condition has no target: %w", f.ID, ErrInvalidCondition)
		}
		if target == f.ID {
			return fmt.Errorf("schema: field %q condition references itself: %w", f.ID, ErrInvalidCondition)
		}
		targetType, ok := earlier[target]
		if !ok {
			return fmt.Errorf("schema: field %q condition references %q which does not render earlier: %w", f.ID, target, ErrInvalidCondition)
		}
		// File fields carry no comparable submitted value, so a condition
		// on one could never match.
		if targetType == TypeFile {
			return fmt.Errorf("schema: field %q condition references file field %q: %w", f.ID, target, ErrInvalidCondition)
		}
	}
	return nil
}

// fieldWire is the legacy on-wire representation of a field config. Option
// lists and extension lists tolerate the historical string encodings.
type fieldWire struct {
	Label              string        `json:"label"`
	Type               FieldType     `json:"type"`
	Placeholder        string        `json:"placeholder,omitempty"`
	Options            optionList    `json:"options,omitempty"`
	Width              flexString    `json:"width,omitempty"`
	Required           flexBool      `json:"required"`
	System             flexBool      `json:"system"`
	AllowedMimes       extensionList `json:"allowed_mimes,omitempty"`
	MaxSize            flexInt       `json:"max_size,omitempty"`
	ConditionalEnabled flexBool      `json:"conditional_enabled,omitempty"`
	ConditionalField   string        `json:"conditional_field,omitempty"`
	ConditionalValue   string        `json:"conditional_value,omitempty"`
}

func (f Field) wire() fieldWire {
	w := fieldWire{
		Label:        f.Label,
		Type:         f.Type,
		Placeholder:  f.Placeholder,
		Options:      optionList(f.Options),
		Width:        flexString(f.Width),
		Required:     flexBool(f.Required),
		System:       flexBool(f.System),
		AllowedMimes: extensionList(f.AllowedExtensions),
		MaxSize:      flexInt(f.MaxSizeMB),
	}
	if f.Condition != nil {
		w.ConditionalEnabled = true
		w.ConditionalField = f.Condition.Field
		w.ConditionalValue = f.Condition.Value
	}
	return w
}

func (w fieldWire) field(id string) Field {
	f := Field{
		ID:                id,
		Label:             w.Label,
		Type:              w.Type,
		Placeholder:       w.Placeholder,
		Options:           []string(w.Options),
		Width:             string(w.Width),
		Required:          bool(w.Required),
		System:            bool(w.System),
		AllowedExtensions: []string(w.AllowedMimes),
		MaxSizeMB:         int(w.MaxSize),
	}
	if w.ConditionalEnabled && strings.TrimSpace(w.ConditionalField) != "" {
		f.Condition = &Condition{
			Field: w.ConditionalField,
			Value: w.ConditionalValue,
		}
	}
	return f
}

// optionList decodes either a JSON array of strings or the legacy
// newline-separated textarea value.
type optionList []string

func (o *optionList) UnmarshalJSON(data []byte) error {
	return unmarshalStringList((*[]string)(o), data, "\n")
}

// extensionList decodes either a JSON array or the legacy comma-separated value.
type extensionList []string

func (e *extensionList) UnmarshalJSON(data []byte) error {
	return unmarshalStringList((*[]string)(e), data, ",")
}

func unmarshalStringList(dst *[]string, data []byte, sep string) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*dst = nil
		return nil
	}
	if data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*dst = trimNonEmpty(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*dst = trimNonEmpty(strings.Split(s, sep))
	return nil
}

func trimNonEmpty(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// flexBool decodes true/false, 0/1 numbers, and their string forms.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch s {
	case "", "null", "0", "false":
		*b = false
	case "1", "true":
		*b = true
	default:
		return fmt.Errorf("schema: cannot parse %q as bool", s)
	}
	return nil
}

// flexInt decodes numbers that legacy payloads sometimes quote.
type flexInt int

func (i *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("schema: cannot parse %q as int: %w", s, err)
	}
	*i = flexInt(n)
	return nil
}

// flexString decodes strings that legacy payloads sometimes send as numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*f = ""
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexString(v)
		return nil
	}
	*f = flexString(s)
	return nil
}
