package submission

import (
	"strings"

	"github.com/stepform/stepform/internal/schema"
)

// ResolveDisplayValue returns the stored value for a schema field. System
// fields read their dedicated attribute; everything else looks up the extras
// bag by label, first exactly, then case-insensitively with surrounding
// whitespace ignored. Labels can drift between schema edits and old rows, so
// the loose pass keeps historical submissions renderable.
func ResolveDisplayValue(sub *Submission, field *schema.Field) string {
	if field.IsSystem() {
		switch field.ID {
		case "name":
			return sub.Name
		case "email":
			return sub.Email
		case "phone":
			return sub.Phone
		case "message":
			return sub.Message
		}
	}

	if v, ok := sub.Fields[field.Label]; ok {
		return v
	}

	want := strings.ToLower(strings.TrimSpace(field.Label))
	for label, v := range sub.Fields {
		if strings.ToLower(strings.TrimSpace(label)) == want {
			return v
		}
	}
	return ""
}

// DisplayValues maps every field id in the schema to its stored display
// value, for conditional visibility checks against a persisted submission.
func DisplayValues(sub *Submission, sch schema.Schema) map[string]string {
	fields := sch.Fields()
	values := make(map[string]string, len(fields))
	for i := range fields {
		values[fields[i].ID] = ResolveDisplayValue(sub, &fields[i])
	}
	return values
}
