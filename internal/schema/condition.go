package schema

import "strings"

// Condition hides a field unless the value of an earlier field matches.
// Matching is a trimmed, case-insensitive string compare; the client-side
// renderer applies the exact same normalization, so the two never diverge.
type Condition struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Normalize prepares a value for conditional comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matches reports whether the condition is satisfied by the given value map.
// A missing target value normalizes to the empty string. Pure: no side effects,
// same inputs always produce the same answer.
func (c *Condition) Matches(values map[string]string) bool {
	if c == nil {
		return true
	}
	return Normalize(values[c.Field]) == Normalize(c.Value)
}
