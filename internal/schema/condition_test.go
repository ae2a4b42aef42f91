package schema

import "testing"

func TestConditionMatches(t *testing.T) {
	cond := &Condition{Field: "subscribe", Value: "Yes"}

	tests := []struct {
		name   string
		values map[string]string
		want   bool
	}{
		{"exact match", map[string]string{"subscribe": "Yes"}, true},
		{"case insensitive", map[string]string{"subscribe": "yes"}, true},
		{"trims whitespace", map[string]string{"subscribe": "  YES  "}, true},
		{"mismatch", map[string]string{"subscribe": "no"}, false},
		{"missing target", map[string]string{}, false},
		{"nil map", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cond.Matches(tt.values); got != tt.want {
				t.Fatalf("Matches(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestNilConditionAlwaysVisible(t *testing.T) {
	var cond *Condition
	if !cond.Matches(nil) {
		t.Fatal("nil condition must always match")
	}
}

func TestConditionMatchesIsPure(t *testing.T) {
	cond := &Condition{Field: "a", Value: "b"}
	values := map[string]string{"a": "b"}
	for i := 0; i < 3; i++ {
		if !cond.Matches(values) {
			t.Fatalf("iteration %d: expected stable result", i)
		}
	}
	if values["a"] != "b" || len(values) != 1 {
		t.Fatalf("Matches mutated its input: %v", values)
	}
}

func TestConditionMatchesEmptyExpectedValue(t *testing.T) {
	// An empty expected value matches a missing or blank target.
	cond := &Condition{Field: "other", Value: ""}
	if !cond.Matches(map[string]string{}) {
		t.Fatal("empty expected value should match missing target")
	}
	if cond.Matches(map[string]string{"other": "set"}) {
		t.Fatal("empty expected value should not match a set target")
	}
}
