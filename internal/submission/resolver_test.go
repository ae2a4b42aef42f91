package submission

import (
	"testing"

	"github.com/stepform/stepform/internal/schema"
)

func TestResolveDisplayValueSystemAttribute(t *testing.T) {
	sub := &Submission{Name: "Ada", Email: "ada@example.com", Fields: map[string]string{"Name": "wrong"}}
	field := &schema.Field{ID: "name", Label: "Name", Type: schema.TypeText, System: true}

	if got := ResolveDisplayValue(sub, field); got != "Ada" {
		t.Errorf("got %q, system attribute must win over the extras bag", got)
	}
}

func TestResolveDisplayValueExactLabel(t *testing.T) {
	sub := &Submission{Fields: map[string]string{"Company": "Acme", "company ": "stale"}}
	field := &schema.Field{ID: "field_company", Label: "Company", Type: schema.TypeText}

	if got := ResolveDisplayValue(sub, field); got != "Acme" {
		t.Errorf("got %q, want exact label match", got)
	}
}

func TestResolveDisplayValueLooseLabelFallback(t *testing.T) {
	// The label was renamed from "company" to "Company" after this row was
	// stored; the case-insensitive pass still finds it.
	sub := &Submission{Fields: map[string]string{" company ": "Acme"}}
	field := &schema.Field{ID: "field_company", Label: "Company", Type: schema.TypeText}

	if got := ResolveDisplayValue(sub, field); got != "Acme" {
		t.Errorf("got %q, want loose label match", got)
	}
}

func TestResolveDisplayValueMissing(t *testing.T) {
	sub := &Submission{Fields: map[string]string{}}
	field := &schema.Field{ID: "field_x", Label: "X", Type: schema.TypeText}

	if got := ResolveDisplayValue(sub, field); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestDisplayValues(t *testing.T) {
	sub := &Submission{Name: "Ada", Fields: map[string]string{"Company": "Acme"}}
	sch := schema.Schema{
		{
			ID:    "step_1",
			Title: "One",
			Fields: schema.FieldList{
				{ID: "name", Label: "Name", Type: schema.TypeText, System: true},
				{ID: "field_company", Label: "Company", Type: schema.TypeText},
			},
		},
	}

	values := DisplayValues(sub, sch)
	if values["name"] != "Ada" || values["field_company"] != "Acme" {
		t.Errorf("values = %v", values)
	}
}
