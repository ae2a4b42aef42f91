package notify

import (
	"strings"
	"testing"

	"github.com/stepform/stepform/internal/schema"
	"github.com/stepform/stepform/internal/submission"
)

func TestAdminMessageGroupsFieldsByStep(t *testing.T) {
	sch := schema.Schema{
		{
			ID:    "step_1",
			Title: "Contact Information",
			Fields: schema.FieldList{
				{ID: "name", Label: "Name", Type: schema.TypeText, System: true},
				{ID: "email", Label: "Email", Type: schema.TypeEmail, System: true},
			},
		},
		{
			ID:    "step_2",
			Title: "Attachments",
			Fields: schema.FieldList{
				{ID: "field_resume", Label: "Resume", Type: schema.TypeFile},
				{ID: "field_notes", Label: "Notes", Type: schema.TypeTextarea},
			},
		},
	}
	sub := &submission.Submission{
		ID:    "42",
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		Fields: map[string]string{
			"Resume": "https://cdn.example.com/uploads/2026/08/abc.pdf",
		},
	}

	msg := adminMessage(sub, sch, schema.Settings{AdminEmail: "admin@example.com", SubjectPrefix: "New Submission", SiteName: "Acme"})

	if msg.Subject != "New Submission: Ada Lovelace (#42)" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "Contact Information") {
		t.Error("HTML missing step one title")
	}
	if !strings.Contains(msg.HTML, "Attachments") {
		t.Error("HTML missing step two title")
	}
	if !strings.Contains(msg.HTML, `<a href="https://cdn.example.com/uploads/2026/08/abc.pdf"`) {
		t.Error("file value not rendered as a link")
	}
	if !strings.Contains(msg.HTML, ">abc.pdf</a>") {
		t.Error("file link text should be the basename")
	}
	if strings.Contains(msg.HTML, "Notes") {
		t.Error("empty field must be omitted")
	}
	if !strings.Contains(msg.HTML, "Sent from Acme") {
		t.Error("HTML missing site footer")
	}
	if !strings.Contains(msg.Body, "Name: Ada Lovelace") {
		t.Errorf("plain body missing name: %q", msg.Body)
	}
}

func TestAdminMessageFallsBackWithoutSchema(t *testing.T) {
	sub := &submission.Submission{
		ID:      "7",
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Phone:   "5551234",
		Message: "Hello",
		Fields:  map[string]string{"Company": "Analytical Engines"},
	}

	msg := adminMessage(sub, nil, schema.Settings{AdminEmail: "admin@example.com"})

	for _, want := range []string{"Ada Lovelace", "ada@example.com", "5551234", "Hello", "Analytical Engines"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("fallback HTML missing %q", want)
		}
	}
	if msg.Subject != "New Submission: Ada Lovelace (#7)" {
		t.Errorf("Subject = %q", msg.Subject)
	}
}

func TestAdminMessageEscapesHTML(t *testing.T) {
	sub := &submission.Submission{
		ID:      "8",
		Name:    "<script>alert(1)</script>",
		Email:   "x@example.com",
		Message: "hi",
	}

	msg := adminMessage(sub, nil, schema.Settings{AdminEmail: "admin@example.com"})
	if strings.Contains(msg.HTML, "<script>") {
		t.Error("submitter-controlled values must be escaped")
	}
}

func TestUserMessage(t *testing.T) {
	sub := &submission.Submission{Name: "Ada", Email: "ada@example.com"}
	settings := schema.Settings{SiteName: "Acme", SiteURL: "https://acme.example.com"}

	msg := userMessage(sub, settings)

	if msg.To != "ada@example.com" {
		t.Errorf("To = %q", msg.To)
	}
	if msg.Subject != "We received your message from Acme" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "Hi Ada,") {
		t.Errorf("HTML does not greet submitter: %q", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "https://acme.example.com") {
		t.Error("HTML missing site URL")
	}
}
