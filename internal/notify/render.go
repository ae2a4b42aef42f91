package notify

import (
	"fmt"
	"html"
	"net/url"
	"path"
	"strings"

	"github.com/stepform/stepform/internal/schema"
	"github.com/stepform/stepform/internal/submission"
)

// adminMessage renders the notification sent to the site operator: every
// non-empty field grouped by step in schema order, with uploaded files
// rendered as links. Falls back to the four system attributes when the schema
// yields no groups, so old rows stay readable after a schema rewrite.
func adminMessage(sub *submission.Submission, sch schema.Schema, settings schema.Settings) EmailMessage {
	prefix := settings.SubjectPrefix
	if prefix == "" {
		prefix = "New Submission"
	}
	subject := fmt.Sprintf("%s: %s (#%s)", prefix, sub.Name, sub.ID)

	var groups strings.Builder
	var text strings.Builder
	for _, step := range sch {
		var items strings.Builder
		for i := range step.Fields {
			f := &step.Fields[i]
			value := submission.ResolveDisplayValue(sub, f)
			if value == "" {
				continue
			}
			display := html.EscapeString(value)
			if f.Type == schema.TypeFile && isURL(value) {
				display = fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, html.EscapeString(value), html.EscapeString(path.Base(value)))
			}
			fmt.Fprintf(&items, "<p><strong>%s:</strong> %s</p>\n", html.EscapeString(f.Label), display)
			fmt.Fprintf(&text, "%s: %s\n", f.Label, value)
		}
		if items.Len() == 0 {
			continue
		}
		title := step.Title
		if title == "" {
			title = "Step"
		}
		fmt.Fprintf(&groups, "<div class=\"step\">\n<h3>%s</h3>\n%s</div>\n", html.EscapeString(title), items.String())
	}

	if groups.Len() == 0 {
		text.Reset()
		fmt.Fprintf(&groups, "<p><strong>Name:</strong> %s</p>\n", html.EscapeString(sub.Name))
		fmt.Fprintf(&groups, "<p><strong>Email:</strong> %s</p>\n", html.EscapeString(sub.Email))
		fmt.Fprintf(&text, "Name: %s\nEmail: %s\n", sub.Name, sub.Email)
		if sub.Phone != "" {
			fmt.Fprintf(&groups, "<p><strong>Phone:</strong> %s</p>\n", html.EscapeString(sub.Phone))
			fmt.Fprintf(&text, "Phone: %s\n", sub.Phone)
		}
		fmt.Fprintf(&groups, "<p><strong>Message:</strong> %s</p>\n", html.EscapeString(sub.Message))
		fmt.Fprintf(&text, "Message: %s\n", sub.Message)
		for label, value := range sub.Fields {
			fmt.Fprintf(&groups, "<p><strong>%s:</strong> %s</p>\n", html.EscapeString(label), html.EscapeString(value))
			fmt.Fprintf(&text, "%s: %s\n", label, value)
		}
	}

	siteName := settings.SiteName
	if siteName == "" {
		siteName = "Stepform"
	}

	htmlBody := fmt.Sprintf(`<div style="font-family: sans-serif; color: #333; line-height: 1.6;">
<h2>New Contact Form Submission</h2>
<p><strong>Submission ID:</strong> #%s</p>
%s<hr>
<p style="font-size: 12px; color: #646970;">Sent from %s</p>
</div>`, html.EscapeString(sub.ID), groups.String(), html.EscapeString(siteName))

	return EmailMessage{
		To:      settings.AdminEmail,
		ReplyTo: sub.Email,
		Subject: subject,
		Body:    fmt.Sprintf("New contact form submission #%s\n\n%s", sub.ID, text.String()),
		HTML:    htmlBody,
	}
}

// userMessage renders the confirmation sent back to the submitter.
func userMessage(sub *submission.Submission, settings schema.Settings) EmailMessage {
	siteName := settings.SiteName
	if siteName == "" {
		siteName = "Stepform"
	}
	subject := fmt.Sprintf("We received your message from %s", siteName)

	body := fmt.Sprintf("Hi %s,\n\nThank you for contacting us. We have received your message and will get back to you as soon as possible.\n\nWe appreciate your patience and look forward to assisting you.\n\n%s\n%s\n", sub.Name, siteName, settings.SiteURL)

	htmlBody := fmt.Sprintf(`<html><body>
<h2>Thank You!</h2>
<p>Hi %s,</p>
<p>Thank you for contacting us. We have received your message and will get back to you as soon as possible.</p>
<p>We appreciate your patience and look forward to assisting you.</p>
<hr>
<p>%s<br>%s</p>
</body></html>`, html.EscapeString(sub.Name), html.EscapeString(siteName), html.EscapeString(settings.SiteURL))

	return EmailMessage{
		To:      sub.Email,
		ToName:  sub.Name,
		Subject: subject,
		Body:    body,
		HTML:    htmlBody,
	}
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
