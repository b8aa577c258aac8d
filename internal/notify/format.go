package notify

import (
	"fmt"
	"html"
	"strings"
)

type field struct {
	label string
	value string
}

// details lists every populated submission field in display order.
func (p Payload) details() []field {
	all := []field{
		{"Name", p.Name},
		{"Email", p.Email},
		{"Phone", p.Phone},
		{"Subject", p.Subject},
		{"Project Type", p.ProjectType},
		{"Budget", p.Budget},
		{"Timeline", p.Timeline},
		{"Source", p.Source},
	}
	out := all[:0]
	for _, f := range all {
		if strings.TrimSpace(f.value) != "" {
			out = append(out, f)
		}
	}
	return out
}

// FormatEmail renders the operator alert for a submission. To is left for the
// channel to fill in.
func FormatEmail(p Payload) EmailMessage {
	var text strings.Builder
	text.WriteString("New contact form submission\n\n")
	for _, f := range p.details() {
		fmt.Fprintf(&text, "%s: %s\n", f.label, f.value)
	}
	fmt.Fprintf(&text, "\nMessage:\n%s\n", p.Message)
	if p.ContactID != "" {
		fmt.Fprintf(&text, "\nContact ID: %s\n", p.ContactID)
	}

	var rows strings.Builder
	for _, f := range p.details() {
		fmt.Fprintf(&rows,
			`  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>%s:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`+"\n",
			f.label, html.EscapeString(f.value))
	}
	body := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #2563eb;">New contact form submission</h2>
<table style="border-collapse: collapse; margin: 20px 0;">
%s</table>
<p style="background: #f8fafc; padding: 12px; border-radius: 8px; border-left: 4px solid #2563eb; white-space: pre-wrap;">%s</p>
</div>`, rows.String(), html.EscapeString(p.Message))

	return EmailMessage{
		Subject: "New contact: " + p.Subject,
		Body:    text.String(),
		HTML:    body,
		ReplyTo: p.Email,
	}
}

// FormatChat renders the short chat alert.
func FormatChat(p Payload) string {
	var b strings.Builder
	b.WriteString("📬 New contact form submission\n")
	for _, f := range p.details() {
		fmt.Fprintf(&b, "%s: %s\n", f.label, f.value)
	}
	fmt.Fprintf(&b, "Message: %s", p.Message)
	return b.String()
}
