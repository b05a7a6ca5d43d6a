package digest

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// FailureNotice carries what the admin alert email needs to identify a
// failed run without touching the database.
type FailureNotice struct {
	RunID        int64
	ConfigID     int64
	ConfigName   string
	StartedAt    time.Time
	FailedAt     time.Time
	ErrorMessage string
	Stack        string
}

func (n FailureNotice) configLabel() string {
	name := strings.TrimSpace(n.ConfigName)
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("%s (id %d)", name, n.ConfigID)
}

func (n FailureNotice) errorText() string {
	if msg := strings.TrimSpace(n.ErrorMessage); msg != "" {
		return msg
	}
	return "Unknown error"
}

// RenderFailureHTML builds the admin notification body for a failed run.
func RenderFailureHTML(n FailureNotice) string {
	var b strings.Builder
	b.WriteString("<!doctype html>\n<html lang=\"en\">\n<head>\n<meta charset=\"UTF-8\" />\n")
	b.WriteString("<title>NewsBot run failed</title>\n</head>\n")
	b.WriteString("<body style=\"font-family: Arial, sans-serif; color: #0f172a;\">\n")
	b.WriteString("<h2 style=\"color: #b91c1c;\">NewsBot run failed</h2>\n<table cellpadding=\"4\">\n")

	row := func(label, value string) {
		b.WriteString("<tr><td><b>" + label + "</b></td><td>" + html.EscapeString(value) + "</td></tr>\n")
	}
	row("Run", fmt.Sprintf("%d", n.RunID))
	row("Configuration", n.configLabel())
	row("Started", n.StartedAt.UTC().Format(time.RFC3339))
	row("Failed", n.FailedAt.UTC().Format(time.RFC3339))
	row("Error", n.errorText())
	b.WriteString("</table>\n")

	if stack := strings.TrimSpace(n.Stack); stack != "" {
		b.WriteString("<p><b>Stack trace</b></p>\n")
		b.WriteString("<pre style=\"background-color: #f1f5f9; padding: 12px; border-radius: 8px; font-size: 12px; overflow-x: auto;\">")
		b.WriteString(html.EscapeString(stack))
		b.WriteString("</pre>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// RenderFailureText is the plain-text counterpart of RenderFailureHTML.
func RenderFailureText(n FailureNotice) string {
	lines := []string{
		"NewsBot run failed",
		"",
		fmt.Sprintf("Run: %d", n.RunID),
		"Configuration: " + n.configLabel(),
		"Started: " + n.StartedAt.UTC().Format(time.RFC3339),
		"Failed: " + n.FailedAt.UTC().Format(time.RFC3339),
		"Error: " + n.errorText(),
	}
	if stack := strings.TrimSpace(n.Stack); stack != "" {
		lines = append(lines, "", "Stack trace:", stack)
	}
	return strings.Join(lines, "\n")
}
