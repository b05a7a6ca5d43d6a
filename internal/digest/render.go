// Package digest renders provider output and the filtered item list into
// the HTML and plain-text email bodies. Rendering is a pure function of its
// inputs; the reference time is passed in by the caller.
package digest

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"newsbot/internal/domain"
)

const (
	issueDateLayout     = "January 2, 2006"
	publishedDateLayout = "Jan 2, 2006"

	noSummaryText  = "No summary was generated for this run."
	noArticlesText = "No matching articles were found for this run."
)

// markdown renders the summary body. The enabled subset is headings,
// bold/italic, code, strikethrough, links, and ordered/unordered lists; raw
// inline HTML is suppressed by the renderer, so user-controlled text cannot
// inject markup.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))

var collapseSpace = regexp.MustCompile(`\s+`)

func oneLine(s string) string {
	return strings.TrimSpace(collapseSpace.ReplaceAllString(s, " "))
}

func normalizeMultiline(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return "..."
	}
	return strings.TrimSpace(s[:max-3]) + "..."
}

// sanitizeURL keeps http(s) targets and defuses everything else.
func sanitizeURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") {
		return parsed.String()
	}
	return "#"
}

func formatPublished(item domain.NewsItem) string {
	t, ok := item.PublishedTime()
	if !ok {
		return ""
	}
	return t.Format(publishedDateLayout)
}

func displayTitle(title string) string {
	if t := oneLine(title); t != "" {
		return t
	}
	return "News Digest"
}

func articleCount(n int) string {
	if n == 1 {
		return "1 article"
	}
	return fmt.Sprintf("%d articles", n)
}

func summaryHTML(summary string) string {
	normalized := normalizeMultiline(summary)
	if normalized == "" {
		return `<p class="muted">` + noSummaryText + `</p>`
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(normalized), &buf); err != nil {
		// Conversion of plain text never fails in practice; escape as-is.
		return "<p>" + html.EscapeString(normalized) + "</p>"
	}
	return buf.String()
}

// RenderHTML builds the HTML digest body. Items appear in input order; an
// empty list renders the placeholder card instead.
func RenderHTML(title, summary string, items []domain.NewsItem, now time.Time) string {
	escapedTitle := html.EscapeString(displayTitle(title))
	issueDate := now.Format(issueDateLayout)

	var b strings.Builder
	b.WriteString("<!doctype html>\n<html lang=\"en\">\n<head>\n<meta charset=\"UTF-8\" />\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\" />\n")
	b.WriteString("<title>" + escapedTitle + "</title>\n")
	b.WriteString(styleBlock)
	b.WriteString("</head>\n<body>\n<div class=\"wrapper\">\n")

	b.WriteString("<div class=\"header\">\n")
	b.WriteString("<p class=\"kicker\">NewsBot Digest</p>\n")
	b.WriteString("<h1>" + escapedTitle + "</h1>\n")
	b.WriteString("<p class=\"meta\">" + html.EscapeString(issueDate) + " | " + articleCount(len(items)) + "</p>\n")
	b.WriteString("</div>\n")

	b.WriteString("<div class=\"section\">\n<h2>Summary</h2>\n")
	b.WriteString(summaryHTML(summary))
	b.WriteString("\n</div>\n")

	b.WriteString("<div class=\"section\">\n<h2>Top Stories</h2>\n")
	if len(items) == 0 {
		b.WriteString("<div class=\"card placeholder\">" + noArticlesText + "</div>\n")
	}
	for i, item := range items {
		itemTitle := oneLine(item.Title)
		if itemTitle == "" {
			itemTitle = "Untitled article"
		}
		itemURL := html.EscapeString(sanitizeURL(item.URL))
		meta := fmt.Sprintf("Article %d", i+1)
		if published := formatPublished(item); published != "" {
			meta += " | " + published
		}

		b.WriteString("<div class=\"card\">\n")
		b.WriteString("<p class=\"card-meta\">" + html.EscapeString(meta) + "</p>\n")
		b.WriteString("<p class=\"card-title\"><a href=\"" + itemURL + "\">" + html.EscapeString(itemTitle) + "</a></p>\n")
		if s := oneLine(item.Summary); s != "" {
			b.WriteString("<p class=\"card-summary\">" + html.EscapeString(truncate(s, 240)) + "</p>\n")
		}
		b.WriteString("<p><a class=\"button\" href=\"" + itemURL + "\">Read article</a></p>\n")
		b.WriteString("</div>\n")
	}
	b.WriteString("</div>\n")

	b.WriteString("<p class=\"footer\">You are receiving this email because you are on the recipient list for this NewsBot configuration.</p>\n")
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

// RenderText builds the plain-text equivalent. It lists the same item URLs
// in the same order as RenderHTML.
func RenderText(title, summary string, items []domain.NewsItem, now time.Time) string {
	lines := []string{
		"News Digest: " + displayTitle(title),
		"Date: " + now.Format(issueDateLayout),
		"Articles: " + fmt.Sprintf("%d", len(items)),
		"",
	}

	if s := normalizeMultiline(summary); s != "" {
		lines = append(lines, s)
	} else {
		lines = append(lines, noSummaryText)
	}
	lines = append(lines, "", "Top Stories", "")

	if len(items) == 0 {
		lines = append(lines, noArticlesText)
		return strings.Join(lines, "\n")
	}

	for i, item := range items {
		itemTitle := oneLine(item.Title)
		if itemTitle == "" {
			itemTitle = "Untitled article"
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, itemTitle))
		if published := formatPublished(item); published != "" {
			lines = append(lines, "Published: "+published)
		}
		lines = append(lines, "URL: "+item.URL)
		if s := oneLine(item.Summary); s != "" {
			lines = append(lines, "Summary: "+truncate(s, 300))
		}
		lines = append(lines, "")
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

const styleBlock = `<style>
body { margin: 0; padding: 24px 10px; background-color: #eef2ff; font-family: Arial, sans-serif; color: #0f172a; }
.wrapper { max-width: 680px; margin: 0 auto; background-color: #ffffff; border-radius: 16px; overflow: hidden; }
.header { padding: 28px; background-color: #0f172a; color: #ffffff; }
.header h1 { margin: 0; font-size: 30px; line-height: 1.2; }
.kicker { margin: 0 0 8px; color: #93c5fd; font-size: 12px; font-weight: 700; letter-spacing: 0.08em; text-transform: uppercase; }
.meta { margin: 12px 0 0; color: #cbd5e1; font-size: 14px; }
.section { padding: 18px 28px 8px; }
.section h2 { margin: 0 0 12px; font-size: 20px; }
.muted { color: #475569; }
.card { margin: 0 0 14px; padding: 16px 18px; background-color: #f8fafc; border: 1px solid #e5e7eb; border-radius: 12px; }
.card.placeholder { border-style: dashed; color: #334155; }
.card-meta { margin: 0 0 10px; color: #64748b; font-size: 12px; font-weight: 700; text-transform: uppercase; }
.card-title { margin: 0 0 10px; font-size: 19px; font-weight: 700; }
.card-title a { color: #0f172a; text-decoration: none; }
.card-summary { margin: 0 0 14px; color: #334155; font-size: 14px; line-height: 1.65; }
.button { display: inline-block; padding: 8px 14px; background-color: #1d4ed8; border-radius: 8px; color: #ffffff; font-size: 13px; font-weight: 600; text-decoration: none; }
.footer { padding: 10px 28px 24px; margin: 0; color: #64748b; font-size: 12px; line-height: 1.6; }
</style>
`
