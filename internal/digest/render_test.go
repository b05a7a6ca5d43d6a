package digest

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"newsbot/internal/domain"
)

var testNow = time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)

func TestRenderHTMLListsItemsInOrder(t *testing.T) {
	t.Parallel()

	items := []domain.NewsItem{
		{Title: "First story", URL: "https://example.com/a", Published: "Mon, 04 Mar 2024 10:00:00 GMT"},
		{Title: "Second story", URL: "https://example.com/b", Summary: "Short take."},
	}
	body := RenderHTML("Morning Brief", "All quiet.", items, testNow)

	first := strings.Index(body, "https://example.com/a")
	second := strings.Index(body, "https://example.com/b")
	if first == -1 || second == -1 {
		t.Fatalf("expected both item URLs in body")
	}
	if first > second {
		t.Errorf("items rendered out of order")
	}
	if !strings.Contains(body, "Morning Brief") {
		t.Errorf("missing digest title")
	}
	if !strings.Contains(body, "March 5, 2024") {
		t.Errorf("missing issue date")
	}
	if !strings.Contains(body, "Mar 4, 2024") {
		t.Errorf("missing published date for dated item")
	}
	if !strings.Contains(body, "2 articles") {
		t.Errorf("missing article count")
	}
}

func TestRenderTextMatchesHTMLURLOrder(t *testing.T) {
	t.Parallel()

	items := []domain.NewsItem{
		{Title: "A", URL: "https://example.com/1"},
		{Title: "B", URL: "https://example.com/2"},
		{Title: "C", URL: "https://example.com/3"},
	}
	htmlBody := RenderHTML("Digest", "sum", items, testNow)
	textBody := RenderText("Digest", "sum", items, testNow)

	urlRe := regexp.MustCompile(`https://example\.com/\d`)
	htmlURLs := dedupeInOrder(urlRe.FindAllString(htmlBody, -1))
	textURLs := dedupeInOrder(urlRe.FindAllString(textBody, -1))

	if len(htmlURLs) != len(items) || len(textURLs) != len(items) {
		t.Fatalf("expected %d URLs, got html=%d text=%d", len(items), len(htmlURLs), len(textURLs))
	}
	for i := range htmlURLs {
		if htmlURLs[i] != textURLs[i] {
			t.Errorf("URL order mismatch at %d: html=%q text=%q", i, htmlURLs[i], textURLs[i])
		}
	}
}

func dedupeInOrder(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func TestRenderHTMLEmptyItems(t *testing.T) {
	t.Parallel()

	body := RenderHTML("Digest", "", nil, testNow)
	if !strings.Contains(body, noArticlesText) {
		t.Errorf("missing empty-list placeholder")
	}
	if !strings.Contains(body, noSummaryText) {
		t.Errorf("missing empty-summary placeholder")
	}

	text := RenderText("Digest", "", nil, testNow)
	if !strings.Contains(text, noArticlesText) {
		t.Errorf("text body missing empty-list placeholder")
	}
}

func TestRenderHTMLEscapesUserText(t *testing.T) {
	t.Parallel()

	items := []domain.NewsItem{{
		Title:   `<script>alert("x")</script>`,
		URL:     `javascript:alert(1)`,
		Summary: "a & b <i>c</i>",
	}}
	body := RenderHTML(`Brief & "More"`, "", items, testNow)

	if strings.Contains(body, "<script>") {
		t.Errorf("item title not escaped")
	}
	if strings.Contains(body, "javascript:") {
		t.Errorf("non-http URL not neutralized")
	}
	if !strings.Contains(body, `href="#"`) {
		t.Errorf("expected defused link target")
	}
	if !strings.Contains(body, "Brief &amp; &#34;More&#34;") {
		t.Errorf("digest title not escaped")
	}
	if strings.Contains(body, "<i>c</i>") {
		t.Errorf("item summary markup not escaped")
	}
}

func TestSummaryMarkdownRendering(t *testing.T) {
	t.Parallel()

	summary := "## Highlights\n\n- **bold** point\n- ~~dropped~~ item\n\nSee [docs](https://example.com/docs)."
	body := RenderHTML("Digest", summary, nil, testNow)

	for _, want := range []string{
		"<h2>Highlights</h2>",
		"<strong>bold</strong>",
		"<del>dropped</del>",
		`<a href="https://example.com/docs">docs</a>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("summary HTML missing %q", want)
		}
	}
}

func TestSummaryMarkdownSuppressesRawHTML(t *testing.T) {
	t.Parallel()

	body := RenderHTML("Digest", `before <img src=x onerror=alert(1)> after`, nil, testNow)
	if strings.Contains(body, "onerror") {
		t.Errorf("raw HTML leaked into summary output")
	}
}

func TestRenderFailureBodies(t *testing.T) {
	t.Parallel()

	notice := FailureNotice{
		RunID:        42,
		ConfigID:     7,
		ConfigName:   "Tech & AI",
		StartedAt:    testNow,
		FailedAt:     testNow.Add(3 * time.Minute),
		ErrorMessage: "summarize failed: HTTP 500",
		Stack:        "goroutine 1 [running]:\nmain.main()",
	}

	htmlBody := RenderFailureHTML(notice)
	if !strings.Contains(htmlBody, "Tech &amp; AI (id 7)") {
		t.Errorf("html body missing escaped configuration label")
	}
	if !strings.Contains(htmlBody, "summarize failed: HTTP 500") {
		t.Errorf("html body missing error message")
	}
	if !strings.Contains(htmlBody, "goroutine 1 [running]:") {
		t.Errorf("html body missing stack trace")
	}

	textBody := RenderFailureText(notice)
	if !strings.Contains(textBody, "Run: 42") {
		t.Errorf("text body missing run id")
	}
	if !strings.Contains(textBody, "Started: 2024-03-05T09:00:00Z") {
		t.Errorf("text body missing start timestamp")
	}

	noStack := RenderFailureText(FailureNotice{RunID: 1, ErrorMessage: ""})
	if !strings.Contains(noStack, "Unknown error") {
		t.Errorf("expected fallback error text")
	}
	if strings.Contains(noStack, "Stack trace") {
		t.Errorf("stack section should be omitted when empty")
	}
}
