package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newsbot/internal/domain"
)

const rssSample = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <item>
      <title>First story</title>
      <link>https://example.com/1</link>
      <pubDate>Wed, 03 May 2023 15:04:05 +0000</pubDate>
      <description>&lt;p&gt;Rich &lt;b&gt;markup&lt;/b&gt; inside&lt;/p&gt;</description>
    </item>
    <item>
      <title>No link here</title>
      <description>dropped</description>
    </item>
    <item>
      <title>Third story</title>
      <link>https://example.com/3</link>
    </item>
  </channel>
</rss>`

const atomSample = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Atom</title>
  <entry>
    <title>Atom entry</title>
    <link rel="self" href="https://example.com/meta"/>
    <link rel="alternate" href="https://example.com/a1"/>
    <updated>2024-01-02T03:04:05Z</updated>
    <summary>short summary</summary>
  </entry>
  <entry>
    <title>Second entry</title>
    <link href="https://example.com/a2"/>
    <published>2024-02-02T03:04:05Z</published>
    <content>full content</content>
  </entry>
</feed>`

func serveBody(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedFetchRSS(t *testing.T) {
	t.Parallel()

	srv := serveBody(t, rssSample)
	f := NewFeedFetcher(nil, time.Second)

	res, err := f.Fetch(context.Background(), domain.Source{URL: srv.URL, Type: domain.SourceTypeFeed}, 20)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if res.Total != 3 || res.Processed != 3 {
		t.Fatalf("counters = %d/%d, want 3/3", res.Processed, res.Total)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items = %d, want 2 (URL-less item dropped)", len(res.Items))
	}
	first := res.Items[0]
	if first.Title != "First story" || first.URL != "https://example.com/1" {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if first.Published != "Wed, 03 May 2023 15:04:05 +0000" {
		t.Fatalf("published = %q", first.Published)
	}
	if first.Summary != "Rich markup inside" {
		t.Fatalf("summary should be stripped of markup, got %q", first.Summary)
	}
}

func TestFeedFetchRSSItemCap(t *testing.T) {
	t.Parallel()

	srv := serveBody(t, rssSample)
	f := NewFeedFetcher(nil, time.Second)

	res, err := f.Fetch(context.Background(), domain.Source{URL: srv.URL}, 2)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if res.Total != 3 {
		t.Fatalf("total = %d, want 3", res.Total)
	}
	if res.Processed != 2 {
		t.Fatalf("processed = %d, want 2", res.Processed)
	}
	if len(res.Items) != 1 {
		t.Fatalf("items = %d, want 1 (second processed item has no URL)", len(res.Items))
	}
}

func TestFeedFetchAtomFallback(t *testing.T) {
	t.Parallel()

	srv := serveBody(t, atomSample)
	f := NewFeedFetcher(nil, time.Second)

	res, err := f.Fetch(context.Background(), domain.Source{URL: srv.URL}, 20)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(res.Items))
	}
	if res.Items[0].URL != "https://example.com/a1" {
		t.Fatalf("rel=alternate link must win, got %q", res.Items[0].URL)
	}
	if res.Items[0].Published != "2024-01-02T03:04:05Z" {
		t.Fatalf("updated should back-fill published, got %q", res.Items[0].Published)
	}
	if res.Items[1].URL != "https://example.com/a2" {
		t.Fatalf("first href link must be used, got %q", res.Items[1].URL)
	}
	if res.Items[1].Summary != "full content" {
		t.Fatalf("content should back-fill summary, got %q", res.Items[1].Summary)
	}
}

func TestFeedFetchTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	f := NewFeedFetcher(nil, 50*time.Millisecond)
	_, err := f.Fetch(context.Background(), domain.Source{URL: srv.URL}, 20)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out after 50ms") {
		t.Fatalf("error must name the configured timeout, got %q", err)
	}
	if !strings.Contains(err.Error(), srv.URL) {
		t.Fatalf("error must name the URL, got %q", err)
	}
}

func TestFeedFetchHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	f := NewFeedFetcher(nil, time.Second)
	if _, err := f.Fetch(context.Background(), domain.Source{URL: srv.URL}, 20); err == nil {
		t.Fatalf("expected error on 502")
	}
}

func TestFeedFetchEmptyDocument(t *testing.T) {
	t.Parallel()

	srv := serveBody(t, `<?xml version="1.0"?><rss version="2.0"><channel></channel></rss>`)
	f := NewFeedFetcher(nil, time.Second)

	res, err := f.Fetch(context.Background(), domain.Source{URL: srv.URL}, 20)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if res.Total != 0 || res.Processed != 0 || len(res.Items) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}
