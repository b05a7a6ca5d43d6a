package aggregate

import (
	"testing"
	"time"

	"newsbot/internal/domain"
)

func TestDedupeFirstSeenWins(t *testing.T) {
	t.Parallel()

	items := []domain.NewsItem{
		{Title: "first", URL: "https://a.example/1"},
		{Title: "second", URL: "https://a.example/2"},
		{Title: "dupe of first", URL: "https://a.example/1"},
		{Title: "no url"},
		{Title: "third", URL: "https://a.example/3"},
		{Title: "dupe of third", URL: "https://a.example/3"},
	}

	got := Dedupe(items)
	wantURLs := []string{"https://a.example/1", "https://a.example/2", "https://a.example/3"}
	if len(got) != len(wantURLs) {
		t.Fatalf("got %d items, want %d", len(got), len(wantURLs))
	}
	for i, u := range wantURLs {
		if got[i].URL != u {
			t.Fatalf("item %d: URL %q, want %q", i, got[i].URL, u)
		}
	}
	if got[0].Title != "first" {
		t.Fatalf("first occurrence must win, got %q", got[0].Title)
	}
}

func TestFilterLookback(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	items := []domain.NewsItem{
		{URL: "fresh", Published: now.AddDate(0, 0, -2).Format(time.RFC3339)},
		{URL: "stale", Published: now.AddDate(0, 0, -10).Format(time.RFC3339)},
		{URL: "undated"},
		{URL: "unparseable", Published: "around teatime"},
		{URL: "boundary", Published: now.AddDate(0, 0, -7).Add(time.Hour).Format(time.RFC3339)},
	}

	got := FilterLookback(items, 7, now)
	wantURLs := []string{"fresh", "undated", "unparseable", "boundary"}
	if len(got) != len(wantURLs) {
		t.Fatalf("got %d items, want %d: %+v", len(got), len(wantURLs), got)
	}
	for i, u := range wantURLs {
		if got[i].URL != u {
			t.Fatalf("item %d: URL %q, want %q", i, got[i].URL, u)
		}
	}
}

func TestFilterLookbackDisabled(t *testing.T) {
	t.Parallel()

	items := []domain.NewsItem{
		{URL: "ancient", Published: "Mon, 01 Jan 1990 00:00:00 +0000"},
	}
	if got := FilterLookback(items, 0, time.Now()); len(got) != 1 {
		t.Fatalf("disabled filter must keep everything, got %d items", len(got))
	}
}
