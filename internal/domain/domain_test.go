package domain

import "testing"

func TestRecipients(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		json string
		want []string
	}{
		{"plain", `["a@example.com","b@example.com"]`, []string{"a@example.com", "b@example.com"}},
		{"single quotes", `['a@example.com']`, []string{"a@example.com"}},
		{"garbage", `not json`, nil},
		{"empty array", `[]`, []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ConfigSet{RecipientsJSON: tc.json}.Recipients()
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("recipient %d: got %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestPublishedTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		ok   bool
		year int
	}{
		{"Wed, 03 May 2023 15:04:05 +0000", true, 2023},
		{"2024-02-29T12:00:00Z", true, 2024},
		{"2021-07-01", true, 2021},
		{"", false, 0},
		{"yesterday-ish", false, 0},
	}

	for _, tc := range cases {
		got, ok := NewsItem{Published: tc.raw}.PublishedTime()
		if ok != tc.ok {
			t.Fatalf("%q: parseable = %v, want %v", tc.raw, ok, tc.ok)
		}
		if ok && got.Year() != tc.year {
			t.Fatalf("%q: year = %d, want %d", tc.raw, got.Year(), tc.year)
		}
	}
}

func TestIsTerminalStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"sent", "success", "error", "failed", "cancelled"} {
		if !IsTerminalStatus(s) {
			t.Fatalf("%q should be terminal", s)
		}
	}
	for _, s := range []string{"", "Starting run", "Summarizing content", "SENT"} {
		if IsTerminalStatus(s) {
			t.Fatalf("%q should not be terminal", s)
		}
	}
}

func TestItemsLimitFallback(t *testing.T) {
	t.Parallel()

	if got := (GlobalSettings{}).ItemsLimit(); got != 20 {
		t.Fatalf("default limit = %d, want 20", got)
	}
	if got := (GlobalSettings{SourceItemsLimit: -3}).ItemsLimit(); got != 20 {
		t.Fatalf("negative limit = %d, want 20", got)
	}
	if got := (GlobalSettings{SourceItemsLimit: 5}).ItemsLimit(); got != 5 {
		t.Fatalf("explicit limit = %d, want 5", got)
	}
}

func TestResolvedModel(t *testing.T) {
	t.Parallel()

	auth := ProviderAuth{Provider: ProviderGemini}
	if got := auth.ResolvedModel(); got != "gemini-2.0-flash" {
		t.Fatalf("default model = %q", got)
	}
	auth.Model = "gemini-exp"
	if got := auth.ResolvedModel(); got != "gemini-exp" {
		t.Fatalf("override model = %q", got)
	}
}
