package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// SourceType distinguishes the two supported content origins.
type SourceType string

const (
	SourceTypeFeed    SourceType = "feed"
	SourceTypeJSONAPI SourceType = "json-api"
)

// ConfigSet is a named digest job definition. Created and edited by the
// admin layer; the run engine reads it only.
type ConfigSet struct {
	ID             int64
	Name           string
	Enabled        bool
	ScheduleCron   string // comma-joined set of allow-listed cron strings
	Prompt         string
	RecipientsJSON string
	WebSearch      bool
}

// Recipients decodes the stored recipient list. Lists written by older
// admin tooling may use single quotes; those are converted before giving up.
func (c ConfigSet) Recipients() []string {
	var out []string
	if err := json.Unmarshal([]byte(c.RecipientsJSON), &out); err == nil {
		return out
	}
	converted := strings.ReplaceAll(c.RecipientsJSON, "'", `"`)
	if err := json.Unmarshal([]byte(converted), &out); err == nil {
		return out
	}
	return nil
}

// Source is one content origin a ConfigSet draws items from.
type Source struct {
	ID              int64
	Name            string
	Type            SourceType
	URL             string
	ItemsPath       string // dot path into a json-api payload; empty = root
	Enabled         bool
	LastTestedAt    *time.Time
	LastTestStatus  string
	LastTestMessage string
	CreatedAt       time.Time
}

// Label names the source in progress messages, falling back to its URL.
func (s Source) Label() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return s.URL
}

// NewsItem is one normalized article. It is ephemeral: produced by the
// source fetchers, consumed by the filter, summarizer, and renderer, and
// never persisted.
type NewsItem struct {
	Title     string
	URL       string
	Published string // raw date string as the source reported it
	Summary   string
}

var publishedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// PublishedTime parses the raw published string best-effort. The second
// return reports whether the date was parseable; callers must keep items
// whose date cannot be judged.
func (n NewsItem) PublishedTime() (time.Time, bool) {
	raw := strings.TrimSpace(n.Published)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
