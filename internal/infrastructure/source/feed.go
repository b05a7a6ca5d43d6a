package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"newsbot/internal/domain"
	"newsbot/internal/ports"
)

const untitled = "Untitled"

// FeedFetcher parses web feeds: RSS (channel/item) first, Atom (feed/entry)
// as the fallback when the document carries no RSS items.
type FeedFetcher struct {
	client  *http.Client
	timeout time.Duration
}

var _ ports.SourceFetcher = (*FeedFetcher)(nil)

// NewFeedFetcher wires an HTTP client; a nil client gets a plain default.
// The timeout bounds each individual fetch.
func NewFeedFetcher(client *http.Client, timeout time.Duration) *FeedFetcher {
	if client == nil {
		client = defaultClient()
	}
	return &FeedFetcher{client: client, timeout: timeout}
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

type atomDocument struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// Fetch downloads and parses the source document, returning at most limit
// items in document order. Items without a resolvable URL are dropped but
// still count as processed.
func (f *FeedFetcher) Fetch(ctx context.Context, src domain.Source, limit int) (ports.FetchResult, error) {
	body, err := fetchBody(ctx, f.client, src.URL, f.timeout)
	if err != nil {
		return ports.FetchResult{}, err
	}

	var rss rssDocument
	rssErr := xml.Unmarshal(body, &rss)
	if rssErr == nil && len(rss.Channel.Items) > 0 {
		return capRSSItems(rss.Channel.Items, limit), nil
	}

	var atom atomDocument
	atomErr := xml.Unmarshal(body, &atom)
	if atomErr == nil && len(atom.Entries) > 0 {
		return capAtomEntries(atom.Entries, limit), nil
	}

	if rssErr != nil && atomErr != nil {
		return ports.FetchResult{}, fmt.Errorf("parse feed %s: %w", src.URL, rssErr)
	}

	// Well-formed document with no recognizable items.
	return ports.FetchResult{}, nil
}

func capRSSItems(raw []rssItem, limit int) ports.FetchResult {
	result := ports.FetchResult{Total: len(raw)}
	for _, item := range raw {
		if result.Processed >= limit {
			break
		}
		result.Processed++

		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		result.Items = append(result.Items, domain.NewsItem{
			Title:     titleOrDefault(item.Title),
			URL:       link,
			Published: strings.TrimSpace(item.PubDate),
			Summary:   stripHTML(item.Description),
		})
	}
	return result
}

func capAtomEntries(raw []atomEntry, limit int) ports.FetchResult {
	result := ports.FetchResult{Total: len(raw)}
	for _, entry := range raw {
		if result.Processed >= limit {
			break
		}
		result.Processed++

		link := entryLink(entry.Links)
		if link == "" {
			continue
		}

		published := strings.TrimSpace(entry.Published)
		if published == "" {
			published = strings.TrimSpace(entry.Updated)
		}

		summary := strings.TrimSpace(entry.Summary)
		if summary == "" {
			summary = strings.TrimSpace(entry.Content)
		}

		result.Items = append(result.Items, domain.NewsItem{
			Title:     titleOrDefault(entry.Title),
			URL:       link,
			Published: published,
			Summary:   stripHTML(summary),
		})
	}
	return result
}

// entryLink resolves an Atom entry's URL: prefer the rel="alternate" link,
// else the first link carrying an href.
func entryLink(links []atomLink) string {
	var url string
	for _, link := range links {
		href := strings.TrimSpace(link.Href)
		if href == "" {
			continue
		}
		if link.Rel == "alternate" {
			return href
		}
		if url == "" {
			url = href
		}
	}
	return url
}

func titleOrDefault(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return untitled
	}
	return title
}
