package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"newsbot/internal/domain"
	"newsbot/internal/ports"
)

// JSONAPIFetcher pulls items from a JSON endpoint, navigating to the
// source's configured dot path (the payload root when unset). The value at
// the path must be an array.
type JSONAPIFetcher struct {
	client  *http.Client
	timeout time.Duration
}

var _ ports.SourceFetcher = (*JSONAPIFetcher)(nil)

// NewJSONAPIFetcher wires an HTTP client; a nil client gets a plain default.
func NewJSONAPIFetcher(client *http.Client, timeout time.Duration) *JSONAPIFetcher {
	if client == nil {
		client = defaultClient()
	}
	return &JSONAPIFetcher{client: client, timeout: timeout}
}

// Fetch downloads the payload and maps each array element's
// title/url-or-link/published_at/summary fields with string coercion.
// Elements without a URL are dropped but still count as processed.
func (f *JSONAPIFetcher) Fetch(ctx context.Context, src domain.Source, limit int) (ports.FetchResult, error) {
	body, err := fetchBody(ctx, f.client, src.URL, f.timeout)
	if err != nil {
		return ports.FetchResult{}, err
	}

	if !gjson.ValidBytes(body) {
		return ports.FetchResult{}, fmt.Errorf("invalid JSON from %s", src.URL)
	}

	value := gjson.ParseBytes(body)
	if path := strings.TrimSpace(src.ItemsPath); path != "" {
		value = value.Get(path)
	}

	if !value.IsArray() {
		return ports.FetchResult{}, fmt.Errorf("API response did not return an array for %s", src.URL)
	}

	elements := value.Array()
	result := ports.FetchResult{Total: len(elements)}
	for _, el := range elements {
		if result.Processed >= limit {
			break
		}
		result.Processed++

		url := el.Get("url").String()
		if url == "" {
			url = el.Get("link").String()
		}
		if url == "" {
			continue
		}

		result.Items = append(result.Items, domain.NewsItem{
			Title:     titleOrDefault(el.Get("title").String()),
			URL:       url,
			Published: el.Get("published_at").String(),
			Summary:   el.Get("summary").String(),
		})
	}
	return result, nil
}
