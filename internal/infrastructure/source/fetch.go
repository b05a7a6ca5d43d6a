// Package source implements the per-source item fetchers: web feeds
// (RSS/Atom) and JSON APIs. Each fetch is bounded by a configured timeout
// and an item cap, and reports how many items the source offered versus how
// many were actually examined.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// maxBodyBytes bounds how much of a source document is read.
const maxBodyBytes = 10 << 20

func defaultClient() *http.Client {
	return &http.Client{}
}

// fetchBody GETs the URL within the fetcher's timeout and returns the raw
// payload. A deadline hit is reported as a timeout error naming the
// configured duration and the URL.
func fetchBody(ctx context.Context, client *http.Client, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, timeoutOr(ctx, err, url, timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("fetch failed: %s (%s)", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, timeoutOr(ctx, err, url, timeout)
	}
	return body, nil
}

func timeoutOr(ctx context.Context, err error, url string, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("source fetch timed out after %s: %s", timeout, url)
	}
	return fmt.Errorf("fetch %s: %w", url, err)
}

var collapseSpace = regexp.MustCompile(`\s+`)

// stripHTML flattens markup inside feed descriptions into plain text, so
// summaries reach the provider and renderer without tags.
func stripHTML(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") {
		return collapseSpace.ReplaceAllString(s, " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseSpace.ReplaceAllString(s, " ")
	}
	return strings.TrimSpace(collapseSpace.ReplaceAllString(doc.Text(), " "))
}
