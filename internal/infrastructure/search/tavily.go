// Package search implements the web-search augmentation client.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsbot/internal/domain"
	"newsbot/internal/ports"
)

const defaultBaseURL = "https://api.tavily.com"

// TavilyClient queries the Tavily search API and maps results to news items.
type TavilyClient struct {
	baseURL string
	client  *http.Client
}

var _ ports.Searcher = (*TavilyClient)(nil)

// NewTavilyClient wires an HTTP client; empty baseURL selects the real API.
func NewTavilyClient(client *http.Client, baseURL string) *TavilyClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &TavilyClient{baseURL: baseURL, client: client}
}

// Search issues one basic-depth search and returns up to maxResults items.
func (t *TavilyClient) Search(ctx context.Context, apiKey, query string, maxResults int) ([]domain.NewsItem, error) {
	body, err := json.Marshal(map[string]any{
		"query":          query,
		"max_results":    maxResults,
		"search_depth":   "basic",
		"include_answer": false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tavily search failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed struct {
		Results []struct {
			Title         string `json:"title"`
			URL           string `json:"url"`
			Content       string `json:"content"`
			PublishedDate string `json:"published_date"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}

	items := make([]domain.NewsItem, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		items = append(items, domain.NewsItem{
			Title:     r.Title,
			URL:       r.URL,
			Summary:   r.Content,
			Published: r.PublishedDate,
		})
	}
	return items, nil
}
