// Package aggregate merges the per-source item lists into the final digest
// input: exact-URL deduplication followed by the optional lookback filter.
package aggregate

import (
	"time"

	"newsbot/internal/domain"
)

// Dedupe removes later duplicates keyed by exact URL string in a single
// pass; the first occurrence wins and input order is preserved.
func Dedupe(items []domain.NewsItem) []domain.NewsItem {
	seen := make(map[string]bool, len(items))
	out := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		if item.URL == "" || seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		out = append(out, item)
	}
	return out
}

// FilterLookback drops items whose published date parses and is older than
// now minus lookbackDays. Items without a parseable date cannot be judged
// stale and are retained. A non-positive lookback disables the filter.
func FilterLookback(items []domain.NewsItem, lookbackDays int, now time.Time) []domain.NewsItem {
	if lookbackDays <= 0 {
		return items
	}
	cutoff := now.AddDate(0, 0, -lookbackDays)
	out := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		published, ok := item.PublishedTime()
		if ok && published.Before(cutoff) {
			continue
		}
		out = append(out, item)
	}
	return out
}
