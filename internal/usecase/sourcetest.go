package usecase

import (
	"context"
	"fmt"

	"newsbot/internal/domain"
)

const sourceTestSampleSize = 3

// SourceTestResult reports a connectivity test against one source.
type SourceTestResult struct {
	Success     bool
	ItemCount   int
	SampleItems []domain.NewsItem
	Error       string
}

// TestSource fetches from a source once and reports what came back. For a
// stored source (non-zero id) the outcome is also persisted; persistence
// problems are logged, not surfaced, since the fetch itself is the answer.
func (r *Runner) TestSource(ctx context.Context, src domain.Source) SourceTestResult {
	result := r.fetchSample(ctx, src)

	if src.ID != 0 {
		status := "ok"
		message := fmt.Sprintf("Fetched %d items", result.ItemCount)
		if !result.Success {
			status = "error"
			message = result.Error
		}
		if err := r.store.UpdateSourceTest(ctx, src.ID, r.now(), status, message); err != nil {
			r.log.Warn("persisting source test outcome failed", "source_id", src.ID, "error", err)
		}
	}
	return result
}

func (r *Runner) fetchSample(ctx context.Context, src domain.Source) SourceTestResult {
	fetcher, ok := r.fetchers[src.Type]
	if !ok {
		return SourceTestResult{Error: fmt.Sprintf("unsupported source type: %s", src.Type)}
	}

	limit := domain.GlobalSettings{}.ItemsLimit()
	if settings, err := r.store.GlobalSettings(ctx); err == nil {
		limit = settings.ItemsLimit()
	}

	res, err := fetcher.Fetch(ctx, src, limit)
	if err != nil {
		return SourceTestResult{Error: err.Error()}
	}

	samples := res.Items
	if len(samples) > sourceTestSampleSize {
		samples = samples[:sourceTestSampleSize]
	}
	return SourceTestResult{
		Success:     true,
		ItemCount:   len(res.Items),
		SampleItems: samples,
	}
}
