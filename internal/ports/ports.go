package ports

import (
	"context"
	"time"

	"newsbot/internal/domain"
)

// FetchResult carries one source's contribution plus the counters used in
// progress reporting: Total is how many raw items the source reported,
// Processed how many were actually examined (capped by the item limit).
type FetchResult struct {
	Items     []domain.NewsItem
	Total     int
	Processed int
}

// SourceFetcher pulls and normalizes items from one source.
type SourceFetcher interface {
	Fetch(ctx context.Context, src domain.Source, limit int) (FetchResult, error)
}

// SummaryProvider is the polymorphic client over the AI backends.
type SummaryProvider interface {
	// Summarize joins the items into one textual block and issues a single
	// completion request with the config set's prompt.
	Summarize(ctx context.Context, items []domain.NewsItem, prompt string, auth domain.ProviderAuth) (string, error)
	// Chat issues one request with an explicit system instruction.
	Chat(ctx context.Context, system, user string, auth domain.ProviderAuth) (string, error)
	// Polish rewrites a digest prompt for clarity.
	Polish(ctx context.Context, prompt string, auth domain.ProviderAuth) (string, error)
	// InduceQuery derives a short web-search query from a digest prompt.
	InduceQuery(ctx context.Context, prompt string, auth domain.ProviderAuth) (string, error)
}

// Searcher finds additional items for the web-search augmentation stage.
type Searcher interface {
	Search(ctx context.Context, apiKey, query string, maxResults int) ([]domain.NewsItem, error)
}

// Email is one outbound message handed to the transport.
type Email struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends through the transactional-email provider and returns the
// provider's message id, the run's completion token. The API key is stored
// in global settings, so it travels with each call.
type Mailer interface {
	Send(ctx context.Context, apiKey string, msg Email) (string, error)
}

// RunStore persists runs and their ordered status history. Every status
// write after creation is guarded: it lands only while the run is still
// non-terminal and reports whether it did, so a reclaimed run can never be
// resurrected by a late writer.
type RunStore interface {
	CreateRun(ctx context.Context, configSetID int64, startedAt time.Time, status string) (int64, error)
	AppendRunStatus(ctx context.Context, runID int64, status string) (bool, error)
	CompleteRun(ctx context.Context, runID int64, itemCount int, emailID string) (bool, error)
	FailRun(ctx context.Context, runID int64, status, message string) (bool, error)
	ReclaimStaleRuns(ctx context.Context, olderThan time.Time, message string) (int64, error)
	ListRuns(ctx context.Context, limit, offset int) ([]domain.Run, error)
}

// ConfigStore reads config sets and their sources.
type ConfigStore interface {
	ConfigSetByID(ctx context.Context, id int64) (*domain.ConfigSet, error)
	EnabledConfigSets(ctx context.Context, cron string) ([]domain.ConfigSet, error)
	ConfigSources(ctx context.Context, configSetID int64) ([]domain.Source, error)
	UpdateSourceTest(ctx context.Context, sourceID int64, testedAt time.Time, status, message string) error
}

// SettingsStore reads the global settings singleton.
type SettingsStore interface {
	GlobalSettings(ctx context.Context) (*domain.GlobalSettings, error)
}

// Store aggregates the persistence surface the use cases consume.
type Store interface {
	RunStore
	ConfigStore
	SettingsStore
}

// Scheduler drives dispatch: it invokes job with the trigger cron string.
type Scheduler interface {
	Start(ctx context.Context, job func(cron string)) error
	Stop(ctx context.Context) error
}
