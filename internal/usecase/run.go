// Package usecase orchestrates digest runs: the per-run state machine, the
// scheduled dispatcher, and the auxiliary prompt and source operations.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"newsbot/internal/aggregate"
	"newsbot/internal/digest"
	"newsbot/internal/domain"
	"newsbot/internal/ports"
)

const (
	errMissingCredentials = "Global settings missing API keys or sender."
	webSearchMaxResults   = 10
)

// ErrRunReclaimed is returned when a status append finds the run already
// terminal: the reclaimer timed it out while it was still executing.
var ErrRunReclaimed = errors.New("run was reclaimed while in progress")

// RunnerDeps wires all driven adapters into the run engine.
type RunnerDeps struct {
	Store    ports.Store
	Fetchers map[domain.SourceType]ports.SourceFetcher
	Provider ports.SummaryProvider
	Searcher ports.Searcher
	Mailer   ports.Mailer
	Logger   *slog.Logger
	Now      func() time.Time
}

// Runner executes one config set end to end, recording every stage in the
// run's status history.
type Runner struct {
	store    ports.Store
	fetchers map[domain.SourceType]ports.SourceFetcher
	provider ports.SummaryProvider
	searcher ports.Searcher
	mailer   ports.Mailer
	log      *slog.Logger
	now      func() time.Time
}

// NewRunner constructs the run engine.
func NewRunner(deps RunnerDeps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		store:    deps.Store,
		fetchers: deps.Fetchers,
		provider: deps.Provider,
		searcher: deps.Searcher,
		mailer:   deps.Mailer,
		log:      logger,
		now:      now,
	}
}

// RunResult reports a finished run; HTML is the rendered digest body so a
// manual trigger can preview what was sent.
type RunResult struct {
	RunID int64
	HTML  string
}

// Execute runs one config set. Every stage appends a status entry; on
// failure the run is marked with terminal "error", a best-effort admin
// notification goes out, and the original error is returned. The terminal
// write is guarded, so a run already reclaimed stays reclaimed.
func (r *Runner) Execute(ctx context.Context, cs domain.ConfigSet) (RunResult, error) {
	startedAt := r.now()
	runID, err := r.store.CreateRun(ctx, cs.ID, startedAt, domain.StatusStarting)
	if err != nil {
		return RunResult{}, fmt.Errorf("create run: %w", err)
	}

	result, settings, err := r.execute(ctx, runID, cs)
	if err != nil {
		if errors.Is(err, ErrRunReclaimed) {
			// The reclaimer already closed this run; there is nothing to
			// record and nobody to notify.
			r.log.Warn("run reclaimed while in progress, aborting", "run_id", runID)
			return RunResult{RunID: runID}, err
		}
		r.failRun(ctx, runID, cs, settings, startedAt, err)
		return RunResult{RunID: runID}, err
	}
	return result, nil
}

// execute holds the happy path plus panic containment. It reports the
// settings it managed to load so the failure path can reuse them.
func (r *Runner) execute(ctx context.Context, runID int64, cs domain.ConfigSet) (result RunResult, settings *domain.GlobalSettings, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &panicError{value: rec, stack: string(debug.Stack())}
		}
	}()

	appendStatus := func(status string) error {
		landed, err := r.store.AppendRunStatus(ctx, runID, status)
		if err != nil {
			return fmt.Errorf("append status %q: %w", status, err)
		}
		if !landed {
			return ErrRunReclaimed
		}
		return nil
	}

	if err = appendStatus(domain.StatusSettings); err != nil {
		return RunResult{}, nil, err
	}
	settings, err = r.store.GlobalSettings(ctx)
	if err != nil {
		return RunResult{}, nil, fmt.Errorf("load global settings: %w", err)
	}
	if settings.ResendAPIKey == "" || settings.ProviderAPIKey == "" || settings.DefaultSender == "" {
		return RunResult{}, settings, errors.New(errMissingCredentials)
	}

	if err = appendStatus(domain.StatusSources); err != nil {
		return RunResult{}, settings, err
	}
	sources, err := r.store.ConfigSources(ctx, cs.ID)
	if err != nil {
		return RunResult{}, settings, fmt.Errorf("load sources: %w", err)
	}
	recipients := cs.Recipients()
	limit := settings.ItemsLimit()

	var (
		items     []domain.NewsItem
		reported  int
		processed int
	)
	for i, src := range sources {
		if err = appendStatus(fmt.Sprintf("Fetching from source [%s] (%d/%d, first %d items only)",
			src.Label(), i+1, len(sources), limit)); err != nil {
			return RunResult{}, settings, err
		}

		fetcher, ok := r.fetchers[src.Type]
		if !ok {
			r.log.Warn("skipping source with unsupported type",
				"source_id", src.ID, "type", string(src.Type))
			continue
		}
		res, fetchErr := fetcher.Fetch(ctx, src, limit)
		if fetchErr != nil {
			return RunResult{}, settings, fetchErr
		}

		items = append(items, res.Items...)
		reported += res.Total
		processed += res.Processed

		if err = appendStatus(fmt.Sprintf("%d items fetched so far (processed %d/%d source items total, limit %d per source)",
			len(items), processed, reported, limit)); err != nil {
			return RunResult{}, settings, err
		}
	}

	if cs.WebSearch && settings.TavilyAPIKey != "" {
		if err = appendStatus("Searching the web for additional articles"); err != nil {
			return RunResult{}, settings, err
		}
		items = append(items, r.webSearch(ctx, cs, settings)...)
	}

	if err = appendStatus(fmt.Sprintf("Deduplicating fetched items (%d fetched from %d/%d source items, limit %d per source)",
		len(items), processed, reported, limit)); err != nil {
		return RunResult{}, settings, err
	}
	deduped := aggregate.Dedupe(items)
	filtered := aggregate.FilterLookback(deduped, settings.SourceLookbackDays, r.now())
	lookbackLabel := ""
	if settings.SourceLookbackDays > 0 {
		lookbackLabel = fmt.Sprintf(", lookback %dd", settings.SourceLookbackDays)
	}
	if err = appendStatus(fmt.Sprintf("%d items after dedup/filter (from %d/%d source items, limit %d per source%s)",
		len(filtered), processed, reported, limit, lookbackLabel)); err != nil {
		return RunResult{}, settings, err
	}

	if err = appendStatus(domain.StatusSummarize); err != nil {
		return RunResult{}, settings, err
	}
	summary, err := r.provider.Summarize(ctx, filtered, cs.Prompt, settings.Auth())
	if err != nil {
		return RunResult{}, settings, fmt.Errorf("summarize: %w", err)
	}

	if err = appendStatus(domain.StatusRender); err != nil {
		return RunResult{}, settings, err
	}
	htmlBody := digest.RenderHTML(cs.Name, summary, filtered, r.now())
	textBody := digest.RenderText(cs.Name, summary, filtered, r.now())

	if err = appendStatus(fmt.Sprintf("Sending email to %d recipient(s)", len(recipients))); err != nil {
		return RunResult{}, settings, err
	}
	emailID, err := r.mailer.Send(ctx, settings.ResendAPIKey, ports.Email{
		From:    settings.DefaultSender,
		To:      recipients,
		Subject: "News Digest: " + cs.Name,
		HTML:    htmlBody,
		Text:    textBody,
	})
	if err != nil {
		return RunResult{}, settings, fmt.Errorf("send digest: %w", err)
	}

	landed, err := r.store.CompleteRun(ctx, runID, len(filtered), emailID)
	if err != nil {
		return RunResult{}, settings, fmt.Errorf("complete run: %w", err)
	}
	if !landed {
		r.log.Warn("run finished after being reclaimed, completion discarded", "run_id", runID)
	}
	return RunResult{RunID: runID, HTML: htmlBody}, settings, nil
}

// webSearch is the optional augmentation stage. It never fails the run: a
// bad query induction or search just means no extra items.
func (r *Runner) webSearch(ctx context.Context, cs domain.ConfigSet, settings *domain.GlobalSettings) []domain.NewsItem {
	if r.searcher == nil {
		return nil
	}
	query, err := r.provider.InduceQuery(ctx, cs.Prompt, settings.Auth())
	if err != nil {
		r.log.Warn("web search query induction failed, skipping stage",
			"config_set_id", cs.ID, "error", err)
		return nil
	}
	found, err := r.searcher.Search(ctx, settings.TavilyAPIKey, query, webSearchMaxResults)
	if err != nil {
		r.log.Warn("web search failed, skipping stage",
			"config_set_id", cs.ID, "query", query, "error", err)
		return nil
	}
	return found
}

// failRun records the terminal error and notifies the admin. Notification
// problems are logged and swallowed; the caller still returns runErr.
func (r *Runner) failRun(ctx context.Context, runID int64, cs domain.ConfigSet, settings *domain.GlobalSettings, startedAt time.Time, runErr error) {
	message := runErr.Error()
	stack := ""
	if pe, ok := runErr.(*panicError); ok {
		stack = pe.stack
	}

	landed, err := r.store.FailRun(ctx, runID, domain.StatusError, message)
	if err != nil {
		r.log.Error("recording run failure failed", "run_id", runID, "error", err)
	} else if !landed {
		r.log.Warn("run already terminal, failure not recorded", "run_id", runID)
	}
	r.log.Error("run failed", "run_id", runID, "config_set_id", cs.ID, "error", runErr)

	if settings == nil {
		settings, err = r.store.GlobalSettings(ctx)
		if err != nil {
			r.log.Warn("loading settings for failure notification failed", "run_id", runID, "error", err)
			return
		}
	}
	if settings.AdminEmail == "" || settings.ResendAPIKey == "" || settings.DefaultSender == "" {
		return
	}

	notice := digest.FailureNotice{
		RunID:        runID,
		ConfigID:     cs.ID,
		ConfigName:   cs.Name,
		StartedAt:    startedAt,
		FailedAt:     r.now(),
		ErrorMessage: message,
		Stack:        stack,
	}
	_, err = r.mailer.Send(ctx, settings.ResendAPIKey, ports.Email{
		From:    settings.DefaultSender,
		To:      []string{settings.AdminEmail},
		Subject: "NewsBot Run Failed: " + cs.Name,
		HTML:    digest.RenderFailureHTML(notice),
		Text:    digest.RenderFailureText(notice),
	})
	if err != nil {
		r.log.Error("failure notification failed", "run_id", runID, "error", err)
	}
}

// panicError wraps a recovered panic so the stack survives to the
// notification without leaking into the stored error message.
type panicError struct {
	value interface{}
	stack string
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
