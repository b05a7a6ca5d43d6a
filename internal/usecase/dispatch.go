package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"newsbot/internal/domain"
	"newsbot/internal/ports"
)

// ErrRunInProgress is returned when a manual trigger hits a config set that
// already has an active run in this process.
var ErrRunInProgress = errors.New("a run is already in progress for this config set")

// ErrConfigSetNotFound is returned by RunNow for an unknown config set id.
var ErrConfigSetNotFound = errors.New("config set not found")

// DispatcherDeps wires the dispatcher.
type DispatcherDeps struct {
	Store      ports.Store
	Runner     *Runner
	RunTimeout time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// Dispatcher fans scheduled triggers out to per-config runs, serves manual
// triggers, and reclaims stale runs before every entry point. The duplicate
// guard is advisory and process-local; the database guards terminal writes
// on its own.
type Dispatcher struct {
	store      ports.Store
	runner     *Runner
	runTimeout time.Duration
	log        *slog.Logger
	now        func() time.Time

	mu     sync.Mutex
	active map[int64]struct{}
	wg     sync.WaitGroup
}

// NewDispatcher constructs the dispatcher.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		store:      deps.Store,
		runner:     deps.Runner,
		runTimeout: deps.RunTimeout,
		log:        logger,
		now:        now,
		active:     make(map[int64]struct{}),
	}
}

// Dispatch launches a run for every enabled config set whose schedule
// contains the trigger cron string. Matching is literal membership. Each
// match runs in its own goroutine; failures are logged, never returned, and
// Wait observes their completion.
func (d *Dispatcher) Dispatch(ctx context.Context, cron string) error {
	d.reclaim(ctx)

	matches, err := d.store.EnabledConfigSets(ctx, cron)
	if err != nil {
		return fmt.Errorf("load config sets for %q: %w", cron, err)
	}
	d.log.Info("dispatching scheduled runs", "cron", cron, "matches", len(matches))

	// Launched runs must finish even if ctx is cancelled by shutdown: the
	// completion guarantee is fire-and-forget with no cancellation channel,
	// supervised only by Wait.
	runCtx := context.WithoutCancel(ctx)
	for _, cs := range matches {
		if !d.acquire(cs.ID) {
			d.log.Warn("skipping scheduled run, previous run still active",
				"config_set_id", cs.ID, "name", cs.Name)
			continue
		}
		d.wg.Add(1)
		go func(cs domain.ConfigSet) {
			defer d.wg.Done()
			defer d.release(cs.ID)
			if _, err := d.runner.Execute(runCtx, cs); err != nil {
				d.log.Error("scheduled run failed",
					"config_set_id", cs.ID, "name", cs.Name, "error", err)
			}
		}(cs)
	}
	return nil
}

// RunNow triggers one config set synchronously and returns its result.
func (d *Dispatcher) RunNow(ctx context.Context, configSetID int64) (RunResult, error) {
	d.reclaim(ctx)

	cs, err := d.store.ConfigSetByID(ctx, configSetID)
	if err != nil {
		return RunResult{}, fmt.Errorf("load config set %d: %w", configSetID, err)
	}
	if cs == nil {
		return RunResult{}, fmt.Errorf("config set %d: %w", configSetID, ErrConfigSetNotFound)
	}

	if !d.acquire(cs.ID) {
		return RunResult{}, ErrRunInProgress
	}
	defer d.release(cs.ID)

	return d.runner.Execute(ctx, *cs)
}

// ListRuns returns recent runs newest-first, reclaiming stale ones first so
// listings never show an abandoned run as live.
func (d *Dispatcher) ListRuns(ctx context.Context, limit, offset int) ([]domain.Run, error) {
	d.reclaim(ctx)
	return d.store.ListRuns(ctx, limit, offset)
}

// Wait blocks until all in-flight scheduled runs finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// reclaim force-fails runs that outlived the run timeout. Errors are logged
// and swallowed so a reclaim hiccup never blocks the entry point itself.
func (d *Dispatcher) reclaim(ctx context.Context) {
	minutes := int(d.runTimeout / time.Minute)
	message := fmt.Sprintf("Run timed out after %d minute(s).", minutes)
	n, err := d.store.ReclaimStaleRuns(ctx, d.now().Add(-d.runTimeout), message)
	if err != nil {
		d.log.Error("reclaiming stale runs failed", "error", err)
		return
	}
	if n > 0 {
		d.log.Warn("reclaimed stale runs", "count", n, "timeout_minutes", minutes)
	}
}

func (d *Dispatcher) acquire(configSetID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.active[configSetID]; busy {
		return false
	}
	d.active[configSetID] = struct{}{}
	return true
}

func (d *Dispatcher) release(configSetID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.active, configSetID)
}
