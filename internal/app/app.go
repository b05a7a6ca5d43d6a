// Package app wires configuration, storage, the outbound adapters, and the
// dispatcher into a runnable process.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"newsbot/internal/config"
	"newsbot/internal/domain"
	"newsbot/internal/infrastructure/email"
	"newsbot/internal/infrastructure/llm"
	"newsbot/internal/infrastructure/scheduler"
	"newsbot/internal/infrastructure/search"
	"newsbot/internal/infrastructure/source"
	"newsbot/internal/infrastructure/storage"
	"newsbot/internal/logging"
	"newsbot/internal/ports"
	"newsbot/internal/usecase"
)

// Application owns the process lifecycle around the dispatcher.
type Application struct {
	cfg        config.Config
	log        *slog.Logger
	db         *sql.DB
	dispatcher *usecase.Dispatcher
	driver     ports.Scheduler
}

// New connects to the database, migrates the schema, and wires everything.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := storage.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	store := storage.NewStore(db)

	fetchTimeout := time.Duration(cfg.Run.SourceFetchTimeoutSeconds) * time.Second
	runner := usecase.NewRunner(usecase.RunnerDeps{
		Store: store,
		Fetchers: map[domain.SourceType]ports.SourceFetcher{
			domain.SourceTypeFeed:    source.NewFeedFetcher(nil, fetchTimeout),
			domain.SourceTypeJSONAPI: source.NewJSONAPIFetcher(nil, fetchTimeout),
		},
		Provider: llm.NewClient(llm.Config{}),
		Searcher: search.NewTavilyClient(nil, ""),
		Mailer:   email.NewResendMailer(nil, ""),
		Logger:   baseLogger.With("component", "runner"),
	})

	dispatcher := usecase.NewDispatcher(usecase.DispatcherDeps{
		Store:      store,
		Runner:     runner,
		RunTimeout: time.Duration(cfg.Run.TimeoutMinutes) * time.Minute,
		Logger:     baseLogger.With("component", "dispatcher"),
	})

	return &Application{
		cfg:        cfg,
		log:        baseLogger,
		db:         db,
		dispatcher: dispatcher,
		driver:     scheduler.NewHourlyDriver(),
	}, nil
}

// Run starts the hourly schedule driver and blocks until ctx is cancelled,
// then waits for in-flight runs before returning.
func (a *Application) Run(ctx context.Context) error {
	err := a.driver.Start(ctx, func(cron string) {
		if err := a.dispatcher.Dispatch(ctx, cron); err != nil {
			a.log.Error("dispatch failed", "cron", cron, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.log.Info("scheduler started", "run_timeout_minutes", a.cfg.Run.TimeoutMinutes)

	<-ctx.Done()
	a.log.Info("shutting down, waiting for in-flight runs")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.driver.Stop(stopCtx); err != nil {
		a.log.Warn("scheduler stop", "error", err)
	}
	a.dispatcher.Wait()
	return nil
}

// RunOnce triggers one config set immediately and writes the rendered
// digest HTML to out, so the one-shot mode doubles as a preview.
func (a *Application) RunOnce(ctx context.Context, configSetID int64, out io.Writer) error {
	result, err := a.dispatcher.RunNow(ctx, configSetID)
	if err != nil {
		return err
	}
	a.log.Info("run finished", "run_id", result.RunID, "config_set_id", configSetID)
	if out != nil && result.HTML != "" {
		if _, err := io.WriteString(out, result.HTML); err != nil {
			return fmt.Errorf("write digest preview: %w", err)
		}
	}
	return nil
}

// Close releases the database pool.
func (a *Application) Close() error {
	return a.db.Close()
}
