package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"newsbot/internal/app"
	"newsbot/internal/config"
	"newsbot/internal/logging"
)

func main() {
	runID := flag.Int64("run", 0, "run one config set by id and exit")
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = application.Close() }()

	if *runID != 0 {
		if err := application.RunOnce(ctx, *runID, os.Stdout); err != nil {
			logger.Error("run failed", "config_set_id", *runID, "error", err)
			os.Exit(1)
		}
		return
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
