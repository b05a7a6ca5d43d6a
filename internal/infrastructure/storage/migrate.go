package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations run in order exactly once each; schema_migrations records the
// applied versions. Entries are append-only.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS config_set (
        id BIGSERIAL PRIMARY KEY,
        name TEXT NOT NULL DEFAULT '',
        enabled BOOLEAN NOT NULL DEFAULT TRUE,
        schedule_cron TEXT NOT NULL DEFAULT '',
        prompt TEXT NOT NULL DEFAULT '',
        recipients TEXT NOT NULL DEFAULT '[]',
        web_search BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE TABLE IF NOT EXISTS source (
        id BIGSERIAL PRIMARY KEY,
        name TEXT NOT NULL DEFAULT '',
        type TEXT NOT NULL,
        url TEXT NOT NULL,
        items_path TEXT NOT NULL DEFAULT '',
        enabled BOOLEAN NOT NULL DEFAULT TRUE,
        last_tested_at TIMESTAMPTZ,
        last_test_status TEXT NOT NULL DEFAULT '',
        last_test_message TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE TABLE IF NOT EXISTS config_set_source (
        config_set_id BIGINT NOT NULL REFERENCES config_set(id) ON DELETE CASCADE,
        source_id BIGINT NOT NULL REFERENCES source(id) ON DELETE CASCADE,
        position INT NOT NULL DEFAULT 0,
        PRIMARY KEY (config_set_id, source_id)
    )`,
	`CREATE TABLE IF NOT EXISTS global_settings (
        id INT PRIMARY KEY,
        resend_api_key TEXT NOT NULL DEFAULT '',
        provider TEXT NOT NULL DEFAULT 'gemini',
        provider_api_key TEXT NOT NULL DEFAULT '',
        model TEXT NOT NULL DEFAULT '',
        default_sender TEXT NOT NULL DEFAULT '',
        source_items_limit INT NOT NULL DEFAULT 0,
        source_lookback_days INT NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS run (
        id BIGSERIAL PRIMARY KEY,
        config_set_id BIGINT NOT NULL,
        started_at TIMESTAMPTZ NOT NULL,
        finished_at TIMESTAMPTZ,
        status TEXT NOT NULL,
        item_count INT NOT NULL DEFAULT 0,
        error_message TEXT NOT NULL DEFAULT '',
        email_id TEXT NOT NULL DEFAULT ''
    )`,
	`CREATE TABLE IF NOT EXISTS run_status (
        run_id BIGINT NOT NULL REFERENCES run(id) ON DELETE CASCADE,
        seq INT NOT NULL,
        status TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        PRIMARY KEY (run_id, seq)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_run_started_at ON run (started_at DESC)`,
	`ALTER TABLE global_settings ADD COLUMN IF NOT EXISTS admin_email TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE global_settings ADD COLUMN IF NOT EXISTS tavily_api_key TEXT NOT NULL DEFAULT ''`,
}

// Migrate brings the schema up to the current version. Safe to run at every
// process start.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}
	return nil
}
