// Package storage persists config sets, sources, settings, and runs in
// Postgres. Runs keep an append-only status history in run_status; terminal
// transitions are guarded so a reclaimed run is never overwritten.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"newsbot/internal/domain"
	"newsbot/internal/ports"
)

// Store implements ports.Store on a Postgres connection pool.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.Store = (*Store)(nil)

// NewStore wires a sql.DB. Callers run Migrate before first use.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreateRun inserts a run with its first history entry in one transaction.
func (s *Store) CreateRun(ctx context.Context, configSetID int64, startedAt time.Time, status string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := s.sb.Insert("run").
		Columns("config_set_id", "started_at", "status").
		Values(configSetID, startedAt, status).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build create run: %w", err)
	}

	var runID int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&runID); err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	if err := s.appendStatusTx(ctx, tx, runID, status); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create run: %w", err)
	}
	return runID, nil
}

// AppendRunStatus records a progress entry and mirrors it into run.status.
// Like the terminal writes it is guarded: once a run is terminal (for
// example reclaimed mid-flight) the append does not land, and the return
// tells the caller to stop.
func (s *Store) AppendRunStatus(ctx context.Context, runID int64, status string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin append status: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := s.sb.Update("run").
		Set("status", status).
		Where(sq.Eq{"id": runID}).
		Where(sq.NotEq{"status": domain.TerminalStatuses}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build status update: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update run status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("status update rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if err := s.appendStatusTx(ctx, tx, runID, status); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit append status: %w", err)
	}
	return true, nil
}

func (s *Store) appendStatusTx(ctx context.Context, tx *sql.Tx, runID int64, status string) error {
	// seq is assigned inside the same transaction, so history order matches
	// append order even under concurrent writers.
	query := `INSERT INTO run_status (run_id, seq, status)
              SELECT $1, COALESCE(MAX(seq), 0) + 1, $2
              FROM run_status WHERE run_id = $1`
	if _, err := tx.ExecContext(ctx, query, runID, status); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// CompleteRun marks the run sent. The write is guarded on the run still
// being non-terminal; the return reports whether it landed.
func (s *Store) CompleteRun(ctx context.Context, runID int64, itemCount int, emailID string) (bool, error) {
	return s.finishRun(ctx, runID, domain.StatusSent, func(b sq.UpdateBuilder) sq.UpdateBuilder {
		return b.Set("item_count", itemCount).Set("email_id", emailID)
	})
}

// FailRun marks the run failed with the given terminal status and message,
// guarded the same way as CompleteRun.
func (s *Store) FailRun(ctx context.Context, runID int64, status, message string) (bool, error) {
	return s.finishRun(ctx, runID, status, func(b sq.UpdateBuilder) sq.UpdateBuilder {
		return b.Set("error_message", message)
	})
}

func (s *Store) finishRun(ctx context.Context, runID int64, status string, extra func(sq.UpdateBuilder) sq.UpdateBuilder) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin finish run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	builder := s.sb.Update("run").
		Set("status", status).
		Set("finished_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": runID}).
		Where(sq.NotEq{"status": domain.TerminalStatuses})
	query, args, err := extra(builder).ToSql()
	if err != nil {
		return false, fmt.Errorf("build finish run: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("finish run rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if err := s.appendStatusTx(ctx, tx, runID, status); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit finish run: %w", err)
	}
	return true, nil
}

// ReclaimStaleRuns fails every non-terminal run started at or before
// olderThan and
// returns how many were reclaimed. An error message already present on the
// run is preserved; the timeout message fills the gap otherwise.
func (s *Store) ReclaimStaleRuns(ctx context.Context, olderThan time.Time, message string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reclaim: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := s.sb.Select("id").
		From("run").
		Where(sq.LtOrEq{"started_at": olderThan}).
		Where(sq.NotEq{"status": domain.TerminalStatuses}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build stale select: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("select stale runs: %w", err)
	}
	var staleIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan stale id: %w", err)
		}
		staleIDs = append(staleIDs, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, fmt.Errorf("stale rows: %w", err)
	}
	_ = rows.Close()

	if len(staleIDs) == 0 {
		return 0, tx.Commit()
	}

	query, args, err = s.sb.Update("run").
		Set("status", domain.StatusFailed).
		Set("finished_at", sq.Expr("NOW()")).
		Set("error_message", sq.Expr("COALESCE(NULLIF(error_message, ''), ?)", message)).
		Where(sq.Expr("id = ANY(?)", pq.Int64Array(staleIDs))).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build reclaim update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("reclaim runs: %w", err)
	}
	for _, id := range staleIDs {
		if err := s.appendStatusTx(ctx, tx, id, domain.StatusFailed); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reclaim: %w", err)
	}
	return int64(len(staleIDs)), nil
}

type runRow struct {
	id           int64
	configSetID  int64
	configName   string
	startedAt    time.Time
	status       string
	history      pq.StringArray
	itemCount    int
	errorMessage string
	emailID      string
}

// ListRuns returns runs newest-first with their ordered status history.
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]domain.Run, error) {
	query, args, err := s.sb.Select(
		"r.id", "r.config_set_id", "COALESCE(c.name, '')",
		"r.started_at", "r.status",
		"COALESCE((SELECT array_agg(rs.status ORDER BY rs.seq) FROM run_status rs WHERE rs.run_id = r.id), '{}')",
		"r.item_count", "r.error_message", "r.email_id",
	).
		From("run r").
		LeftJoin("config_set c ON c.id = r.config_set_id").
		OrderBy("r.started_at DESC", "r.id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list runs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var raw []runRow
	for rows.Next() {
		var r runRow
		if err := rows.Scan(
			&r.id, &r.configSetID, &r.configName,
			&r.startedAt, &r.status, &r.history,
			&r.itemCount, &r.errorMessage, &r.emailID,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run rows: %w", err)
	}

	return lo.Map(raw, func(r runRow, _ int) domain.Run {
		return domain.Run{
			ID:            r.id,
			ConfigSetID:   r.configSetID,
			ConfigName:    r.configName,
			StartedAt:     r.startedAt,
			Status:        r.status,
			StatusHistory: []string(r.history),
			ItemCount:     r.itemCount,
			ErrorMessage:  r.errorMessage,
			EmailID:       r.emailID,
		}
	}), nil
}

const configSetColumns = "id, name, enabled, schedule_cron, prompt, recipients, web_search"

func scanConfigSet(row sq.RowScanner) (domain.ConfigSet, error) {
	var c domain.ConfigSet
	err := row.Scan(&c.ID, &c.Name, &c.Enabled, &c.ScheduleCron, &c.Prompt, &c.RecipientsJSON, &c.WebSearch)
	return c, err
}

// ConfigSetByID returns nil without error when the id is unknown.
func (s *Store) ConfigSetByID(ctx context.Context, id int64) (*domain.ConfigSet, error) {
	query, args, err := s.sb.Select(configSetColumns).
		From("config_set").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build config set query: %w", err)
	}

	c, err := scanConfigSet(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query config set %d: %w", id, err)
	}
	return &c, nil
}

// EnabledConfigSets returns the enabled config sets whose comma-joined
// schedule contains cron as an exact member. Matching is literal string
// membership, not cron-expression evaluation.
func (s *Store) EnabledConfigSets(ctx context.Context, cron string) ([]domain.ConfigSet, error) {
	query, args, err := s.sb.Select(configSetColumns).
		From("config_set").
		Where(sq.Eq{"enabled": true}).
		Where(sq.Expr("(',' || schedule_cron || ',') LIKE ('%,' || ? || ',%')", cron)).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build enabled query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query enabled config sets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.ConfigSet
	for rows.Next() {
		c, err := scanConfigSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan config set: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("config set rows: %w", err)
	}
	return out, nil
}

// ConfigSources returns the enabled sources linked to a config set, in link
// order.
func (s *Store) ConfigSources(ctx context.Context, configSetID int64) ([]domain.Source, error) {
	query, args, err := s.sb.Select(
		"s.id", "s.name", "s.type", "s.url", "s.items_path", "s.enabled",
		"s.last_tested_at", "s.last_test_status", "s.last_test_message", "s.created_at",
	).
		From("source s").
		Join("config_set_source cs ON cs.source_id = s.id").
		Where(sq.Eq{"cs.config_set_id": configSetID, "s.enabled": true}).
		OrderBy("cs.position", "s.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sources query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Source
	for rows.Next() {
		var (
			src      domain.Source
			testedAt sql.NullTime
		)
		if err := rows.Scan(
			&src.ID, &src.Name, &src.Type, &src.URL, &src.ItemsPath, &src.Enabled,
			&testedAt, &src.LastTestStatus, &src.LastTestMessage, &src.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if testedAt.Valid {
			t := testedAt.Time
			src.LastTestedAt = &t
		}
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source rows: %w", err)
	}
	return out, nil
}

// UpdateSourceTest records the outcome of a connectivity test.
func (s *Store) UpdateSourceTest(ctx context.Context, sourceID int64, testedAt time.Time, status, message string) error {
	query, args, err := s.sb.Update("source").
		Set("last_tested_at", testedAt).
		Set("last_test_status", status).
		Set("last_test_message", message).
		Where(sq.Eq{"id": sourceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build source test update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update source test: %w", err)
	}
	return nil
}

// GlobalSettings loads the singleton settings row; a missing row yields the
// zero value so callers see it as unconfigured rather than broken.
func (s *Store) GlobalSettings(ctx context.Context) (*domain.GlobalSettings, error) {
	query, args, err := s.sb.Select(
		"resend_api_key", "provider", "provider_api_key", "model",
		"default_sender", "admin_email", "tavily_api_key",
		"source_items_limit", "source_lookback_days",
	).
		From("global_settings").
		Where(sq.Eq{"id": 1}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build settings query: %w", err)
	}

	var g domain.GlobalSettings
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&g.ResendAPIKey, &g.Provider, &g.ProviderAPIKey, &g.Model,
		&g.DefaultSender, &g.AdminEmail, &g.TavilyAPIKey,
		&g.SourceItemsLimit, &g.SourceLookbackDays,
	)
	if err == sql.ErrNoRows {
		return &domain.GlobalSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query global settings: %w", err)
	}
	return &g, nil
}
