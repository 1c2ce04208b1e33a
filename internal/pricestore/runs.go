package pricestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "run_id, status, set_filter, card_filter, processed, found, not_found, manual_preserved, manual_orphaned, sets_processed, sets_skipped, alias_failures, write_failures, error_message, started_at, finished_at"

// StartRun records a run in the running state.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id required")
	}
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO sync_runs (run_id, status, set_filter, card_filter, started_at)
        VALUES (?, ?, ?, ?, ?)`),
		run.ID,
		string(RunRunning),
		nullableString(run.SetFilter),
		nullableString(run.CardFilter),
		formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun stores the final status and counters of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE sync_runs SET
            status = ?, processed = ?, found = ?, not_found = ?, manual_preserved = ?,
            manual_orphaned = ?, sets_processed = ?, sets_skipped = ?, alias_failures = ?,
            write_failures = ?, error_message = ?, finished_at = ?
        WHERE run_id = ?`),
		string(run.Status),
		run.Processed,
		run.Found,
		run.NotFound,
		run.ManualPreserved,
		run.ManualOrphaned,
		run.SetsProcessed,
		run.SetsSkipped,
		run.AliasFailures,
		run.WriteFailures,
		nullableString(run.ErrorMessage),
		formatTime(finished),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: run %s not found", run.ID)
	}
	return nil
}

// GetRun returns a run by id, or nil when it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+runColumns+` FROM sync_runs WHERE run_id = ?`), id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+runColumns+` FROM sync_runs ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run        Run
		status     string
		setFilter  sql.NullString
		cardFilter sql.NullString
		errMsg     sql.NullString
		started    dbTime
		finished   dbTime
	)
	if err := scanner.Scan(
		&run.ID,
		&status,
		&setFilter,
		&cardFilter,
		&run.Processed,
		&run.Found,
		&run.NotFound,
		&run.ManualPreserved,
		&run.ManualOrphaned,
		&run.SetsProcessed,
		&run.SetsSkipped,
		&run.AliasFailures,
		&run.WriteFailures,
		&errMsg,
		&started,
		&finished,
	); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.SetFilter = setFilter.String
	run.CardFilter = cardFilter.String
	run.ErrorMessage = errMsg.String
	run.StartedAt = started.Time
	run.FinishedAt = finished.ptr()
	return &run, nil
}
