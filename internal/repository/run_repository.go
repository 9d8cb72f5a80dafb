package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/godilite/account-health/internal/repository/models"
)

// RunRepository records batch runs and the accounts each run skipped.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Start(ctx context.Context, run models.BatchRun) error {
	const query = `INSERT INTO batch_runs (id, period, started_at, total) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, run.ID, run.Period, formatTime(run.StartedAt), run.Total); err != nil {
		return fmt.Errorf("exec StartRun: %w", err)
	}
	return nil
}

func (r *RunRepository) Finish(ctx context.Context, run models.BatchRun) error {
	const query = `
		UPDATE batch_runs
		SET finished_at = ?, total = ?, scored = ?, duplicates = ?, insufficient = ?, failed = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		nullTime(run.FinishedAt), run.Total, run.Scored, run.Duplicates, run.Insufficient, run.Failed, run.ID)
	if err != nil {
		return fmt.Errorf("exec FinishRun: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("batch run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

// RecordFailure stores why an account was skipped. A second failure for the
// same account in the same run replaces the first.
func (r *RunRepository) RecordFailure(ctx context.Context, f models.ScoreFailure) error {
	const query = `
		INSERT INTO score_failures (run_id, account_id, period, reason, error)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_id, account_id) DO UPDATE SET reason = excluded.reason, error = excluded.error
	`
	if _, err := r.db.ExecContext(ctx, query, f.RunID, f.AccountID, f.Period, string(f.Reason), f.Error); err != nil {
		return fmt.Errorf("exec RecordFailure: %w", err)
	}
	return nil
}

func (r *RunRepository) Get(ctx context.Context, id string) (models.BatchRun, error) {
	const query = `
		SELECT id, period, started_at, finished_at, total, scored, duplicates, insufficient, failed
		FROM batch_runs WHERE id = ?
	`
	var (
		run      models.BatchRun
		started  string
		finished sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&run.ID, &run.Period, &started, &finished,
		&run.Total, &run.Scored, &run.Duplicates, &run.Insufficient, &run.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("batch run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return run, fmt.Errorf("query GetRun: %w", err)
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return run, err
	}
	if run.FinishedAt, err = parseNullTime(finished); err != nil {
		return run, err
	}
	return run, nil
}

// Failures lists the accounts skipped by a run ordered by account ID.
func (r *RunRepository) Failures(ctx context.Context, runID string) ([]models.ScoreFailure, error) {
	const query = `
		SELECT run_id, account_id, period, reason, error
		FROM score_failures WHERE run_id = ?
		ORDER BY account_id
	`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query Failures: %w", err)
	}
	defer rows.Close()

	var out []models.ScoreFailure
	for rows.Next() {
		var (
			f      models.ScoreFailure
			reason string
		)
		if err := rows.Scan(&f.RunID, &f.AccountID, &f.Period, &reason, &f.Error); err != nil {
			return nil, fmt.Errorf("scan Failures row: %w", err)
		}
		f.Reason = models.FailureReason(reason)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate Failures: %w", err)
	}
	return out, nil
}
