package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/godilite/account-health/internal/scoring"
)

type SignalRepository struct {
	db *sql.DB
}

func NewSignalRepository(db *sql.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Append stores signals in one transaction. Signals whose
// (account_id, component, observed_at) already exists are skipped, so
// re-delivering a batch is harmless. It returns the number of new rows.
func (r *SignalRepository) Append(ctx context.Context, signals []scoring.Signal) (int, error) {
	const query = `
		INSERT OR IGNORE INTO signals
			(account_id, component, raw_value, normalized_value, observed_at, source, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin AppendSignals: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare AppendSignals: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	inserted := 0
	for _, s := range signals {
		res, err := stmt.ExecContext(ctx, s.AccountID, string(s.Component), s.RawValue,
			s.NormalizedValue, formatTime(s.ObservedAt), s.Source, now)
		if err != nil {
			return 0, fmt.Errorf("exec AppendSignals: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows AppendSignals: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit AppendSignals: %w", err)
	}
	return inserted, nil
}

// Latest returns the most recent signal per component for accountID observed
// at or before asOf.
func (r *SignalRepository) Latest(ctx context.Context, accountID string, asOf time.Time) ([]scoring.Signal, error) {
	const query = `
		SELECT s.account_id, s.component, s.raw_value, s.normalized_value, s.observed_at, s.source
		FROM signals AS s
		JOIN (
			SELECT component, MAX(observed_at) AS observed_at
			FROM signals
			WHERE account_id = ? AND observed_at <= ?
			GROUP BY component
		) AS latest ON s.component = latest.component AND s.observed_at = latest.observed_at
		WHERE s.account_id = ?
		ORDER BY s.component
	`
	return r.query(ctx, "LatestSignals", query, accountID, formatTime(asOf), accountID)
}

// List returns the signals of one component for accountID observed in
// [from, to], oldest first.
func (r *SignalRepository) List(ctx context.Context, accountID string, component scoring.Component, from, to time.Time) ([]scoring.Signal, error) {
	const query = `
		SELECT account_id, component, raw_value, normalized_value, observed_at, source
		FROM signals
		WHERE account_id = ? AND component = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at
	`
	return r.query(ctx, "ListSignals", query, accountID, string(component), formatTime(from), formatTime(to))
}

func (r *SignalRepository) query(ctx context.Context, op, query string, args ...any) ([]scoring.Signal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	defer rows.Close()

	var out []scoring.Signal
	for rows.Next() {
		var (
			s         scoring.Signal
			component string
			observed  string
		)
		if err := rows.Scan(&s.AccountID, &component, &s.RawValue, &s.NormalizedValue, &observed, &s.Source); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", op, err)
		}
		s.Component = scoring.Component(component)
		if s.ObservedAt, err = parseTime(observed); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", op, err)
	}
	return out, nil
}
