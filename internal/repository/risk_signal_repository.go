package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/godilite/account-health/internal/scoring"
)

const riskColumns = `
	r.id, r.account_id, r.type, r.severity, r.status, r.details,
	r.detected_at, r.acknowledged_at, r.resolved_at, r.outcome, r.notes
`

type RiskSignalRepository struct {
	db *sql.DB
}

func NewRiskSignalRepository(db *sql.DB) *RiskSignalRepository {
	return &RiskSignalRepository{db: db}
}

// Create stores s unless an unresolved signal of the same type is already
// open for the account, in which case it returns false.
func (r *RiskSignalRepository) Create(ctx context.Context, s scoring.RiskSignal) (bool, error) {
	const query = `
		INSERT OR IGNORE INTO risk_signals
			(id, account_id, type, severity, status, details, detected_at,
			 acknowledged_at, resolved_at, outcome, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		s.ID, s.AccountID, string(s.Type), string(s.Severity), string(s.Status), s.Details,
		formatTime(s.DetectedAt), nullTime(s.AcknowledgedAt), nullTime(s.ResolvedAt), s.Outcome, s.Notes)
	if err != nil {
		return false, fmt.Errorf("exec CreateRiskSignal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows CreateRiskSignal: %w", err)
	}
	return n == 1, nil
}

// Get returns one signal by ID or ErrNotFound.
func (r *RiskSignalRepository) Get(ctx context.Context, id string) (scoring.RiskSignal, error) {
	query := `SELECT ` + riskColumns + ` FROM risk_signals AS r WHERE r.id = ?`
	s, err := scanRiskSignal(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("risk signal %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return s, fmt.Errorf("query GetRiskSignal: %w", err)
	}
	return s, nil
}

// ListOpen returns unresolved signals, newest first. accountID narrows to one
// account, ownerID to one owner's accounts; both empty lists everything.
func (r *RiskSignalRepository) ListOpen(ctx context.Context, accountID, ownerID string) ([]scoring.RiskSignal, error) {
	query := `SELECT ` + riskColumns + `
		FROM risk_signals AS r
		LEFT JOIN accounts AS a ON a.id = r.account_id
		WHERE r.status <> 'resolved'
			AND (? = '' OR r.account_id = ?)
			AND (? = '' OR a.owner_id = ?)
		ORDER BY r.detected_at DESC, r.id`
	rows, err := r.db.QueryContext(ctx, query, accountID, accountID, ownerID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query ListOpenRiskSignals: %w", err)
	}
	defer rows.Close()

	var out []scoring.RiskSignal
	for rows.Next() {
		s, err := scanRiskSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ListOpenRiskSignals row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListOpenRiskSignals: %w", err)
	}
	return out, nil
}

// Update writes the lifecycle fields of s if the stored status still equals
// from. Otherwise it returns ErrConflict.
func (r *RiskSignalRepository) Update(ctx context.Context, s scoring.RiskSignal, from scoring.RiskStatus) error {
	const query = `
		UPDATE risk_signals
		SET status = ?, acknowledged_at = ?, resolved_at = ?, outcome = ?, notes = ?
		WHERE id = ? AND status = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		string(s.Status), nullTime(s.AcknowledgedAt), nullTime(s.ResolvedAt), s.Outcome, s.Notes,
		s.ID, string(from))
	if err != nil {
		return fmt.Errorf("exec UpdateRiskSignal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows UpdateRiskSignal: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("risk signal %s no longer %s: %w", s.ID, from, ErrConflict)
	}
	return nil
}

func scanRiskSignal(row rowScanner) (scoring.RiskSignal, error) {
	var (
		s                      scoring.RiskSignal
		typ, severity, status  string
		detected               string
		acknowledged, resolved sql.NullString
	)
	err := row.Scan(&s.ID, &s.AccountID, &typ, &severity, &status, &s.Details,
		&detected, &acknowledged, &resolved, &s.Outcome, &s.Notes)
	if err != nil {
		return s, err
	}
	s.Type = scoring.RiskType(typ)
	s.Severity = scoring.Severity(severity)
	s.Status = scoring.RiskStatus(status)
	if s.DetectedAt, err = parseTime(detected); err != nil {
		return s, err
	}
	if s.AcknowledgedAt, err = parseNullTime(acknowledged); err != nil {
		return s, err
	}
	if s.ResolvedAt, err = parseNullTime(resolved); err != nil {
		return s, err
	}
	return s, nil
}
