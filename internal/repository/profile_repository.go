package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/account-health/internal/scoring"
)

// ProfileRepository is the ledger of every weighting profile version ever
// loaded. A stored version is never rewritten.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Register records p. Registering the same (name, version) again is a no-op
// when the definition is unchanged and ErrInvalidProfile when it differs.
func (r *ProfileRepository) Register(ctx context.Context, p *scoring.WeightingProfile) error {
	definition, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile %s: %w", p.Ref(), err)
	}

	const insert = `
		INSERT OR IGNORE INTO weighting_profiles (name, version, definition, registered_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, insert, p.Name, p.Version, string(definition), formatTime(time.Now())); err != nil {
		return fmt.Errorf("exec RegisterProfile: %w", err)
	}

	var stored string
	const query = `SELECT definition FROM weighting_profiles WHERE name = ? AND version = ?`
	if err := r.db.QueryRowContext(ctx, query, p.Name, p.Version).Scan(&stored); err != nil {
		return fmt.Errorf("query RegisterProfile: %w", err)
	}
	if stored != string(definition) {
		return fmt.Errorf("%w: %s was already registered with a different definition; bump the version",
			scoring.ErrInvalidProfile, p.Ref())
	}
	return nil
}

// Get loads a stored profile version or ErrNotFound.
func (r *ProfileRepository) Get(ctx context.Context, name string, version int) (*scoring.WeightingProfile, error) {
	var definition string
	const query = `SELECT definition FROM weighting_profiles WHERE name = ? AND version = ?`
	err := r.db.QueryRowContext(ctx, query, name, version).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s@%d: %w", name, version, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query GetProfile: %w", err)
	}

	var p scoring.WeightingProfile
	if err := json.Unmarshal([]byte(definition), &p); err != nil {
		return nil, fmt.Errorf("decode profile %s@%d: %w", name, version, err)
	}
	return &p, nil
}
