package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/godilite/account-health/internal/repository/models"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Upsert creates the account or replaces its metadata.
func (r *AccountRepository) Upsert(ctx context.Context, a models.Account) error {
	const query = `
		INSERT INTO accounts (id, name, owner_id, tier, arr, renewal_date, contact_deadline, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			owner_id = excluded.owner_id,
			tier = excluded.tier,
			arr = excluded.arr,
			renewal_date = excluded.renewal_date,
			contact_deadline = excluded.contact_deadline,
			updated_at = excluded.updated_at
	`
	updated := a.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Name, a.OwnerID, a.Tier, a.ARR.String(),
		nullTime(a.RenewalDate), nullTime(a.ContactDeadline), formatTime(updated))
	if err != nil {
		return fmt.Errorf("exec UpsertAccount: %w", err)
	}
	return nil
}

// Get fetches one account or ErrNotFound.
func (r *AccountRepository) Get(ctx context.Context, id string) (models.Account, error) {
	const query = `
		SELECT id, name, owner_id, tier, arr, renewal_date, contact_deadline, updated_at
		FROM accounts WHERE id = ?
	`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("query GetAccount: %w", err)
	}
	return a, nil
}

// List returns the accounts of ownerID ordered by ID, or every account when
// ownerID is empty.
func (r *AccountRepository) List(ctx context.Context, ownerID string) ([]models.Account, error) {
	const query = `
		SELECT id, name, owner_id, tier, arr, renewal_date, contact_deadline, updated_at
		FROM accounts
		WHERE ? = '' OR owner_id = ?
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query ListAccounts: %w", err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ListAccounts row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListAccounts: %w", err)
	}
	return out, nil
}

func scanAccount(row rowScanner) (models.Account, error) {
	var (
		a                 models.Account
		arr, updated      string
		renewal, deadline sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &a.OwnerID, &a.Tier, &arr, &renewal, &deadline, &updated); err != nil {
		return models.Account{}, err
	}

	var err error
	if a.ARR, err = decimal.NewFromString(arr); err != nil {
		return models.Account{}, fmt.Errorf("parse arr %q: %w", arr, err)
	}
	if a.RenewalDate, err = parseNullTime(renewal); err != nil {
		return models.Account{}, err
	}
	if a.ContactDeadline, err = parseNullTime(deadline); err != nil {
		return models.Account{}, err
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return models.Account{}, err
	}
	return a, nil
}
