package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/godilite/account-health/internal/scoring"
)

const historyColumns = `
	h.account_id, h.period, h.profile_version, h.weighted_score, h.category,
	h.components, h.missing_components, h.stale_components,
	h.previous_score, h.previous_category, h.delta, h.computed_at
`

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append records score as the entry for (account, period), linking it to the
// latest earlier entry. The insert and the lookup of the previous entry are
// one statement, so concurrent writers for the same key cannot both succeed.
// When the key already exists nothing is written and the committed entry is
// returned with inserted=false.
func (r *HistoryRepository) Append(ctx context.Context, score scoring.CompositeScore) (entry scoring.ScoreHistoryEntry, inserted bool, err error) {
	components, err := json.Marshal(score.Components)
	if err != nil {
		return entry, false, fmt.Errorf("marshal components: %w", err)
	}
	missing, err := json.Marshal(score.MissingComponents)
	if err != nil {
		return entry, false, fmt.Errorf("marshal missing components: %w", err)
	}
	stale, err := json.Marshal(score.StaleComponents)
	if err != nil {
		return entry, false, fmt.Errorf("marshal stale components: %w", err)
	}

	// WHERE true disambiguates the upsert clause from the join constraint.
	const query = `
		INSERT INTO score_history (
			account_id, period, profile_version, weighted_score, category,
			components, missing_components, stale_components,
			previous_score, previous_category, delta, computed_at
		)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?,
			prev.weighted_score,
			prev.category,
			CASE WHEN prev.weighted_score IS NULL THEN NULL ELSE ? - prev.weighted_score END,
			?
		FROM (SELECT 1) AS one
		LEFT JOIN (
			SELECT weighted_score, category
			FROM score_history
			WHERE account_id = ? AND period < ?
			ORDER BY period DESC
			LIMIT 1
		) AS prev ON 1 = 1
		WHERE true
		ON CONFLICT (account_id, period) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		score.AccountID, score.Period, score.ProfileVersion, score.WeightedScore, score.Category,
		string(components), string(missing), string(stale),
		score.WeightedScore,
		formatTime(score.ComputedAt),
		score.AccountID, score.Period,
	)
	if err != nil {
		return entry, false, fmt.Errorf("exec AppendHistory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return entry, false, fmt.Errorf("rows AppendHistory: %w", err)
	}

	entry, err = r.Get(ctx, score.AccountID, score.Period)
	if err != nil {
		return entry, false, err
	}
	return entry, n == 1, nil
}

// Get returns the entry for (accountID, period) or ErrNotFound.
func (r *HistoryRepository) Get(ctx context.Context, accountID, period string) (scoring.ScoreHistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM score_history AS h WHERE h.account_id = ? AND h.period = ?`
	e, err := scanHistory(r.db.QueryRowContext(ctx, query, accountID, period))
	if errors.Is(err, sql.ErrNoRows) {
		return e, fmt.Errorf("history %s/%s: %w", accountID, period, ErrNotFound)
	}
	if err != nil {
		return e, fmt.Errorf("query GetHistory: %w", err)
	}
	return e, nil
}

// Latest returns the newest entry for accountID with period <= upTo, or
// ErrNotFound.
func (r *HistoryRepository) Latest(ctx context.Context, accountID, upTo string) (scoring.ScoreHistoryEntry, error) {
	query := `SELECT ` + historyColumns + `
		FROM score_history AS h
		WHERE h.account_id = ? AND h.period <= ?
		ORDER BY h.period DESC
		LIMIT 1`
	e, err := scanHistory(r.db.QueryRowContext(ctx, query, accountID, upTo))
	if errors.Is(err, sql.ErrNoRows) {
		return e, fmt.Errorf("history %s up to %s: %w", accountID, upTo, ErrNotFound)
	}
	if err != nil {
		return e, fmt.Errorf("query LatestHistory: %w", err)
	}
	return e, nil
}

// Range returns entries with from <= period <= to, oldest first. Empty bounds
// are open.
func (r *HistoryRepository) Range(ctx context.Context, accountID, from, to string) ([]scoring.ScoreHistoryEntry, error) {
	query := `SELECT ` + historyColumns + `
		FROM score_history AS h
		WHERE h.account_id = ?
			AND (? = '' OR h.period >= ?)
			AND (? = '' OR h.period <= ?)
		ORDER BY h.period`
	return r.list(ctx, "RangeHistory", query, accountID, from, from, to, to)
}

// Recent returns up to n entries with period <= upTo, oldest first.
func (r *HistoryRepository) Recent(ctx context.Context, accountID, upTo string, n int) ([]scoring.ScoreHistoryEntry, error) {
	query := `SELECT * FROM (
		SELECT ` + historyColumns + `
		FROM score_history AS h
		WHERE h.account_id = ? AND h.period <= ?
		ORDER BY h.period DESC
		LIMIT ?
	) ORDER BY period`
	return r.list(ctx, "RecentHistory", query, accountID, upTo, n)
}

// LatestByAccount returns, for every account of ownerID (all accounts when
// empty), its newest entry with period <= upTo. Accounts without such an
// entry are absent from the map.
func (r *HistoryRepository) LatestByAccount(ctx context.Context, ownerID, upTo string) (map[string]scoring.ScoreHistoryEntry, error) {
	query := `SELECT ` + historyColumns + `
		FROM score_history AS h
		JOIN (
			SELECT account_id, MAX(period) AS period
			FROM score_history
			WHERE period <= ?
			GROUP BY account_id
		) AS latest ON h.account_id = latest.account_id AND h.period = latest.period
		JOIN accounts AS a ON a.id = h.account_id
		WHERE ? = '' OR a.owner_id = ?`
	entries, err := r.list(ctx, "LatestHistoryByAccount", query, upTo, ownerID, ownerID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]scoring.ScoreHistoryEntry, len(entries))
	for _, e := range entries {
		out[e.AccountID] = e
	}
	return out, nil
}

func (r *HistoryRepository) list(ctx context.Context, op, query string, args ...any) ([]scoring.ScoreHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	defer rows.Close()

	var out []scoring.ScoreHistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", op, err)
	}
	return out, nil
}

func scanHistory(row rowScanner) (scoring.ScoreHistoryEntry, error) {
	var (
		e                          scoring.ScoreHistoryEntry
		components, missing, stale string
		computed                   string
		previousScore, delta       sql.NullFloat64
		previousCategory           sql.NullString
	)
	err := row.Scan(&e.AccountID, &e.Period, &e.ProfileVersion, &e.WeightedScore, &e.Category,
		&components, &missing, &stale,
		&previousScore, &previousCategory, &delta, &computed)
	if err != nil {
		return e, err
	}

	if err := json.Unmarshal([]byte(components), &e.Components); err != nil {
		return e, fmt.Errorf("decode components: %w", err)
	}
	if err := json.Unmarshal([]byte(missing), &e.MissingComponents); err != nil {
		return e, fmt.Errorf("decode missing components: %w", err)
	}
	if err := json.Unmarshal([]byte(stale), &e.StaleComponents); err != nil {
		return e, fmt.Errorf("decode stale components: %w", err)
	}
	if e.ComputedAt, err = parseTime(computed); err != nil {
		return e, err
	}
	if previousScore.Valid {
		v := previousScore.Float64
		e.PreviousScore = &v
	}
	if delta.Valid {
		v := delta.Float64
		e.Delta = &v
	}
	e.PreviousCategory = previousCategory.String
	return e, nil
}
