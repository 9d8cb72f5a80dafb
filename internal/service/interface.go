package service

import (
	"context"
	"time"

	"github.com/godilite/account-health/internal/repository/models"
	"github.com/godilite/account-health/internal/scoring"
)

// AccountStore defines the account metadata operations the service needs.
type AccountStore interface {
	Upsert(ctx context.Context, a models.Account) error
	Get(ctx context.Context, id string) (models.Account, error)
	List(ctx context.Context, ownerID string) ([]models.Account, error)
}

// SignalStore defines the append-only signal log.
type SignalStore interface {
	Append(ctx context.Context, signals []scoring.Signal) (int, error)
	Latest(ctx context.Context, accountID string, asOf time.Time) ([]scoring.Signal, error)
	List(ctx context.Context, accountID string, component scoring.Component, from, to time.Time) ([]scoring.Signal, error)
}

// HistoryStore defines the immutable score history.
type HistoryStore interface {
	Append(ctx context.Context, score scoring.CompositeScore) (scoring.ScoreHistoryEntry, bool, error)
	Latest(ctx context.Context, accountID, upTo string) (scoring.ScoreHistoryEntry, error)
	Range(ctx context.Context, accountID, from, to string) ([]scoring.ScoreHistoryEntry, error)
	Recent(ctx context.Context, accountID, upTo string, n int) ([]scoring.ScoreHistoryEntry, error)
	LatestByAccount(ctx context.Context, ownerID, upTo string) (map[string]scoring.ScoreHistoryEntry, error)
}

// RiskSignalStore defines risk signal persistence.
type RiskSignalStore interface {
	Create(ctx context.Context, s scoring.RiskSignal) (bool, error)
	Get(ctx context.Context, id string) (scoring.RiskSignal, error)
	ListOpen(ctx context.Context, accountID, ownerID string) ([]scoring.RiskSignal, error)
	Update(ctx context.Context, s scoring.RiskSignal, from scoring.RiskStatus) error
}

// ProfileResolver picks the weighting profile for an account.
type ProfileResolver interface {
	ForTier(tier string) *scoring.WeightingProfile
	Get(ref string) (*scoring.WeightingProfile, bool)
}

// Stores groups the storage dependencies of ScoringService.
type Stores struct {
	Accounts AccountStore
	Signals  SignalStore
	History  HistoryStore
	Risks    RiskSignalStore
}
