package grpc

import (
	"context"
	"time"

	"github.com/godilite/account-health/internal/repository/models"
	"github.com/godilite/account-health/internal/scoring"
	"github.com/godilite/account-health/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheRecorder counts read-through cache hits and misses.
type CacheRecorder interface {
	CacheHit()
	CacheMiss()
}

type ScoringService interface {
	ScoreAccount(ctx context.Context, accountID string, asOf time.Time) (service.ScoreResult, error)
	GetCompositeScore(ctx context.Context, accountID string) (scoring.ScoreHistoryEntry, error)
	GetScoreHistory(ctx context.Context, accountID string, from, to time.Time) (service.ScoreHistory, error)
	GetPortfolioSummary(ctx context.Context, ownerID string, asOf time.Time) (service.PortfolioReport, error)
	GetPriorityQueue(ctx context.Context, q service.PriorityQuery) ([]scoring.PriorityEntry, error)
	ListActiveRiskSignals(ctx context.Context, accountID, ownerID string) ([]scoring.RiskSignal, error)
	AcknowledgeRiskSignal(ctx context.Context, id, notes string) (scoring.RiskSignal, error)
	ResolveRiskSignal(ctx context.Context, id, outcome, notes string) (scoring.RiskSignal, error)
	RaiseRiskSignal(ctx context.Context, req service.RaiseRequest) (scoring.RiskSignal, bool, error)
	IngestSignals(ctx context.Context, signals []scoring.Signal) (service.IngestResult, error)
	UpsertAccount(ctx context.Context, a models.Account) (models.Account, error)
}
