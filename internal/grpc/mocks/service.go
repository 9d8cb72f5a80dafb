package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/godilite/account-health/internal/repository/models"
	"github.com/godilite/account-health/internal/scoring"
	"github.com/godilite/account-health/internal/service"
)

// MockScoringService is a mock implementation of the ScoringService interface
// for testing the handler layer. It uses function-based mocking for flexibility.
type MockScoringService struct {
	ScoreAccountFunc          func(ctx context.Context, accountID string, asOf time.Time) (service.ScoreResult, error)
	GetCompositeScoreFunc     func(ctx context.Context, accountID string) (scoring.ScoreHistoryEntry, error)
	GetScoreHistoryFunc       func(ctx context.Context, accountID string, from, to time.Time) (service.ScoreHistory, error)
	GetPortfolioSummaryFunc   func(ctx context.Context, ownerID string, asOf time.Time) (service.PortfolioReport, error)
	GetPriorityQueueFunc      func(ctx context.Context, q service.PriorityQuery) ([]scoring.PriorityEntry, error)
	ListActiveRiskSignalsFunc func(ctx context.Context, accountID, ownerID string) ([]scoring.RiskSignal, error)
	AcknowledgeRiskSignalFunc func(ctx context.Context, id, notes string) (scoring.RiskSignal, error)
	ResolveRiskSignalFunc     func(ctx context.Context, id, outcome, notes string) (scoring.RiskSignal, error)
	RaiseRiskSignalFunc       func(ctx context.Context, req service.RaiseRequest) (scoring.RiskSignal, bool, error)
	IngestSignalsFunc         func(ctx context.Context, signals []scoring.Signal) (service.IngestResult, error)
	UpsertAccountFunc         func(ctx context.Context, a models.Account) (models.Account, error)
}

func (m *MockScoringService) ScoreAccount(ctx context.Context, accountID string, asOf time.Time) (service.ScoreResult, error) {
	if m.ScoreAccountFunc != nil {
		return m.ScoreAccountFunc(ctx, accountID, asOf)
	}
	return service.ScoreResult{}, errors.New("ScoreAccountFunc not implemented")
}

func (m *MockScoringService) GetCompositeScore(ctx context.Context, accountID string) (scoring.ScoreHistoryEntry, error) {
	if m.GetCompositeScoreFunc != nil {
		return m.GetCompositeScoreFunc(ctx, accountID)
	}
	return scoring.ScoreHistoryEntry{}, errors.New("GetCompositeScoreFunc not implemented")
}

func (m *MockScoringService) GetScoreHistory(ctx context.Context, accountID string, from, to time.Time) (service.ScoreHistory, error) {
	if m.GetScoreHistoryFunc != nil {
		return m.GetScoreHistoryFunc(ctx, accountID, from, to)
	}
	return service.ScoreHistory{}, errors.New("GetScoreHistoryFunc not implemented")
}

func (m *MockScoringService) GetPortfolioSummary(ctx context.Context, ownerID string, asOf time.Time) (service.PortfolioReport, error) {
	if m.GetPortfolioSummaryFunc != nil {
		return m.GetPortfolioSummaryFunc(ctx, ownerID, asOf)
	}
	return service.PortfolioReport{}, errors.New("GetPortfolioSummaryFunc not implemented")
}

func (m *MockScoringService) GetPriorityQueue(ctx context.Context, q service.PriorityQuery) ([]scoring.PriorityEntry, error) {
	if m.GetPriorityQueueFunc != nil {
		return m.GetPriorityQueueFunc(ctx, q)
	}
	return nil, errors.New("GetPriorityQueueFunc not implemented")
}

func (m *MockScoringService) ListActiveRiskSignals(ctx context.Context, accountID, ownerID string) ([]scoring.RiskSignal, error) {
	if m.ListActiveRiskSignalsFunc != nil {
		return m.ListActiveRiskSignalsFunc(ctx, accountID, ownerID)
	}
	return nil, errors.New("ListActiveRiskSignalsFunc not implemented")
}

func (m *MockScoringService) AcknowledgeRiskSignal(ctx context.Context, id, notes string) (scoring.RiskSignal, error) {
	if m.AcknowledgeRiskSignalFunc != nil {
		return m.AcknowledgeRiskSignalFunc(ctx, id, notes)
	}
	return scoring.RiskSignal{}, errors.New("AcknowledgeRiskSignalFunc not implemented")
}

func (m *MockScoringService) ResolveRiskSignal(ctx context.Context, id, outcome, notes string) (scoring.RiskSignal, error) {
	if m.ResolveRiskSignalFunc != nil {
		return m.ResolveRiskSignalFunc(ctx, id, outcome, notes)
	}
	return scoring.RiskSignal{}, errors.New("ResolveRiskSignalFunc not implemented")
}

func (m *MockScoringService) RaiseRiskSignal(ctx context.Context, req service.RaiseRequest) (scoring.RiskSignal, bool, error) {
	if m.RaiseRiskSignalFunc != nil {
		return m.RaiseRiskSignalFunc(ctx, req)
	}
	return scoring.RiskSignal{}, false, errors.New("RaiseRiskSignalFunc not implemented")
}

func (m *MockScoringService) IngestSignals(ctx context.Context, signals []scoring.Signal) (service.IngestResult, error) {
	if m.IngestSignalsFunc != nil {
		return m.IngestSignalsFunc(ctx, signals)
	}
	return service.IngestResult{}, errors.New("IngestSignalsFunc not implemented")
}

func (m *MockScoringService) UpsertAccount(ctx context.Context, a models.Account) (models.Account, error) {
	if m.UpsertAccountFunc != nil {
		return m.UpsertAccountFunc(ctx, a)
	}
	return models.Account{}, errors.New("UpsertAccountFunc not implemented")
}
