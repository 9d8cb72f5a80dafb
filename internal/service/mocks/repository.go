package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/godilite/account-health/internal/repository/models"
	"github.com/godilite/account-health/internal/scoring"
)

// MockAccountStore is a mock implementation of the AccountStore interface
// for testing the service layer.
type MockAccountStore struct {
	UpsertFunc func(ctx context.Context, a models.Account) error
	GetFunc    func(ctx context.Context, id string) (models.Account, error)
	ListFunc   func(ctx context.Context, ownerID string) ([]models.Account, error)
}

func (m *MockAccountStore) Upsert(ctx context.Context, a models.Account) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, a)
	}
	return errors.New("UpsertFunc not implemented")
}

func (m *MockAccountStore) Get(ctx context.Context, id string) (models.Account, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return models.Account{}, errors.New("GetFunc not implemented")
}

func (m *MockAccountStore) List(ctx context.Context, ownerID string) ([]models.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, ownerID)
	}
	return nil, errors.New("ListFunc not implemented")
}

// MockSignalStore is a mock implementation of the SignalStore interface.
type MockSignalStore struct {
	AppendFunc func(ctx context.Context, signals []scoring.Signal) (int, error)
	LatestFunc func(ctx context.Context, accountID string, asOf time.Time) ([]scoring.Signal, error)
	ListFunc   func(ctx context.Context, accountID string, component scoring.Component, from, to time.Time) ([]scoring.Signal, error)
}

func (m *MockSignalStore) Append(ctx context.Context, signals []scoring.Signal) (int, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, signals)
	}
	return 0, errors.New("AppendFunc not implemented")
}

func (m *MockSignalStore) Latest(ctx context.Context, accountID string, asOf time.Time) ([]scoring.Signal, error) {
	if m.LatestFunc != nil {
		return m.LatestFunc(ctx, accountID, asOf)
	}
	return nil, errors.New("LatestFunc not implemented")
}

func (m *MockSignalStore) List(ctx context.Context, accountID string, component scoring.Component, from, to time.Time) ([]scoring.Signal, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, accountID, component, from, to)
	}
	return nil, nil
}

// MockHistoryStore is a mock implementation of the HistoryStore interface.
type MockHistoryStore struct {
	AppendFunc          func(ctx context.Context, score scoring.CompositeScore) (scoring.ScoreHistoryEntry, bool, error)
	LatestFunc          func(ctx context.Context, accountID, upTo string) (scoring.ScoreHistoryEntry, error)
	RangeFunc           func(ctx context.Context, accountID, from, to string) ([]scoring.ScoreHistoryEntry, error)
	RecentFunc          func(ctx context.Context, accountID, upTo string, n int) ([]scoring.ScoreHistoryEntry, error)
	LatestByAccountFunc func(ctx context.Context, ownerID, upTo string) (map[string]scoring.ScoreHistoryEntry, error)
}

func (m *MockHistoryStore) Append(ctx context.Context, score scoring.CompositeScore) (scoring.ScoreHistoryEntry, bool, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, score)
	}
	return scoring.ScoreHistoryEntry{}, false, errors.New("AppendFunc not implemented")
}

func (m *MockHistoryStore) Latest(ctx context.Context, accountID, upTo string) (scoring.ScoreHistoryEntry, error) {
	if m.LatestFunc != nil {
		return m.LatestFunc(ctx, accountID, upTo)
	}
	return scoring.ScoreHistoryEntry{}, errors.New("LatestFunc not implemented")
}

func (m *MockHistoryStore) Range(ctx context.Context, accountID, from, to string) ([]scoring.ScoreHistoryEntry, error) {
	if m.RangeFunc != nil {
		return m.RangeFunc(ctx, accountID, from, to)
	}
	return nil, errors.New("RangeFunc not implemented")
}

func (m *MockHistoryStore) Recent(ctx context.Context, accountID, upTo string, n int) ([]scoring.ScoreHistoryEntry, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, accountID, upTo, n)
	}
	return nil, nil
}

func (m *MockHistoryStore) LatestByAccount(ctx context.Context, ownerID, upTo string) (map[string]scoring.ScoreHistoryEntry, error) {
	if m.LatestByAccountFunc != nil {
		return m.LatestByAccountFunc(ctx, ownerID, upTo)
	}
	return nil, errors.New("LatestByAccountFunc not implemented")
}

// MockRiskSignalStore is a mock implementation of the RiskSignalStore interface.
type MockRiskSignalStore struct {
	CreateFunc   func(ctx context.Context, s scoring.RiskSignal) (bool, error)
	GetFunc      func(ctx context.Context, id string) (scoring.RiskSignal, error)
	ListOpenFunc func(ctx context.Context, accountID, ownerID string) ([]scoring.RiskSignal, error)
	UpdateFunc   func(ctx context.Context, s scoring.RiskSignal, from scoring.RiskStatus) error
}

func (m *MockRiskSignalStore) Create(ctx context.Context, s scoring.RiskSignal) (bool, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, s)
	}
	return true, nil
}

func (m *MockRiskSignalStore) Get(ctx context.Context, id string) (scoring.RiskSignal, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return scoring.RiskSignal{}, errors.New("GetFunc not implemented")
}

func (m *MockRiskSignalStore) ListOpen(ctx context.Context, accountID, ownerID string) ([]scoring.RiskSignal, error) {
	if m.ListOpenFunc != nil {
		return m.ListOpenFunc(ctx, accountID, ownerID)
	}
	return nil, nil
}

func (m *MockRiskSignalStore) Update(ctx context.Context, s scoring.RiskSignal, from scoring.RiskStatus) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, s, from)
	}
	return errors.New("UpdateFunc not implemented")
}
