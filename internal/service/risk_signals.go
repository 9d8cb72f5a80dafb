package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/godilite/account-health/internal/repository"
	"github.com/godilite/account-health/internal/scoring"
)

// ListActiveRiskSignals returns unresolved signals for one account, one
// owner, or everything when both are empty.
func (s *ScoringService) ListActiveRiskSignals(ctx context.Context, accountID, ownerID string) ([]scoring.RiskSignal, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	signals, err := s.stores.Risks.ListOpen(dbCtx, accountID, ownerID)
	if err != nil {
		return nil, storageErr("list risk signals", err)
	}
	return signals, nil
}

// AcknowledgeRiskSignal moves an active signal to acknowledged.
func (s *ScoringService) AcknowledgeRiskSignal(ctx context.Context, id, notes string) (scoring.RiskSignal, error) {
	return s.transition(ctx, id, func(sig *scoring.RiskSignal) error {
		return sig.Acknowledge(s.now(), notes)
	})
}

// ResolveRiskSignal closes an open signal with an outcome.
func (s *ScoringService) ResolveRiskSignal(ctx context.Context, id, outcome, notes string) (scoring.RiskSignal, error) {
	if strings.TrimSpace(outcome) == "" {
		return scoring.RiskSignal{}, fmt.Errorf("%w: outcome is required", ErrInvalidArgument)
	}
	return s.transition(ctx, id, func(sig *scoring.RiskSignal) error {
		return sig.Resolve(s.now(), outcome, notes)
	})
}

func (s *ScoringService) transition(ctx context.Context, id string, apply func(*scoring.RiskSignal) error) (scoring.RiskSignal, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	sig, err := s.stores.Risks.Get(dbCtx, id)
	if err != nil {
		return scoring.RiskSignal{}, storageErr("get risk signal", err)
	}

	from := sig.Status
	if err := apply(&sig); err != nil {
		return scoring.RiskSignal{}, err
	}

	if err := s.stores.Risks.Update(dbCtx, sig, from); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return scoring.RiskSignal{}, fmt.Errorf("%w: %v", scoring.ErrInvalidTransition, err)
		}
		return scoring.RiskSignal{}, storageErr("update risk signal", err)
	}

	s.logger.Info("risk signal updated",
		zap.String("id", sig.ID),
		zap.String("account_id", sig.AccountID),
		zap.String("from", string(from)),
		zap.String("to", string(sig.Status)))
	return sig, nil
}

// RaiseRiskSignal records an explicitly reported risk event. When a signal of
// the same type is already open for the account, that signal is returned
// with created=false.
func (s *ScoringService) RaiseRiskSignal(ctx context.Context, req RaiseRequest) (scoring.RiskSignal, bool, error) {
	if !req.Type.Valid() {
		return scoring.RiskSignal{}, false, fmt.Errorf("%w: unknown risk type %q", ErrInvalidArgument, req.Type)
	}
	if !req.Severity.Valid() {
		return scoring.RiskSignal{}, false, fmt.Errorf("%w: unknown severity %q", ErrInvalidArgument, req.Severity)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.stores.Accounts.Get(dbCtx, req.AccountID); err != nil {
		return scoring.RiskSignal{}, false, storageErr("get account", err)
	}

	sig := scoring.RiskSignal{
		ID:         uuid.NewString(),
		AccountID:  req.AccountID,
		Type:       req.Type,
		Severity:   req.Severity,
		Status:     scoring.RiskActive,
		Details:    req.Details,
		DetectedAt: s.now().UTC(),
	}
	created, err := s.stores.Risks.Create(dbCtx, sig)
	if err != nil {
		return scoring.RiskSignal{}, false, storageErr("create risk signal", err)
	}
	if created {
		s.logger.Info("risk signal raised",
			zap.String("account_id", sig.AccountID),
			zap.String("type", string(sig.Type)),
			zap.String("severity", string(sig.Severity)))
		return sig, true, nil
	}

	open, err := s.stores.Risks.ListOpen(dbCtx, req.AccountID, "")
	if err != nil {
		return scoring.RiskSignal{}, false, storageErr("list risk signals", err)
	}
	for _, existing := range open {
		if existing.Type == req.Type {
			return existing, false, nil
		}
	}
	return scoring.RiskSignal{}, false, fmt.Errorf("%w: open %s signal for %s vanished", ErrStorageFailure, req.Type, req.AccountID)
}
