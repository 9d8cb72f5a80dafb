package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/godilite/account-health/internal/repository/models"
	"github.com/godilite/account-health/internal/scoring"
)

// IngestSignals validates and stores a batch of signals. A single invalid
// signal rejects the whole batch. Already stored signals are counted as
// duplicates, not errors.
func (s *ScoringService) IngestSignals(ctx context.Context, signals []scoring.Signal) (IngestResult, error) {
	if len(signals) == 0 {
		return IngestResult{}, fmt.Errorf("%w: no signals", ErrInvalidArgument)
	}
	for i, sig := range signals {
		if err := sig.Validate(); err != nil {
			return IngestResult{}, fmt.Errorf("%w: signal %d: %w", ErrInvalidArgument, i, err)
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	accepted, err := s.stores.Signals.Append(dbCtx, signals)
	if err != nil {
		return IngestResult{}, storageErr("append signals", err)
	}

	res := IngestResult{Accepted: accepted, Duplicates: len(signals) - accepted}
	s.logger.Debug("ingested signals",
		zap.Int("accepted", res.Accepted),
		zap.Int("duplicates", res.Duplicates))
	return res, nil
}

// UpsertAccount creates or updates account metadata.
func (s *ScoringService) UpsertAccount(ctx context.Context, a models.Account) (models.Account, error) {
	a.ID = strings.TrimSpace(a.ID)
	if a.ID == "" {
		return models.Account{}, fmt.Errorf("%w: account id is required", ErrInvalidArgument)
	}
	if a.ARR.IsNegative() {
		return models.Account{}, fmt.Errorf("%w: arr must not be negative", ErrInvalidArgument)
	}
	a.UpdatedAt = s.now().UTC()

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.stores.Accounts.Upsert(dbCtx, a); err != nil {
		return models.Account{}, storageErr("upsert account", err)
	}
	return a, nil
}
