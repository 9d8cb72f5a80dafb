package service

import (
	"context"
	"time"

	"github.com/godilite/account-health/internal/repository/models"
	"github.com/godilite/account-health/internal/scoring"
)

// PortfolioLookback is how far back the comparison rollup is taken.
const PortfolioLookback = 7 * 24 * time.Hour

// GetPortfolioSummary rolls up the latest score of every account of ownerID
// (all accounts when empty) as of asOf, and the same rollup one week
// earlier. Both are derived from history on every call.
func (s *ScoringService) GetPortfolioSummary(ctx context.Context, ownerID string, asOf time.Time) (PortfolioReport, error) {
	asOf = s.asOf(asOf)
	priorAsOf := asOf.Add(-PortfolioLookback)

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	accounts, err := s.stores.Accounts.List(dbCtx, ownerID)
	if err != nil {
		return PortfolioReport{}, storageErr("list accounts", err)
	}
	current, err := s.stores.History.LatestByAccount(dbCtx, ownerID, scoring.PeriodKey(asOf))
	if err != nil {
		return PortfolioReport{}, storageErr("latest history", err)
	}
	prior, err := s.stores.History.LatestByAccount(dbCtx, ownerID, scoring.PeriodKey(priorAsOf))
	if err != nil {
		return PortfolioReport{}, storageErr("prior history", err)
	}

	report := PortfolioReport{
		Current: scoring.Summarize(asOf, snapshots(accounts, current)),
		Prior:   scoring.Summarize(priorAsOf, snapshots(accounts, prior)),
	}
	report.Trend = scoring.CompareSummaries(report.Current, report.Prior)
	return report, nil
}

func snapshots(accounts []models.Account, latest map[string]scoring.ScoreHistoryEntry) []scoring.AccountSnapshot {
	out := make([]scoring.AccountSnapshot, 0, len(accounts))
	for _, a := range accounts {
		snap := scoring.AccountSnapshot{AccountID: a.ID, ARR: a.ARR}
		if e, ok := latest[a.ID]; ok {
			score := e.CompositeScore
			snap.Score = &score
		}
		out = append(out, snap)
	}
	return out
}

// GetPriorityQueue ranks the accounts that need attention. Accounts are
// ranked under the profile version that produced their latest score when it
// is still loaded, otherwise under their tier's current profile.
func (s *ScoringService) GetPriorityQueue(ctx context.Context, q PriorityQuery) ([]scoring.PriorityEntry, error) {
	asOf := s.asOf(q.AsOf)

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	accounts, err := s.stores.Accounts.List(dbCtx, q.OwnerID)
	if err != nil {
		return nil, storageErr("list accounts", err)
	}
	latest, err := s.stores.History.LatestByAccount(dbCtx, q.OwnerID, scoring.PeriodKey(asOf))
	if err != nil {
		return nil, storageErr("latest history", err)
	}
	open, err := s.stores.Risks.ListOpen(dbCtx, "", q.OwnerID)
	if err != nil {
		return nil, storageErr("open risk signals", err)
	}

	openByAccount := make(map[string][]scoring.RiskSignal)
	for _, sig := range open {
		openByAccount[sig.AccountID] = append(openByAccount[sig.AccountID], sig)
	}

	inputs := make([]scoring.PriorityInput, 0, len(accounts))
	for _, a := range accounts {
		entry, ok := latest[a.ID]
		if !ok {
			continue
		}
		profile, ok := s.profiles.Get(entry.ProfileVersion)
		if !ok {
			profile = s.profiles.ForTier(a.Tier)
		}
		inputs = append(inputs, scoring.PriorityInput{
			Score:       entry.CompositeScore,
			Profile:     profile,
			ARR:         a.ARR,
			UrgencyDays: scoring.UrgencyDays(asOf, a.RenewalDate, a.ContactDeadline),
			OpenSignals: openByAccount[a.ID],
		})
	}

	return scoring.RankPriorities(inputs, q.Filter), nil
}
