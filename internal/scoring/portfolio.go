package scoring

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AccountSnapshot pairs an account's ARR with its latest score as of some
// date. Score is nil when the account has no score yet.
type AccountSnapshot struct {
	AccountID string
	ARR       decimal.Decimal
	Score     *CompositeScore
}

// PortfolioSummary is the distribution of scores over a set of accounts.
type PortfolioSummary struct {
	AsOf             time.Time                  `json:"as_of"`
	TotalAccounts    int                        `json:"total_accounts"`
	ScoredAccounts   int                        `json:"scored_accounts"`
	InsufficientData int                        `json:"insufficient_data"`
	CategoryCounts   map[string]int             `json:"category_counts"`
	ARRByCategory    map[string]decimal.Decimal `json:"arr_by_category"`
	UnscoredARR      decimal.Decimal            `json:"unscored_arr"`
	TotalARR         decimal.Decimal            `json:"total_arr"`
	AverageScore     *float64                   `json:"average_score,omitempty"`
}

// PortfolioTrend is the change between two summaries of the same portfolio.
type PortfolioTrend struct {
	PriorAsOf           time.Time                  `json:"prior_as_of"`
	AverageScoreDelta   *float64                   `json:"average_score_delta,omitempty"`
	CategoryCountDeltas map[string]int             `json:"category_count_deltas"`
	ARRByCategoryDeltas map[string]decimal.Decimal `json:"arr_by_category_deltas"`
	InsufficientDelta   int                        `json:"insufficient_delta"`
}

// Summarize rolls snapshots into a PortfolioSummary. Accounts without a score
// are counted as insufficient data rather than contributing a value.
func Summarize(asOf time.Time, snapshots []AccountSnapshot) PortfolioSummary {
	ordered := make([]AccountSnapshot, len(snapshots))
	copy(ordered, snapshots)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].AccountID < ordered[j].AccountID
	})

	s := PortfolioSummary{
		AsOf:           asOf.UTC(),
		TotalAccounts:  len(ordered),
		CategoryCounts: make(map[string]int),
		ARRByCategory:  make(map[string]decimal.Decimal),
		UnscoredARR:    decimal.Zero,
		TotalARR:       decimal.Zero,
	}

	var total float64
	for _, snap := range ordered {
		s.TotalARR = s.TotalARR.Add(snap.ARR)
		if snap.Score == nil {
			s.InsufficientData++
			s.UnscoredARR = s.UnscoredARR.Add(snap.ARR)
			continue
		}
		cat := snap.Score.Category
		s.ScoredAccounts++
		s.CategoryCounts[cat]++
		s.ARRByCategory[cat] = s.ARRByCategory[cat].Add(snap.ARR)
		total += snap.Score.WeightedScore
	}

	if s.ScoredAccounts > 0 {
		avg := total / float64(s.ScoredAccounts)
		s.AverageScore = &avg
	}
	return s
}

// CompareSummaries diffs current against prior.
func CompareSummaries(current, prior PortfolioSummary) PortfolioTrend {
	t := PortfolioTrend{
		PriorAsOf:           prior.AsOf,
		CategoryCountDeltas: make(map[string]int),
		ARRByCategoryDeltas: make(map[string]decimal.Decimal),
		InsufficientDelta:   current.InsufficientData - prior.InsufficientData,
	}

	if current.AverageScore != nil && prior.AverageScore != nil {
		d := *current.AverageScore - *prior.AverageScore
		t.AverageScoreDelta = &d
	}

	for cat := range unionKeys(current.CategoryCounts, prior.CategoryCounts) {
		t.CategoryCountDeltas[cat] = current.CategoryCounts[cat] - prior.CategoryCounts[cat]
	}
	for cat := range unionKeys(current.ARRByCategory, prior.ARRByCategory) {
		t.ARRByCategoryDeltas[cat] = current.ARRByCategory[cat].Sub(prior.ARRByCategory[cat])
	}
	return t
}

func unionKeys[V any](a, b map[string]V) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}
