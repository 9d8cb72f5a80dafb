package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriorityInput is everything the ranker needs to know about one account.
type PriorityInput struct {
	Score       CompositeScore
	Profile     *WeightingProfile
	ARR         decimal.Decimal
	UrgencyDays *int
	OpenSignals []RiskSignal
}

// PriorityEntry is one ranked account. It is recomputed on every pass and
// never persisted.
type PriorityEntry struct {
	AccountID      string          `json:"account_id"`
	CompositeScore float64         `json:"composite_score"`
	Category       string          `json:"category"`
	ARRExposure    decimal.Decimal `json:"arr_exposure"`
	UrgencyDays    *int            `json:"urgency_days,omitempty"`
	ActiveSignals  int             `json:"active_signals"`
	PriorityValue  float64         `json:"priority_value"`
	Rank           int             `json:"rank"`
}

// PriorityFilter narrows the accounts considered before ranking.
type PriorityFilter struct {
	Categories     []string
	MinARR         decimal.Decimal
	MaxUrgencyDays *int
	Limit          int
}

// UrgencyDays returns the whole days from asOf to the nearest of the given
// deadlines, or nil when none is known. Past deadlines give negative values.
func UrgencyDays(asOf time.Time, deadlines ...*time.Time) *int {
	var best *int
	for _, d := range deadlines {
		if d == nil || d.IsZero() {
			continue
		}
		days := int(math.Floor(d.Sub(asOf).Hours() / 24))
		if best == nil || days < *best {
			best = &days
		}
	}
	return best
}

// NeedsAttention reports whether an account belongs in the priority queue:
// it has an open risk signal or its category is below the healthiest range.
func NeedsAttention(in PriorityInput) bool {
	for _, s := range in.OpenSignals {
		if s.Open() {
			return true
		}
	}
	return in.Score.Category != in.Profile.HealthyCategory()
}

// PriorityValue computes
//
//	(riskTerm + signalTerm) × arrTerm × urgencyTerm
//
// riskTerm grows as the score falls, signalTerm adds the profile's severity
// weight for each open signal, arrTerm is 1+log10(1+ARR/ARRLogScale) and
// urgencyTerm rises linearly from 1 to 1+UrgencyBoost as the deadline moves
// from UrgencyCutoffDays to zero. Unknown ARR or deadline leaves its term at 1.
func PriorityValue(in PriorityInput) float64 {
	p := in.Profile

	risk := math.Max(100-in.Score.WeightedScore, 1) / 100
	for _, s := range in.OpenSignals {
		if s.Open() {
			risk += p.SeverityWeights[s.Severity]
		}
	}

	return risk * arrTerm(in.ARR, p.ARRLogScale) * urgencyTerm(in.UrgencyDays, p.UrgencyCutoffDays, p.UrgencyBoost)
}

func arrTerm(arr decimal.Decimal, scale float64) float64 {
	if !arr.IsPositive() || scale <= 0 {
		return 1
	}
	return 1 + math.Log10(1+arr.InexactFloat64()/scale)
}

func urgencyTerm(days *int, cutoff, boost float64) float64 {
	if days == nil || cutoff <= 0 {
		return 1
	}
	d := math.Max(float64(*days), 0)
	if d >= cutoff {
		return 1
	}
	return 1 + boost*(cutoff-d)/cutoff
}

// RankPriorities filters, scores and orders accounts. Ordering is by priority
// value descending with ties broken by account ID ascending, so identical
// inputs always produce the identical order.
func RankPriorities(inputs []PriorityInput, filter PriorityFilter) []PriorityEntry {
	categories := make(map[string]bool, len(filter.Categories))
	for _, c := range filter.Categories {
		categories[c] = true
	}

	entries := make([]PriorityEntry, 0, len(inputs))
	for _, in := range inputs {
		if in.Profile == nil || !NeedsAttention(in) {
			continue
		}
		if len(categories) > 0 && !categories[in.Score.Category] {
			continue
		}
		if in.ARR.LessThan(filter.MinARR) {
			continue
		}
		if filter.MaxUrgencyDays != nil && (in.UrgencyDays == nil || *in.UrgencyDays > *filter.MaxUrgencyDays) {
			continue
		}

		open := 0
		for _, s := range in.OpenSignals {
			if s.Open() {
				open++
			}
		}
		entries = append(entries, PriorityEntry{
			AccountID:      in.Score.AccountID,
			CompositeScore: in.Score.WeightedScore,
			Category:       in.Score.Category,
			ARRExposure:    in.ARR,
			UrgencyDays:    in.UrgencyDays,
			ActiveSignals:  open,
			PriorityValue:  PriorityValue(in),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PriorityValue != entries[j].PriorityValue {
			return entries[i].PriorityValue > entries[j].PriorityValue
		}
		return entries[i].AccountID < entries[j].AccountID
	})

	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
