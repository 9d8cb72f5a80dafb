// Package scoring holds the deterministic scoring core: composite scores,
// category thresholds, trends, priority ranking and portfolio rollups.
// Everything here is a pure function of its inputs and an explicit as-of time.
package scoring

import (
	"fmt"
	"math"
	"time"
)

// CompositeScore is the output of one scoring pass for one account.
type CompositeScore struct {
	AccountID         string                `json:"account_id"`
	ProfileVersion    string                `json:"profile_version"`
	Period            string                `json:"period"`
	Components        map[Component]float64 `json:"components"`
	MissingComponents []Component           `json:"missing_components"`
	StaleComponents   []Component           `json:"stale_components"`
	WeightedScore     float64               `json:"weighted_score"`
	Category          string                `json:"category"`
	ComputedAt        time.Time             `json:"computed_at"`
}

// IsStale reports whether any component was older than the freshness window.
func (c CompositeScore) IsStale() bool {
	return len(c.StaleComponents) > 0
}

// Score combines the latest signal per weighted component into a composite
// score. Weights are renormalized over the components that are present, so a
// missing component is never treated as zero. It fails with
// ErrInsufficientSignal when no weighted component is present.
func Score(accountID string, signals []Signal, p *WeightingProfile, asOf time.Time) (CompositeScore, error) {
	latest := LatestByComponent(accountID, signals, asOf)

	result := CompositeScore{
		AccountID:         accountID,
		ProfileVersion:    p.Ref(),
		Period:            PeriodKey(asOf),
		Components:        make(map[Component]float64),
		MissingComponents: []Component{},
		StaleComponents:   []Component{},
		ComputedAt:        asOf.UTC(),
	}

	var weighted, weightSum float64
	for _, c := range Components {
		w, weightedComponent := p.Weights[c]
		if !weightedComponent {
			continue
		}
		s, present := latest[c]
		if !present {
			result.MissingComponents = append(result.MissingComponents, c)
			continue
		}

		result.Components[c] = s.NormalizedValue
		weighted += s.NormalizedValue * w
		weightSum += w

		if p.FreshnessWindow > 0 && asOf.Sub(s.ObservedAt) > p.FreshnessWindow {
			result.StaleComponents = append(result.StaleComponents, c)
		}
	}

	if len(result.Components) == 0 || weightSum <= 0 {
		return CompositeScore{}, fmt.Errorf("%w: account %s has no usable components under %s",
			ErrInsufficientSignal, accountID, p.Ref())
	}

	result.WeightedScore = clamp(roundScore(weighted/weightSum), 0, 100)
	result.Category = p.Classify(result.WeightedScore)
	return result, nil
}

// scorePrecision is the number of decimal places a composite score keeps.
// Renormalizing by a partial weight sum leaves drift around 1e-14, which
// must not move a score across a category boundary.
const scorePrecision = 1e9

func roundScore(v float64) float64 {
	return math.Round(v*scorePrecision) / scorePrecision
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
