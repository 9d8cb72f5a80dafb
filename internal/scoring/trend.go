package scoring

import (
	"fmt"
	"math"
	"sort"
)

type TrendDirection string

const (
	TrendImproving    TrendDirection = "improving"
	TrendDeclining    TrendDirection = "declining"
	TrendStable       TrendDirection = "stable"
	TrendInsufficient TrendDirection = "insufficient"
)

type TrendStrength string

const (
	StrengthWeak     TrendStrength = "weak"
	StrengthModerate TrendStrength = "moderate"
	StrengthStrong   TrendStrength = "strong"
)

// Trend summarizes the recent movement of an account's score.
type Trend struct {
	Direction TrendDirection `json:"direction"`
	Strength  TrendStrength  `json:"strength,omitempty"`
	Slope     float64        `json:"slope"`
	Points    int            `json:"points"`
}

// ClassifyTrend fits a least-squares line through the last window entries
// (window <= 0 uses the profile's TrendWindow) ordered by period. Slope is in
// score points per period. Fewer than two entries yields TrendInsufficient and
// ErrInsufficientHistory.
func ClassifyTrend(history []ScoreHistoryEntry, window int, p *WeightingProfile) (Trend, error) {
	if window <= 0 {
		window = p.TrendWindow
	}

	ordered := make([]ScoreHistoryEntry, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Period < ordered[j].Period
	})
	if len(ordered) > window {
		ordered = ordered[len(ordered)-window:]
	}

	if len(ordered) < 2 {
		return Trend{Direction: TrendInsufficient, Points: len(ordered)},
			fmt.Errorf("%w: %d entries", ErrInsufficientHistory, len(ordered))
	}

	values := make([]float64, len(ordered))
	for i, e := range ordered {
		values[i] = e.WeightedScore
	}
	slope := linearSlope(values)

	t := Trend{Slope: slope, Points: len(values)}
	abs := math.Abs(slope)
	switch {
	case abs < p.StabilityEpsilon:
		t.Direction = TrendStable
	case slope > 0:
		t.Direction = TrendImproving
	default:
		t.Direction = TrendDeclining
	}

	switch {
	case t.Direction == TrendStable || abs < p.TrendModerateSlope:
		t.Strength = StrengthWeak
	case abs < p.TrendStrongSlope:
		t.Strength = StrengthModerate
	default:
		t.Strength = StrengthStrong
	}
	return t, nil
}

// linearSlope is the least-squares slope of values against their index.
func linearSlope(values []float64) float64 {
	n := float64(len(values))
	xMean := (n - 1) / 2

	var yMean float64
	for _, v := range values {
		yMean += v
	}
	yMean /= n

	var num, den float64
	for i, v := range values {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}
