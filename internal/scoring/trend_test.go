package scoring

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(p *WeightingProfile, scores ...float64) []ScoreHistoryEntry {
	out := make([]ScoreHistoryEntry, len(scores))
	for i, s := range scores {
		out[i] = entry(fmt.Sprintf("2025-03-%02d", i+1), s, p)
	}
	return out
}

func TestClassifyTrend(t *testing.T) {
	p := threeComponentProfile(t)

	cases := []struct {
		name      string
		scores    []float64
		direction TrendDirection
		strength  TrendStrength
	}{
		{"strong improvement", []float64{40, 45, 50, 55, 60}, TrendImproving, StrengthStrong},
		{"moderate decline", []float64{70, 68, 66, 64}, TrendDeclining, StrengthModerate},
		{"weak improvement", []float64{60, 60.7, 61.4}, TrendImproving, StrengthWeak},
		{"noise is stable", []float64{60, 60.4, 59.8, 60.2, 60.1}, TrendStable, StrengthWeak},
		{"flat", []float64{50, 50}, TrendStable, StrengthWeak},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := ClassifyTrend(series(p, tc.scores...), 0, p)
			require.NoError(t, err)
			assert.Equal(t, tc.direction, tr.Direction)
			assert.Equal(t, tc.strength, tr.Strength)
			assert.Equal(t, len(tc.scores), tr.Points)
		})
	}
}

func TestClassifyTrend_Insufficient(t *testing.T) {
	p := threeComponentProfile(t)

	for _, n := range []int{0, 1} {
		tr, err := ClassifyTrend(series(p, make([]float64, n)...), 0, p)
		assert.ErrorIs(t, err, ErrInsufficientHistory)
		assert.Equal(t, TrendInsufficient, tr.Direction)
		assert.NotEqual(t, TrendStable, tr.Direction)
	}
}

func TestClassifyTrend_WindowUsesMostRecentEntries(t *testing.T) {
	p := threeComponentProfile(t)
	history := series(p, 90, 80, 70, 60, 62, 64, 66)

	tr, err := ClassifyTrend(history, 4, p)

	require.NoError(t, err)
	assert.Equal(t, 4, tr.Points)
	assert.Equal(t, TrendImproving, tr.Direction)
	assert.InDelta(t, 2.0, tr.Slope, 1e-9)
}

func TestClassifyTrend_OrdersByPeriod(t *testing.T) {
	p := threeComponentProfile(t)
	history := series(p, 40, 50, 60)
	history[0], history[2] = history[2], history[0]

	tr, err := ClassifyTrend(history, 0, p)

	require.NoError(t, err)
	assert.Equal(t, TrendImproving, tr.Direction)
}

func TestClassifyTrend_Monotonicity(t *testing.T) {
	p := threeComponentProfile(t)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		n := 2 + rng.Intn(8)
		up := make([]float64, n)
		down := make([]float64, n)
		v := rng.Float64() * 50
		for j := 0; j < n; j++ {
			v += 0.001 + rng.Float64()*5
			up[j] = v
			down[n-1-j] = v
		}

		trUp, err := ClassifyTrend(series(p, up...), n, p)
		require.NoError(t, err)
		assert.NotEqual(t, TrendDeclining, trUp.Direction)

		trDown, err := ClassifyTrend(series(p, down...), n, p)
		require.NoError(t, err)
		assert.NotEqual(t, TrendImproving, trDown.Direction)
	}
}
