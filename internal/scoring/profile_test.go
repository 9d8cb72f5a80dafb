package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileValidate_Weights(t *testing.T) {
	t.Run("sum within tolerance", func(t *testing.T) {
		p := threeComponentProfile(t)
		var sum float64
		for _, w := range p.Weights {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, WeightTolerance)
	})

	t.Run("sum off by more than tolerance", func(t *testing.T) {
		p := threeComponentProfile(t)
		p.Weights[ComponentSentiment] = 0.2500011
		err := p.Validate()
		assert.ErrorIs(t, err, ErrInvalidProfile)
		assert.Contains(t, err.Error(), "weights must sum to 1")
	})

	t.Run("negative weight", func(t *testing.T) {
		p := threeComponentProfile(t)
		p.Weights[ComponentUsage] = -0.4
		p.Weights[ComponentEngagement] = 1.15
		assert.ErrorIs(t, p.Validate(), ErrInvalidProfile)
	})

	t.Run("unknown component", func(t *testing.T) {
		p := threeComponentProfile(t)
		p.Weights["nps"] = 0
		assert.ErrorIs(t, p.Validate(), ErrInvalidProfile)
	})

	t.Run("empty weights", func(t *testing.T) {
		p := threeComponentProfile(t)
		p.Weights = nil
		assert.ErrorIs(t, p.Validate(), ErrInvalidProfile)
	})
}

func TestProfileValidate_Thresholds(t *testing.T) {
	cases := []struct {
		name       string
		thresholds []CategoryThreshold
		wantErr    string
	}{
		{
			name: "gap",
			thresholds: []CategoryThreshold{
				{Category: "critical", MinScore: 0, MaxScore: 40},
				{Category: "healthy", MinScore: 50, MaxScore: 100},
			},
			wantErr: "gap",
		},
		{
			name: "overlap",
			thresholds: []CategoryThreshold{
				{Category: "critical", MinScore: 0, MaxScore: 45},
				{Category: "healthy", MinScore: 40, MaxScore: 100},
			},
			wantErr: "overlaps",
		},
		{
			name: "does not start at zero",
			thresholds: []CategoryThreshold{
				{Category: "healthy", MinScore: 10, MaxScore: 100},
			},
			wantErr: "start at 0",
		},
		{
			name: "does not reach 100",
			thresholds: []CategoryThreshold{
				{Category: "healthy", MinScore: 0, MaxScore: 90},
			},
			wantErr: "end at 100",
		},
		{
			name: "duplicate category",
			thresholds: []CategoryThreshold{
				{Category: "x", MinScore: 0, MaxScore: 50},
				{Category: "x", MinScore: 50, MaxScore: 100},
			},
			wantErr: "defined twice",
		},
		{
			name:    "none",
			wantErr: "at least one category",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := threeComponentProfile(t)
			p.Thresholds = tc.thresholds
			err := p.Validate()
			assert.ErrorIs(t, err, ErrInvalidProfile)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestProfileValidate_SortsThresholdsAndAppliesDefaults(t *testing.T) {
	p := threeComponentProfile(t)

	require.Len(t, p.Thresholds, 3)
	assert.Equal(t, "critical", p.Thresholds[0].Category)
	assert.Equal(t, "healthy", p.Thresholds[2].Category)
	assert.Equal(t, "critical", p.CriticalCategory())
	assert.Equal(t, "healthy", p.HealthyCategory())
	assert.Equal(t, 6, p.TrendWindow)
	assert.Equal(t, 60.0, p.UrgencyCutoffDays)
	assert.Equal(t, 0.4, p.SeverityWeights[SeverityCritical])
	assert.Equal(t, 40.0, p.Detection.UsageDropPercent)
}

func TestClassify_Boundaries(t *testing.T) {
	p := threeComponentProfile(t)

	cases := []struct {
		score float64
		want  string
	}{
		{0, "critical"},
		{39.999, "critical"},
		{40, "warning"},
		{69.999, "warning"},
		{70, "healthy"},
		{99.9, "healthy"},
		{100, "healthy"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, p.Classify(tc.score), "score %v", tc.score)
		assert.Equal(t, p.Classify(tc.score), p.Classify(tc.score))
	}
}

func TestClassify_EveryScoreHasExactlyOneCategory(t *testing.T) {
	p := threeComponentProfile(t)
	for s := 0.0; s <= 100; s += 0.25 {
		matches := 0
		for i, th := range p.Thresholds {
			last := i == len(p.Thresholds)-1
			if s >= th.MinScore && (s < th.MaxScore || (last && s <= th.MaxScore)) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "score %v", s)
		assert.NotEmpty(t, p.Classify(s))
	}
}

func TestServesTier(t *testing.T) {
	p := threeComponentProfile(t)
	p.Tiers = []string{"Enterprise", "strategic"}

	assert.True(t, p.ServesTier("enterprise"))
	assert.False(t, p.ServesTier("smb"))
}
