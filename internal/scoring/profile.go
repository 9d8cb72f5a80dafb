package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	// WeightTolerance bounds the drift allowed when checking that weights sum to 1.
	WeightTolerance = 1e-6

	boundaryTolerance = 1e-9
)

// CategoryThreshold maps the score range [MinScore, MaxScore) to a category.
// The highest range also includes MaxScore.
type CategoryThreshold struct {
	Category string  `json:"category" yaml:"category"`
	MinScore float64 `json:"min_score" yaml:"min_score"`
	MaxScore float64 `json:"max_score" yaml:"max_score"`
}

// DetectionRules configures the risk signal detector for one profile.
type DetectionRules struct {
	UsageDropPercent    float64 `json:"usage_drop_percent"`
	UsageDropWindowDays int     `json:"usage_drop_window_days"`
	NoContactDays       int     `json:"no_contact_days"`
	ScoreDeclinePoints  float64 `json:"score_decline_points"`
	RenewalWindowDays   int     `json:"renewal_window_days"`
}

// WeightingProfile is a named, versioned weighting scheme. A profile must not
// be mutated once Validate has succeeded.
type WeightingProfile struct {
	Name       string                `json:"name"`
	Version    int                   `json:"version"`
	Tiers      []string              `json:"tiers"`
	Weights    map[Component]float64 `json:"weights"`
	Thresholds []CategoryThreshold   `json:"thresholds"`

	StabilityEpsilon   float64       `json:"stability_epsilon"`
	TrendWindow        int           `json:"trend_window"`
	TrendModerateSlope float64       `json:"trend_moderate_slope"`
	TrendStrongSlope   float64       `json:"trend_strong_slope"`
	FreshnessWindow    time.Duration `json:"freshness_window"`

	UrgencyCutoffDays float64              `json:"urgency_cutoff_days"`
	UrgencyBoost      float64              `json:"urgency_boost"`
	ARRLogScale       float64              `json:"arr_log_scale"`
	SeverityWeights   map[Severity]float64 `json:"severity_weights"`

	Detection DetectionRules `json:"detection"`
}

// Ref identifies the exact profile version that produced a score.
func (p *WeightingProfile) Ref() string {
	return fmt.Sprintf("%s@%d", p.Name, p.Version)
}

// ApplyDefaults fills every zero-valued tunable with the engine default.
// Callers that need an explicit zero set the field after calling it.
func (p *WeightingProfile) ApplyDefaults() {
	if p.StabilityEpsilon == 0 {
		p.StabilityEpsilon = 0.5
	}
	if p.TrendWindow == 0 {
		p.TrendWindow = 6
	}
	if p.TrendModerateSlope == 0 {
		p.TrendModerateSlope = 1
	}
	if p.TrendStrongSlope == 0 {
		p.TrendStrongSlope = 3
	}
	if p.FreshnessWindow == 0 {
		p.FreshnessWindow = 30 * 24 * time.Hour
	}
	if p.UrgencyCutoffDays == 0 {
		p.UrgencyCutoffDays = 60
	}
	if p.UrgencyBoost == 0 {
		p.UrgencyBoost = 3
	}
	if p.ARRLogScale == 0 {
		p.ARRLogScale = 10_000
	}
	if p.SeverityWeights == nil {
		p.SeverityWeights = map[Severity]float64{
			SeverityLow:      0.05,
			SeverityMedium:   0.1,
			SeverityHigh:     0.2,
			SeverityCritical: 0.4,
		}
	}
	d := &p.Detection
	if d.UsageDropPercent == 0 {
		d.UsageDropPercent = 40
	}
	if d.UsageDropWindowDays == 0 {
		d.UsageDropWindowDays = 30
	}
	if d.NoContactDays == 0 {
		d.NoContactDays = 30
	}
	if d.ScoreDeclinePoints == 0 {
		d.ScoreDeclinePoints = 10
	}
	if d.RenewalWindowDays == 0 {
		d.RenewalWindowDays = 90
	}
}

// Validate sorts thresholds ascending and checks the profile is internally
// consistent. It does not fill defaults; see ApplyDefaults.
func (p *WeightingProfile) Validate() error {
	var errs []string

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, "name is required")
	}
	if p.Version < 1 {
		errs = append(errs, "version must be >= 1")
	}

	if len(p.Weights) == 0 {
		errs = append(errs, "at least one component weight is required")
	}
	var sum float64
	for _, c := range Components {
		w, ok := p.Weights[c]
		if !ok {
			continue
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			errs = append(errs, fmt.Sprintf("weight for %s must be a non-negative number", c))
			continue
		}
		sum += w
	}
	for c := range p.Weights {
		if !c.Valid() {
			errs = append(errs, fmt.Sprintf("unknown component %q", c))
		}
	}
	if len(p.Weights) > 0 && math.Abs(sum-1) > WeightTolerance {
		errs = append(errs, fmt.Sprintf("weights must sum to 1, got %.9f", sum))
	}

	errs = append(errs, p.validateThresholds()...)

	if p.StabilityEpsilon < 0 {
		errs = append(errs, "stability_epsilon must be >= 0")
	}
	if p.TrendWindow < 2 {
		errs = append(errs, "trend_window must be >= 2")
	}
	if p.TrendStrongSlope < p.TrendModerateSlope {
		errs = append(errs, "trend_strong_slope must be >= trend_moderate_slope")
	}
	if p.UrgencyCutoffDays < 0 || p.UrgencyBoost < 0 {
		errs = append(errs, "urgency_cutoff_days and urgency_boost must be >= 0")
	}
	if p.ARRLogScale <= 0 {
		errs = append(errs, "arr_log_scale must be > 0")
	}
	d := p.Detection
	if d.UsageDropPercent < 0 || d.UsageDropWindowDays < 0 || d.NoContactDays < 0 ||
		d.ScoreDeclinePoints < 0 || d.RenewalWindowDays < 0 {
		errs = append(errs, "detection thresholds must be >= 0")
	}
	if p.FreshnessWindow < 0 {
		errs = append(errs, "freshness_window must be >= 0")
	}
	for sev, w := range p.SeverityWeights {
		if !sev.Valid() {
			errs = append(errs, fmt.Sprintf("unknown severity %q", sev))
		}
		if w < 0 {
			errs = append(errs, fmt.Sprintf("severity weight for %s must be >= 0", sev))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrInvalidProfile, p.Ref(), strings.Join(errs, "; "))
	}
	return nil
}

func (p *WeightingProfile) validateThresholds() []string {
	if len(p.Thresholds) == 0 {
		return []string{"at least one category threshold is required"}
	}

	sort.SliceStable(p.Thresholds, func(i, j int) bool {
		return p.Thresholds[i].MinScore < p.Thresholds[j].MinScore
	})

	var errs []string
	seen := make(map[string]bool, len(p.Thresholds))
	for i, t := range p.Thresholds {
		if strings.TrimSpace(t.Category) == "" {
			errs = append(errs, fmt.Sprintf("threshold %d has no category", i))
		}
		if seen[t.Category] {
			errs = append(errs, fmt.Sprintf("category %q defined twice", t.Category))
		}
		seen[t.Category] = true
		if t.MaxScore <= t.MinScore {
			errs = append(errs, fmt.Sprintf("category %q: max_score must be > min_score", t.Category))
		}
		if i > 0 {
			prev := p.Thresholds[i-1]
			switch {
			case t.MinScore > prev.MaxScore+boundaryTolerance:
				errs = append(errs, fmt.Sprintf("gap between %q and %q", prev.Category, t.Category))
			case t.MinScore < prev.MaxScore-boundaryTolerance:
				errs = append(errs, fmt.Sprintf("%q overlaps %q", prev.Category, t.Category))
			}
		}
	}
	if first := p.Thresholds[0]; math.Abs(first.MinScore) > boundaryTolerance {
		errs = append(errs, "thresholds must start at 0")
	}
	if last := p.Thresholds[len(p.Thresholds)-1]; math.Abs(last.MaxScore-100) > boundaryTolerance {
		errs = append(errs, "thresholds must end at 100")
	}
	return errs
}

// Classify maps a score to its category. Lower bounds are inclusive, upper
// bounds exclusive, except the top range which includes 100.
func (p *WeightingProfile) Classify(score float64) string {
	last := len(p.Thresholds) - 1
	for i, t := range p.Thresholds {
		if score < t.MinScore {
			continue
		}
		if score < t.MaxScore || (i == last && score <= t.MaxScore) {
			return t.Category
		}
	}
	if last < 0 {
		return ""
	}
	if score < p.Thresholds[0].MinScore {
		return p.Thresholds[0].Category
	}
	return p.Thresholds[last].Category
}

// CategoryRank returns the position of a category from the lowest range (0)
// upwards, or -1 if the profile does not define it.
func (p *WeightingProfile) CategoryRank(category string) int {
	for i, t := range p.Thresholds {
		if t.Category == category {
			return i
		}
	}
	return -1
}

// CriticalCategory is the category of the lowest score range.
func (p *WeightingProfile) CriticalCategory() string {
	if len(p.Thresholds) == 0 {
		return ""
	}
	return p.Thresholds[0].Category
}

// HealthyCategory is the category of the highest score range.
func (p *WeightingProfile) HealthyCategory() string {
	if len(p.Thresholds) == 0 {
		return ""
	}
	return p.Thresholds[len(p.Thresholds)-1].Category
}

// ServesTier reports whether the profile is scoped to tier.
func (p *WeightingProfile) ServesTier(tier string) bool {
	for _, t := range p.Tiers {
		if strings.EqualFold(t, tier) {
			return true
		}
	}
	return false
}
