// Package profile loads weighting profiles from YAML and resolves which
// profile applies to an account.
package profile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/godilite/account-health/internal/scoring"
)

// File is the on-disk layout of a profiles document.
type File struct {
	Default  string        `yaml:"default"`
	Profiles []ProfileSpec `yaml:"profiles"`
}

// ProfileSpec is one profile as written in YAML. Tunables left out of the
// document take the engine defaults; an explicit zero is kept.
type ProfileSpec struct {
	Name       string                      `yaml:"name"`
	Version    int                         `yaml:"version"`
	Tiers      []string                    `yaml:"tiers"`
	Weights    map[string]float64          `yaml:"weights"`
	Thresholds []scoring.CategoryThreshold `yaml:"thresholds"`

	Trend struct {
		StabilityEpsilon *float64 `yaml:"stability_epsilon"`
		Window           *int     `yaml:"window"`
		ModerateSlope    *float64 `yaml:"moderate_slope"`
		StrongSlope      *float64 `yaml:"strong_slope"`
	} `yaml:"trend"`

	FreshnessWindow *string `yaml:"freshness_window"`

	Priority struct {
		UrgencyCutoffDays *float64           `yaml:"urgency_cutoff_days"`
		UrgencyBoost      *float64           `yaml:"urgency_boost"`
		ARRLogScale       *float64           `yaml:"arr_log_scale"`
		SeverityWeights   map[string]float64 `yaml:"severity_weights"`
	} `yaml:"priority"`

	Detection struct {
		UsageDropPercent    *float64 `yaml:"usage_drop_percent"`
		UsageDropWindowDays *int     `yaml:"usage_drop_window_days"`
		NoContactDays       *int     `yaml:"no_contact_days"`
		ScoreDeclinePoints  *float64 `yaml:"score_decline_points"`
		RenewalWindowDays   *int     `yaml:"renewal_window_days"`
	} `yaml:"detection"`
}

// Load reads a profiles file. A missing file yields a registry holding only
// DefaultProfile.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry("", DefaultProfile())
		}
		return nil, fmt.Errorf("reading profiles: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a profiles document. Every profile must pass
// validation or the whole document is rejected.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	if len(f.Profiles) == 0 {
		return nil, fmt.Errorf("%w: no profiles defined", scoring.ErrInvalidProfile)
	}

	profiles := make([]*scoring.WeightingProfile, 0, len(f.Profiles))
	for _, spec := range f.Profiles {
		p, err := spec.toProfile()
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return NewRegistry(f.Default, profiles...)
}

func (s ProfileSpec) toProfile() (*scoring.WeightingProfile, error) {
	p := &scoring.WeightingProfile{
		Name:       s.Name,
		Version:    s.Version,
		Tiers:      s.Tiers,
		Weights:    make(map[scoring.Component]float64, len(s.Weights)),
		Thresholds: append([]scoring.CategoryThreshold(nil), s.Thresholds...),
	}
	for name, w := range s.Weights {
		p.Weights[scoring.Component(name)] = w
	}
	if len(s.Priority.SeverityWeights) > 0 {
		p.SeverityWeights = make(map[scoring.Severity]float64, len(s.Priority.SeverityWeights))
		for name, w := range s.Priority.SeverityWeights {
			p.SeverityWeights[scoring.Severity(name)] = w
		}
	}
	p.ApplyDefaults()

	set(&p.StabilityEpsilon, s.Trend.StabilityEpsilon)
	set(&p.TrendWindow, s.Trend.Window)
	set(&p.TrendModerateSlope, s.Trend.ModerateSlope)
	set(&p.TrendStrongSlope, s.Trend.StrongSlope)
	set(&p.UrgencyCutoffDays, s.Priority.UrgencyCutoffDays)
	set(&p.UrgencyBoost, s.Priority.UrgencyBoost)
	set(&p.ARRLogScale, s.Priority.ARRLogScale)
	set(&p.Detection.UsageDropPercent, s.Detection.UsageDropPercent)
	set(&p.Detection.UsageDropWindowDays, s.Detection.UsageDropWindowDays)
	set(&p.Detection.NoContactDays, s.Detection.NoContactDays)
	set(&p.Detection.ScoreDeclinePoints, s.Detection.ScoreDeclinePoints)
	set(&p.Detection.RenewalWindowDays, s.Detection.RenewalWindowDays)

	if s.FreshnessWindow != nil {
		d, err := time.ParseDuration(*s.FreshnessWindow)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: freshness_window: %v", scoring.ErrInvalidProfile, p.Ref(), err)
		}
		p.FreshnessWindow = d
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
