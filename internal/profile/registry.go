package profile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/godilite/account-health/internal/scoring"
)

// DefaultName is the name of the built-in profile.
const DefaultName = "default"

// DefaultProfile returns the built-in profile used when no profiles file is
// configured and for accounts whose tier no profile serves.
func DefaultProfile() *scoring.WeightingProfile {
	p := &scoring.WeightingProfile{
		Name:    DefaultName,
		Version: 1,
		Weights: map[scoring.Component]float64{
			scoring.ComponentUsage:      0.30,
			scoring.ComponentEngagement: 0.25,
			scoring.ComponentSentiment:  0.15,
			scoring.ComponentSupport:    0.15,
			scoring.ComponentFinancial:  0.10,
			scoring.ComponentCoverage:   0.05,
		},
		Thresholds: []scoring.CategoryThreshold{
			{Category: "critical", MinScore: 0, MaxScore: 40},
			{Category: "warning", MinScore: 40, MaxScore: 70},
			{Category: "healthy", MinScore: 70, MaxScore: 100},
		},
		FreshnessWindow: 30 * 24 * time.Hour,
	}
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return p
}

// Registry holds validated, immutable profiles keyed by name and version.
// It is safe for concurrent reads.
type Registry struct {
	byRef      map[string]*scoring.WeightingProfile
	latest     map[string]*scoring.WeightingProfile
	defaultRef string
}

// NewRegistry indexes profiles. defaultName picks the fallback profile by
// name (latest version); when empty, a profile named "default" is used if
// present, otherwise the first profile given.
func NewRegistry(defaultName string, profiles ...*scoring.WeightingProfile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: registry needs at least one profile", scoring.ErrInvalidProfile)
	}

	r := &Registry{
		byRef:  make(map[string]*scoring.WeightingProfile, len(profiles)),
		latest: make(map[string]*scoring.WeightingProfile),
	}
	for _, p := range profiles {
		if _, dup := r.byRef[p.Ref()]; dup {
			return nil, fmt.Errorf("%w: %s defined twice", scoring.ErrInvalidProfile, p.Ref())
		}
		r.byRef[p.Ref()] = p
		if cur, ok := r.latest[p.Name]; !ok || p.Version > cur.Version {
			r.latest[p.Name] = p
		}
	}

	switch {
	case defaultName != "":
		p, ok := r.latest[defaultName]
		if !ok {
			return nil, fmt.Errorf("%w: default profile %q not defined", scoring.ErrInvalidProfile, defaultName)
		}
		r.defaultRef = p.Ref()
	case r.latest[DefaultName] != nil:
		r.defaultRef = r.latest[DefaultName].Ref()
	default:
		r.defaultRef = profiles[0].Ref()
	}
	return r, nil
}

// Default returns the fallback profile.
func (r *Registry) Default() *scoring.WeightingProfile {
	return r.byRef[r.defaultRef]
}

// ForTier returns the latest version of the profile serving tier, or the
// default profile when none does. Ties between names go to the
// alphabetically first name.
func (r *Registry) ForTier(tier string) *scoring.WeightingProfile {
	if tier == "" {
		return r.Default()
	}
	names := make([]string, 0, len(r.latest))
	for name := range r.latest {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := r.latest[name]; p.ServesTier(tier) {
			return p
		}
	}
	return r.Default()
}

// Get resolves "name@version", or "name" for the latest version.
func (r *Registry) Get(ref string) (*scoring.WeightingProfile, bool) {
	if !strings.Contains(ref, "@") {
		p, ok := r.latest[ref]
		return p, ok
	}
	p, ok := r.byRef[ref]
	return p, ok
}

// All returns every profile ordered by name then version.
func (r *Registry) All() []*scoring.WeightingProfile {
	out := make([]*scoring.WeightingProfile, 0, len(r.byRef))
	for _, p := range r.byRef {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}
