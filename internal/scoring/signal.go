package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Component is one named category of input signal.
type Component string

const (
	ComponentUsage      Component = "usage"
	ComponentEngagement Component = "engagement"
	ComponentSentiment  Component = "sentiment"
	ComponentSupport    Component = "support"
	ComponentFinancial  Component = "financial"
	ComponentCoverage   Component = "coverage"
	ComponentCustom     Component = "custom"
)

// Components lists every known component in canonical order. Weighted sums
// iterate in this order so that repeated computations are bit-identical.
var Components = []Component{
	ComponentUsage,
	ComponentEngagement,
	ComponentSentiment,
	ComponentSupport,
	ComponentFinancial,
	ComponentCoverage,
	ComponentCustom,
}

// Valid reports whether c is one of the known components.
func (c Component) Valid() bool {
	for _, known := range Components {
		if c == known {
			return true
		}
	}
	return false
}

// ParseComponent converts a string to a Component, rejecting unknown names.
func ParseComponent(s string) (Component, error) {
	c := Component(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown component %q", ErrInvalidSignal, s)
	}
	return c, nil
}

// Signal is one already-normalized metric observation for one account.
type Signal struct {
	AccountID       string    `json:"account_id"`
	Component       Component `json:"component"`
	RawValue        float64   `json:"raw_value"`
	NormalizedValue float64   `json:"normalized_value"`
	ObservedAt      time.Time `json:"observed_at"`
	Source          string    `json:"source"`
}

// Validate rejects signals the engine cannot consume.
func (s Signal) Validate() error {
	if strings.TrimSpace(s.AccountID) == "" {
		return fmt.Errorf("%w: account_id is required", ErrInvalidSignal)
	}
	if !s.Component.Valid() {
		return fmt.Errorf("%w: unknown component %q", ErrInvalidSignal, s.Component)
	}
	if math.IsNaN(s.NormalizedValue) || s.NormalizedValue < 0 || s.NormalizedValue > 100 {
		return fmt.Errorf("%w: normalized_value %v outside [0,100]", ErrInvalidSignal, s.NormalizedValue)
	}
	if math.IsNaN(s.RawValue) || math.IsInf(s.RawValue, 0) {
		return fmt.Errorf("%w: raw_value must be finite", ErrInvalidSignal)
	}
	if s.ObservedAt.IsZero() {
		return fmt.Errorf("%w: observed_at is required", ErrInvalidSignal)
	}
	return nil
}

// LatestByComponent picks, for each component, the most recent signal for
// accountID observed at or before asOf. Later entries in the slice win ties.
func LatestByComponent(accountID string, signals []Signal, asOf time.Time) map[Component]Signal {
	latest := make(map[Component]Signal, len(Components))
	for _, s := range signals {
		if s.AccountID != accountID || s.ObservedAt.After(asOf) {
			continue
		}
		cur, ok := latest[s.Component]
		if !ok || !s.ObservedAt.Before(cur.ObservedAt) {
			latest[s.Component] = s
		}
	}
	return latest
}

// PeriodKey returns the daily period identifier a score computed at t belongs to.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
