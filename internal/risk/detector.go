// Package risk turns a freshly recorded score and the signals behind it into
// lifecycle-managed risk signals.
package risk

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/godilite/account-health/internal/scoring"
)

// Observation is everything the rules look at for one account after one
// scoring pass.
type Observation struct {
	Entry      scoring.ScoreHistoryEntry
	Transition scoring.Transition
	Profile    *scoring.WeightingProfile
	AsOf       time.Time

	// Usage holds usage signals inside the usage-drop window, oldest first.
	Usage []scoring.Signal
	// LastEngagement is when the latest engagement signal was observed; nil
	// when the account has never reported one.
	LastEngagement *time.Time
	RenewalDate    *time.Time
}

type Detector struct {
	newID func() string
}

func NewDetector() *Detector {
	return &Detector{newID: uuid.NewString}
}

// Detect evaluates every rule and returns the signals that fired, in rule
// order. It does not check for already-open signals; storage does. A rule
// whose threshold is zero is disabled.
func (d *Detector) Detect(o Observation) []scoring.RiskSignal {
	var out []scoring.RiskSignal
	emit := func(t scoring.RiskType, sev scoring.Severity, details string) {
		out = append(out, scoring.RiskSignal{
			ID:         d.newID(),
			AccountID:  o.Entry.AccountID,
			Type:       t,
			Severity:   sev,
			Status:     scoring.RiskActive,
			Details:    details,
			DetectedAt: o.AsOf.UTC(),
		})
	}

	rules := o.Profile.Detection

	if drop, from, to, ok := usageDrop(o.Usage); ok && rules.UsageDropPercent > 0 && drop >= rules.UsageDropPercent {
		sev := scoring.SeverityHigh
		if drop >= 1.5*rules.UsageDropPercent {
			sev = scoring.SeverityCritical
		}
		emit(scoring.RiskUsageDrop, sev, fmt.Sprintf("usage fell %.1f%% from %.1f to %.1f within %d days",
			drop, from, to, rules.UsageDropWindowDays))
	}

	if o.LastEngagement != nil && rules.NoContactDays > 0 {
		silent := o.AsOf.Sub(*o.LastEngagement)
		if silent > time.Duration(rules.NoContactDays)*24*time.Hour {
			emit(scoring.RiskNoContact, scoring.SeverityMedium, fmt.Sprintf("no engagement for %d days",
				int(silent.Hours()/24)))
		}
	}

	critical := o.Profile.CriticalCategory()
	if o.Entry.Category == critical && (o.Transition.EnteredCritical || o.Entry.PreviousScore == nil) {
		emit(scoring.RiskHealthCritical, scoring.SeverityCritical, fmt.Sprintf("score %.1f entered %s",
			o.Entry.WeightedScore, critical))
	}

	if o.Entry.Delta != nil && rules.ScoreDeclinePoints > 0 && *o.Entry.Delta <= -rules.ScoreDeclinePoints {
		sev := scoring.SeverityMedium
		if *o.Entry.Delta <= -2*rules.ScoreDeclinePoints {
			sev = scoring.SeverityHigh
		}
		emit(scoring.RiskScoreDecline, sev, fmt.Sprintf("score fell %.1f points since previous period",
			-*o.Entry.Delta))
	}

	if o.RenewalDate != nil && rules.RenewalWindowDays > 0 && o.Entry.Category != o.Profile.HealthyCategory() {
		until := o.RenewalDate.Sub(o.AsOf)
		if until >= 0 && until <= time.Duration(rules.RenewalWindowDays)*24*time.Hour {
			sev := scoring.SeverityMedium
			if o.Entry.Category == critical {
				sev = scoring.SeverityHigh
			}
			emit(scoring.RiskRenewal, sev, fmt.Sprintf("renewal in %d days while %s",
				int(until.Hours()/24), o.Entry.Category))
		}
	}

	return out
}

// usageDrop compares the latest usage reading against the peak before it and
// returns the fall as a percentage of the peak.
func usageDrop(usage []scoring.Signal) (pct, from, to float64, ok bool) {
	if len(usage) < 2 {
		return 0, 0, 0, false
	}
	latest := usage[len(usage)-1].NormalizedValue
	for _, s := range usage[:len(usage)-1] {
		from = max(from, s.NormalizedValue)
	}
	if from <= 0 || latest >= from {
		return 0, from, latest, false
	}
	return (from - latest) / from * 100, from, latest, true
}
