package scoring

import (
	"fmt"
	"strings"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.Valid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

type RiskStatus string

const (
	RiskActive       RiskStatus = "active"
	RiskAcknowledged RiskStatus = "acknowledged"
	RiskResolved     RiskStatus = "resolved"
)

type RiskType string

const (
	RiskUsageDrop         RiskType = "usage_drop"
	RiskNoContact         RiskType = "no_contact"
	RiskHealthCritical    RiskType = "health_critical"
	RiskScoreDecline      RiskType = "score_decline"
	RiskRenewal           RiskType = "renewal_risk"
	RiskChampionChange    RiskType = "champion_change"
	RiskSupportEscalation RiskType = "support_escalation"
	RiskPaymentIssue      RiskType = "payment_issue"
)

var riskTypes = []RiskType{
	RiskUsageDrop, RiskNoContact, RiskHealthCritical, RiskScoreDecline,
	RiskRenewal, RiskChampionChange, RiskSupportEscalation, RiskPaymentIssue,
}

func (t RiskType) Valid() bool {
	for _, known := range riskTypes {
		if t == known {
			return true
		}
	}
	return false
}

func ParseRiskType(s string) (RiskType, error) {
	t := RiskType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown risk signal type %q", s)
	}
	return t, nil
}

// RiskSignal is a lifecycle-managed risk event, distinct from raw metrics.
type RiskSignal struct {
	ID             string     `json:"id"`
	AccountID      string     `json:"account_id"`
	Type           RiskType   `json:"type"`
	Severity       Severity   `json:"severity"`
	Status         RiskStatus `json:"status"`
	Details        string     `json:"details,omitempty"`
	DetectedAt     time.Time  `json:"detected_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	Outcome        string     `json:"outcome,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// Open reports whether the signal still counts against the account.
func (s RiskSignal) Open() bool {
	return s.Status != RiskResolved
}

// Acknowledge moves an active signal to acknowledged.
func (s *RiskSignal) Acknowledge(at time.Time, notes string) error {
	if s.Status != RiskActive {
		return fmt.Errorf("%w: cannot acknowledge %s signal %s", ErrInvalidTransition, s.Status, s.ID)
	}
	at = at.UTC()
	s.Status = RiskAcknowledged
	s.AcknowledgedAt = &at
	s.Notes = notes
	return nil
}

// Resolve closes an active or acknowledged signal.
func (s *RiskSignal) Resolve(at time.Time, outcome, notes string) error {
	if !s.Open() {
		return fmt.Errorf("%w: signal %s is already resolved", ErrInvalidTransition, s.ID)
	}
	at = at.UTC()
	s.Status = RiskResolved
	s.ResolvedAt = &at
	s.Outcome = outcome
	if notes != "" {
		s.Notes = notes
	}
	return nil
}
