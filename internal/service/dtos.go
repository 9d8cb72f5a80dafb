package service

import (
	"time"

	"github.com/godilite/account-health/internal/scoring"
)

// ScoreResult is the outcome of one scoring pass for one account.
type ScoreResult struct {
	Entry          scoring.ScoreHistoryEntry
	Transition     scoring.Transition
	Trend          scoring.Trend
	EmittedSignals []scoring.RiskSignal
	// Duplicate is set when the period was already scored; Entry then holds
	// the committed entry and no risk signals are evaluated.
	Duplicate bool
}

type IngestResult struct {
	Accepted   int
	Duplicates int
}

type ScoreHistory struct {
	AccountID string
	Entries   []scoring.ScoreHistoryEntry
	Trend     scoring.Trend
}

// PortfolioReport is the portfolio as of a date together with the same
// rollup one week earlier.
type PortfolioReport struct {
	Current scoring.PortfolioSummary
	Prior   scoring.PortfolioSummary
	Trend   scoring.PortfolioTrend
}

type PriorityQuery struct {
	OwnerID string
	AsOf    time.Time
	Filter  scoring.PriorityFilter
}

type RaiseRequest struct {
	AccountID string
	Type      scoring.RiskType
	Severity  scoring.Severity
	Details   string
}
