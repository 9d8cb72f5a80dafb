package models

import "time"

// FailureReason classifies why one account could not be scored in a run.
type FailureReason string

const (
	FailureInsufficientSignal FailureReason = "insufficient_signal"
	FailureTimeout            FailureReason = "timeout"
	FailureError              FailureReason = "error"
)

type BatchRun struct {
	ID           string
	Period       string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Total        int
	Scored       int
	Duplicates   int
	Insufficient int
	Failed       int
}

// ScoreFailure records one account that a batch run skipped.
type ScoreFailure struct {
	RunID     string
	AccountID string
	Period    string
	Reason    FailureReason
	Error     string
}
