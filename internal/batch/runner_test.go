package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/account-health/internal/repository/models"
	"github.com/godilite/account-health/internal/scoring"
	"github.com/godilite/account-health/internal/service"
)

type fakeScorer struct {
	fn       func(ctx context.Context, accountID string) (service.ScoreResult, error)
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeScorer) ScoreAccount(ctx context.Context, accountID string, asOf time.Time) (service.ScoreResult, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return f.fn(ctx, accountID)
}

type fakeLister struct {
	accounts []models.Account
	err      error
}

func (f fakeLister) List(ctx context.Context, ownerID string) ([]models.Account, error) {
	return f.accounts, f.err
}

type fakeRuns struct {
	mu       sync.Mutex
	started  []models.BatchRun
	finished []models.BatchRun
	failures []models.ScoreFailure
}

func (f *fakeRuns) Start(ctx context.Context, run models.BatchRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, run)
	return nil
}

func (f *fakeRuns) Finish(ctx context.Context, run models.BatchRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, run)
	return nil
}

func (f *fakeRuns) RecordFailure(ctx context.Context, fl models.ScoreFailure) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, fl)
	return nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	raised   []string
	runs     int
}

func (f *fakeRecorder) BatchStarted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
}

func (f *fakeRecorder) BatchFinished(d time.Duration) {}

func (f *fakeRecorder) AccountScored(outcome string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outcomes == nil {
		f.outcomes = make(map[string]int)
	}
	f.outcomes[outcome]++
}

func (f *fakeRecorder) RiskSignalRaised(t string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raised = append(f.raised, t)
}

func accounts(ids ...string) []models.Account {
	out := make([]models.Account, len(ids))
	for i, id := range ids {
		out[i] = models.Account{ID: id}
	}
	return out
}

var asOf = time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)

func TestRunner_Run(t *testing.T) {
	scorer := &fakeScorer{fn: func(ctx context.Context, id string) (service.ScoreResult, error) {
		switch id {
		case "dup":
			return service.ScoreResult{Duplicate: true}, nil
		case "thin":
			return service.ScoreResult{}, fmt.Errorf("%w: no components", scoring.ErrInsufficientSignal)
		case "broken":
			return service.ScoreResult{}, errors.New("disk on fire")
		case "risky":
			return service.ScoreResult{EmittedSignals: []scoring.RiskSignal{{Type: scoring.RiskUsageDrop}}}, nil
		}
		return service.ScoreResult{}, nil
	}}
	runs := &fakeRuns{}
	rec := &fakeRecorder{}
	r := NewRunner(scorer, fakeLister{accounts: accounts("a", "b", "dup", "thin", "broken", "risky")}, runs, rec, zap.NewNop(), Config{Workers: 2})
	r.newID = func() string { return "run-1" }

	report, err := r.Run(context.Background(), asOf)

	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "2025-03-10", report.Period)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 3, report.Scored)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 1, report.Insufficient)
	assert.Equal(t, 1, report.Failed)

	require.Len(t, report.Failures, 2)
	assert.Equal(t, "broken", report.Failures[0].AccountID)
	assert.Equal(t, models.FailureError, report.Failures[0].Reason)
	assert.Equal(t, "thin", report.Failures[1].AccountID)
	assert.Equal(t, models.FailureInsufficientSignal, report.Failures[1].Reason)

	require.Len(t, runs.started, 1)
	require.Len(t, runs.finished, 1)
	assert.NotNil(t, runs.finished[0].FinishedAt)
	assert.Equal(t, 3, runs.finished[0].Scored)
	assert.Len(t, runs.failures, 2)

	assert.Equal(t, 1, rec.runs)
	assert.Equal(t, 3, rec.outcomes["scored"])
	assert.Equal(t, 1, rec.outcomes["error"])
	assert.Equal(t, []string{"usage_drop"}, rec.raised)
	assert.LessOrEqual(t, int(scorer.peak.Load()), 2)
}

func TestRunner_StuckAccountTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	scorer := &fakeScorer{fn: func(ctx context.Context, id string) (service.ScoreResult, error) {
		if id == "stuck" {
			<-release // ignores ctx on purpose
		}
		return service.ScoreResult{}, nil
	}}
	runs := &fakeRuns{}
	r := NewRunner(scorer, fakeLister{accounts: accounts("a", "stuck", "z")}, runs, nil, zap.NewNop(),
		Config{Workers: 1, AccountTimeout: 20 * time.Millisecond})

	start := time.Now()
	report, err := r.Run(context.Background(), asOf)

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 2, report.Scored)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "stuck", report.Failures[0].AccountID)
	assert.Equal(t, models.FailureTimeout, report.Failures[0].Reason)
	require.Len(t, runs.failures, 1, "failure is recorded even though the account context expired")
}

func TestRunner_PanickingAccountIsIsolated(t *testing.T) {
	scorer := &fakeScorer{fn: func(ctx context.Context, id string) (service.ScoreResult, error) {
		if id == "malformed" {
			var components map[scoring.Component]float64
			components[scoring.ComponentUsage] = 1
		}
		return service.ScoreResult{}, nil
	}}
	runs := &fakeRuns{}
	rec := &fakeRecorder{}
	r := NewRunner(scorer, fakeLister{accounts: accounts("a", "malformed", "z")}, runs, rec, zap.NewNop(), Config{Workers: 1})

	report, err := r.Run(context.Background(), asOf)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Scored)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "malformed", report.Failures[0].AccountID)
	assert.Equal(t, models.FailureError, report.Failures[0].Reason)
	assert.Contains(t, report.Failures[0].Error, "scorer panicked")
	assert.Equal(t, 1, rec.outcomes["error"])
	assert.Len(t, runs.failures, 1)
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	scorer := &fakeScorer{fn: func(c context.Context, id string) (service.ScoreResult, error) {
		cancel()
		<-c.Done()
		return service.ScoreResult{}, c.Err()
	}}
	runs := &fakeRuns{}
	r := NewRunner(scorer, fakeLister{accounts: accounts("a", "b", "c", "d")}, runs, nil, zap.NewNop(), Config{Workers: 1})

	report, err := r.Run(ctx, asOf)

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, report.Scored+report.Failed, 4)
	require.Len(t, runs.finished, 1)
}

func TestRunner_ListFailure(t *testing.T) {
	runs := &fakeRuns{}
	r := NewRunner(&fakeScorer{}, fakeLister{err: errors.New("db down")}, runs, nil, nil, Config{})

	_, err := r.Run(context.Background(), asOf)

	require.Error(t, err)
	assert.Empty(t, runs.started)
}

func TestNewRunner(t *testing.T) {
	assert.Panics(t, func() { NewRunner(nil, fakeLister{}, &fakeRuns{}, nil, nil, Config{}) })

	r := NewRunner(&fakeScorer{}, fakeLister{}, &fakeRuns{}, nil, nil, Config{})
	assert.Equal(t, DefaultWorkers, r.cfg.Workers)
	assert.Equal(t, DefaultAccountTimeout, r.cfg.AccountTimeout)
}
