// Package batch scores every account for one period on a bounded worker
// pool. A failing or stuck account is recorded and skipped; it never stops
// the run.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/godilite/account-health/internal/repository/models"
	"github.com/godilite/account-health/internal/scoring"
	"github.com/godilite/account-health/internal/service"
)

const (
	DefaultWorkers        = 8
	DefaultAccountTimeout = 10 * time.Second

	// recordTimeout bounds bookkeeping writes made after an account's own
	// context has already expired.
	recordTimeout = 5 * time.Second
)

type Scorer interface {
	ScoreAccount(ctx context.Context, accountID string, asOf time.Time) (service.ScoreResult, error)
}

type AccountLister interface {
	List(ctx context.Context, ownerID string) ([]models.Account, error)
}

type RunStore interface {
	Start(ctx context.Context, run models.BatchRun) error
	Finish(ctx context.Context, run models.BatchRun) error
	RecordFailure(ctx context.Context, f models.ScoreFailure) error
}

type Recorder interface {
	BatchStarted()
	BatchFinished(d time.Duration)
	AccountScored(outcome string, d time.Duration)
	RiskSignalRaised(riskType string)
}

type Config struct {
	Workers        int
	AccountTimeout time.Duration
}

// Report summarizes one finished run.
type Report struct {
	RunID        string                `json:"run_id"`
	Period       string                `json:"period"`
	StartedAt    time.Time             `json:"started_at"`
	FinishedAt   time.Time             `json:"finished_at"`
	Total        int                   `json:"total"`
	Scored       int                   `json:"scored"`
	Duplicates   int                   `json:"duplicates"`
	Insufficient int                   `json:"insufficient"`
	Failed       int                   `json:"failed"`
	Failures     []models.ScoreFailure `json:"failures,omitempty"`
}

type Runner struct {
	scorer   Scorer
	accounts AccountLister
	runs     RunStore
	metrics  Recorder
	logger   *zap.Logger
	cfg      Config
	newID    func() string
	now      func() time.Time
}

// NewRunner panics on a nil scorer, lister or run store. metrics may be nil.
func NewRunner(scorer Scorer, accounts AccountLister, runs RunStore, metrics Recorder, logger *zap.Logger, cfg Config) *Runner {
	if scorer == nil || accounts == nil || runs == nil {
		panic("batch runner requires a scorer, an account lister and a run store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.AccountTimeout <= 0 {
		cfg.AccountTimeout = DefaultAccountTimeout
	}
	return &Runner{
		scorer:   scorer,
		accounts: accounts,
		runs:     runs,
		metrics:  metrics,
		logger:   logger.Named("batch"),
		cfg:      cfg,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

type counters struct {
	scored, duplicates, insufficient, failed atomic.Int64
}

// Run scores every account as of asOf. It returns an error only when the
// account list cannot be read, the run cannot be recorded, or ctx is
// cancelled before all accounts were attempted; per-account failures are
// in the report.
func (r *Runner) Run(ctx context.Context, asOf time.Time) (Report, error) {
	accounts, err := r.accounts.List(ctx, "")
	if err != nil {
		return Report{}, fmt.Errorf("list accounts: %w", err)
	}

	started := r.now().UTC()
	report := Report{
		RunID:     r.newID(),
		Period:    scoring.PeriodKey(asOf),
		StartedAt: started,
		Total:     len(accounts),
	}
	run := models.BatchRun{ID: report.RunID, Period: report.Period, StartedAt: started, Total: report.Total}
	if err := r.runs.Start(ctx, run); err != nil {
		return Report{}, fmt.Errorf("start run: %w", err)
	}
	if r.metrics != nil {
		r.metrics.BatchStarted()
	}

	log := r.logger.With(zap.String("run_id", report.RunID), zap.String("period", report.Period))
	log.Info("batch run started", zap.Int("accounts", len(accounts)), zap.Int("workers", r.cfg.Workers))

	var (
		c        counters
		mu       sync.Mutex
		failures []models.ScoreFailure
	)
	fail := func(accountID string, reason models.FailureReason, cause error) {
		f := models.ScoreFailure{
			RunID:     report.RunID,
			AccountID: accountID,
			Period:    report.Period,
			Reason:    reason,
			Error:     cause.Error(),
		}
		mu.Lock()
		failures = append(failures, f)
		mu.Unlock()

		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := r.runs.RecordFailure(recCtx, f); err != nil {
			log.Error("failed to record score failure", zap.String("account_id", accountID), zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for _, a := range accounts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			begin := time.Now()
			outcome := r.scoreOne(gctx, a.ID, asOf, log, &c, fail)
			if r.metrics != nil {
				r.metrics.AccountScored(outcome, time.Since(begin))
			}
			return nil
		})
	}
	_ = g.Wait()

	finished := r.now().UTC()
	report.FinishedAt = finished
	report.Scored = int(c.scored.Load())
	report.Duplicates = int(c.duplicates.Load())
	report.Insufficient = int(c.insufficient.Load())
	report.Failed = int(c.failed.Load())
	sort.Slice(failures, func(i, j int) bool { return failures[i].AccountID < failures[j].AccountID })
	report.Failures = failures

	run.FinishedAt = &finished
	run.Scored = report.Scored
	run.Duplicates = report.Duplicates
	run.Insufficient = report.Insufficient
	run.Failed = report.Failed
	finCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := r.runs.Finish(finCtx, run); err != nil {
		log.Error("failed to record run completion", zap.Error(err))
	}
	if r.metrics != nil {
		r.metrics.BatchFinished(finished.Sub(started))
	}

	log.Info("batch run finished",
		zap.Int("scored", report.Scored),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("insufficient", report.Insufficient),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", finished.Sub(started)))

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("batch run %s interrupted: %w", report.RunID, err)
	}
	return report, nil
}

var errScorerPanic = errors.New("scorer panicked")

type scoreOutcome struct {
	res service.ScoreResult
	err error
}

// scoreOne runs a single account under its own deadline. The scorer runs in
// its own goroutine so that one which ignores cancellation still releases the
// worker when the deadline passes.
func (r *Runner) scoreOne(
	ctx context.Context,
	accountID string,
	asOf time.Time,
	log *zap.Logger,
	c *counters,
	fail func(string, models.FailureReason, error),
) string {
	actx, cancel := context.WithTimeout(ctx, r.cfg.AccountTimeout)
	defer cancel()

	done := make(chan scoreOutcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				log.Error("account scoring panicked", zap.String("account_id", accountID),
					zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
				done <- scoreOutcome{err: fmt.Errorf("%w: %v", errScorerPanic, p)}
			}
		}()
		res, err := r.scorer.ScoreAccount(actx, accountID, asOf)
		done <- scoreOutcome{res: res, err: err}
	}()

	var out scoreOutcome
	select {
	case out = <-done:
	case <-actx.Done():
		out.err = actx.Err()
	}

	switch {
	case out.err == nil && out.res.Duplicate:
		c.duplicates.Add(1)
		return "duplicate"
	case out.err == nil:
		c.scored.Add(1)
		if r.metrics != nil {
			for _, s := range out.res.EmittedSignals {
				r.metrics.RiskSignalRaised(string(s.Type))
			}
		}
		return "scored"
	case errors.Is(out.err, scoring.ErrInsufficientSignal):
		c.insufficient.Add(1)
		log.Info("account skipped", zap.String("account_id", accountID), zap.Error(out.err))
		fail(accountID, models.FailureInsufficientSignal, out.err)
		return string(models.FailureInsufficientSignal)
	case errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil:
		c.failed.Add(1)
		log.Warn("account timed out", zap.String("account_id", accountID), zap.Duration("timeout", r.cfg.AccountTimeout))
		fail(accountID, models.FailureTimeout, out.err)
		return string(models.FailureTimeout)
	default:
		c.failed.Add(1)
		log.Error("account scoring failed", zap.String("account_id", accountID), zap.Error(out.err))
		fail(accountID, models.FailureError, out.err)
		return string(models.FailureError)
	}
}
