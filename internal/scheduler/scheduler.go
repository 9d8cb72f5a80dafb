// Package scheduler triggers the periodic batch run on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/godilite/account-health/internal/batch"
)

// DefaultSpec runs nightly at 02:00. Specs include a seconds field.
const DefaultSpec = "0 0 2 * * *"

type BatchRunner interface {
	Run(ctx context.Context, asOf time.Time) (batch.Report, error)
}

type Scheduler struct {
	cron    *cron.Cron
	runner  BatchRunner
	logger  *zap.Logger
	baseCtx context.Context
	now     func() time.Time

	mu      sync.Mutex
	running bool
}

func New(runner BatchRunner, logger *zap.Logger, baseCtx context.Context) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		runner:  runner,
		logger:  logger.Named("scheduler"),
		baseCtx: baseCtx,
		now:     time.Now,
	}
}

// Schedule registers the batch job under spec; an empty spec uses DefaultSpec.
func (s *Scheduler) Schedule(spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	id, err := s.cron.AddFunc(spec, func() { s.trigger(s.baseCtx) })
	if err != nil {
		return 0, fmt.Errorf("invalid batch schedule %q: %w", spec, err)
	}
	return id, nil
}

// trigger runs one batch unless the previous one is still going.
func (s *Scheduler) trigger(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous batch still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	report, err := s.runner.Run(ctx, s.now())
	if err != nil {
		s.logger.Error("scheduled batch failed", zap.String("run_id", report.RunID), zap.Error(err))
		return
	}
	s.logger.Info("scheduled batch complete",
		zap.String("run_id", report.RunID),
		zap.Int("scored", report.Scored),
		zap.Int("failed", report.Failed))
}

func (s *Scheduler) Start() {
	s.logger.Info("cron started", zap.Int("entries", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop halts the schedule and waits for a running job to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("cron stopped")
}
