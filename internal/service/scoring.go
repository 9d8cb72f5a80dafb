package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/account-health/internal/repository"
	"github.com/godilite/account-health/internal/risk"
	"github.com/godilite/account-health/internal/scoring"
)

const (
	dbTimeout = 5 * time.Second
)

// ScoringService runs the scoring pipeline and serves the read side.
type ScoringService struct {
	stores   Stores
	profiles ProfileResolver
	detector *risk.Detector
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*ScoringService)

// WithClock overrides the clock used for lifecycle timestamps and default
// as-of dates.
func WithClock(now func() time.Time) Option {
	return func(s *ScoringService) { s.now = now }
}

func WithDetector(d *risk.Detector) Option {
	return func(s *ScoringService) { s.detector = d }
}

// NewScoringService creates a new ScoringService instance.
func NewScoringService(stores Stores, profiles ProfileResolver, logger *zap.Logger, opts ...Option) *ScoringService {
	if stores.Accounts == nil || stores.Signals == nil || stores.History == nil || stores.Risks == nil {
		panic("all stores must be set")
	}
	if profiles == nil {
		panic("profiles must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &ScoringService{
		stores:   stores,
		profiles: profiles,
		detector: risk.NewDetector(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	ErrNotFound        = errors.New("not found")
	ErrNoScore         = errors.New("account has not been scored")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStorageFailure  = errors.New("storage failure")
)

// storageErr keeps context errors visible to callers and classifies
// everything else as a storage failure.
func storageErr(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s: %v", ErrNotFound, op, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrStorageFailure, op, err)
	}
}

func (s *ScoringService) asOf(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC()
	}
	return t.UTC()
}

// ScoreAccount computes, records and evaluates the account's score for the
// period containing asOf. Re-running it for an already scored period returns
// the committed entry with Duplicate set.
func (s *ScoringService) ScoreAccount(ctx context.Context, accountID string, asOf time.Time) (ScoreResult, error) {
	asOf = s.asOf(asOf)

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	account, err := s.stores.Accounts.Get(dbCtx, accountID)
	if err != nil {
		return ScoreResult{}, storageErr("get account", err)
	}
	profile := s.profiles.ForTier(account.Tier)

	signals, err := s.stores.Signals.Latest(dbCtx, accountID, asOf)
	if err != nil {
		return ScoreResult{}, storageErr("latest signals", err)
	}

	score, err := scoring.Score(accountID, signals, profile, asOf)
	if err != nil {
		s.logger.Info("account has insufficient signal",
			zap.String("account_id", accountID),
			zap.String("profile", profile.Ref()))
		return ScoreResult{}, err
	}

	entry, inserted, err := s.stores.History.Append(dbCtx, score)
	if err != nil {
		return ScoreResult{}, storageErr("append history", err)
	}

	result := ScoreResult{
		Entry:      entry,
		Transition: scoring.DetectTransition(previousOf(entry), entry.CompositeScore, profile),
		Duplicate:  !inserted,
	}

	recent, err := s.stores.History.Recent(dbCtx, accountID, entry.Period, profile.TrendWindow)
	if err != nil {
		return ScoreResult{}, storageErr("recent history", err)
	}
	result.Trend, _ = scoring.ClassifyTrend(recent, profile.TrendWindow, profile)

	if result.Duplicate {
		s.logger.Debug("period already scored",
			zap.String("account_id", accountID),
			zap.String("period", entry.Period))
		return result, nil
	}

	emitted, err := s.detectRisks(dbCtx, entry, result.Transition, profile, signals, account.RenewalDate, asOf)
	if err != nil {
		return ScoreResult{}, err
	}
	result.EmittedSignals = emitted

	s.logger.Info("scored account",
		zap.String("account_id", accountID),
		zap.String("period", entry.Period),
		zap.Float64("score", entry.WeightedScore),
		zap.String("category", entry.Category),
		zap.String("crossing", string(result.Transition.Direction)),
		zap.Int("stale_components", len(entry.StaleComponents)),
		zap.Int("risk_signals", len(emitted)))

	return result, nil
}

// previousOf rebuilds the preceding entry from the link stored on entry.
func previousOf(entry scoring.ScoreHistoryEntry) *scoring.ScoreHistoryEntry {
	if entry.PreviousScore == nil {
		return nil
	}
	return &scoring.ScoreHistoryEntry{CompositeScore: scoring.CompositeScore{
		AccountID:     entry.AccountID,
		WeightedScore: *entry.PreviousScore,
		Category:      entry.PreviousCategory,
	}}
}

func (s *ScoringService) detectRisks(
	ctx context.Context,
	entry scoring.ScoreHistoryEntry,
	transition scoring.Transition,
	profile *scoring.WeightingProfile,
	latest []scoring.Signal,
	renewal *time.Time,
	asOf time.Time,
) ([]scoring.RiskSignal, error) {
	window := time.Duration(profile.Detection.UsageDropWindowDays) * 24 * time.Hour
	usage, err := s.stores.Signals.List(ctx, entry.AccountID, scoring.ComponentUsage, asOf.Add(-window), asOf)
	if err != nil {
		return nil, storageErr("usage window", err)
	}

	obs := risk.Observation{
		Entry:       entry,
		Transition:  transition,
		Profile:     profile,
		AsOf:        asOf,
		Usage:       usage,
		RenewalDate: renewal,
	}
	for _, sig := range latest {
		if sig.Component == scoring.ComponentEngagement {
			observed := sig.ObservedAt
			obs.LastEngagement = &observed
		}
	}

	var emitted []scoring.RiskSignal
	for _, candidate := range s.detector.Detect(obs) {
		created, err := s.stores.Risks.Create(ctx, candidate)
		if err != nil {
			return nil, storageErr("create risk signal", err)
		}
		if !created {
			continue
		}
		s.logger.Info("risk signal raised",
			zap.String("account_id", candidate.AccountID),
			zap.String("type", string(candidate.Type)),
			zap.String("severity", string(candidate.Severity)))
		emitted = append(emitted, candidate)
	}
	return emitted, nil
}

// GetCompositeScore returns the latest recorded score for the account.
func (s *ScoringService) GetCompositeScore(ctx context.Context, accountID string) (scoring.ScoreHistoryEntry, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	entry, err := s.stores.History.Latest(dbCtx, accountID, scoring.PeriodKey(s.now()))
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return entry, storageErr("latest history", err)
	}
	if _, err := s.stores.Accounts.Get(dbCtx, accountID); err != nil {
		return entry, storageErr("get account", err)
	}
	return entry, fmt.Errorf("%w: %s", ErrNoScore, accountID)
}

// GetScoreHistory returns entries between from and to (zero bounds are open)
// and the trend over the most recent of them.
func (s *ScoringService) GetScoreHistory(ctx context.Context, accountID string, from, to time.Time) (ScoreHistory, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return ScoreHistory{}, fmt.Errorf("%w: to is before from", ErrInvalidArgument)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	account, err := s.stores.Accounts.Get(dbCtx, accountID)
	if err != nil {
		return ScoreHistory{}, storageErr("get account", err)
	}

	var fromKey, toKey string
	if !from.IsZero() {
		fromKey = scoring.PeriodKey(from)
	}
	if !to.IsZero() {
		toKey = scoring.PeriodKey(to)
	}
	entries, err := s.stores.History.Range(dbCtx, accountID, fromKey, toKey)
	if err != nil {
		return ScoreHistory{}, storageErr("history range", err)
	}

	profile := s.profiles.ForTier(account.Tier)
	trend, _ := scoring.ClassifyTrend(entries, profile.TrendWindow, profile)

	return ScoreHistory{AccountID: accountID, Entries: entries, Trend: trend}, nil
}
