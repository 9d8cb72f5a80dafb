package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pb "github.com/godilite/account-health/api/v1"
	"github.com/godilite/account-health/internal/scoring"
	"github.com/godilite/account-health/internal/service"
)

const (
	defaultCacheDuration = time.Minute
	defaultGRPCTimeout   = 10 * time.Second
)

type CacheKeyType string

const (
	cacheKeyCompositeScore CacheKeyType = "grpc:composite_score"
	cacheKeyScoreHistory   CacheKeyType = "grpc:score_history"
	cacheKeyPortfolio      CacheKeyType = "grpc:portfolio_summary"
)

type GRPCHandlers struct {
	pb.UnimplementedHealthScoringServer
	scoring ScoringService
	cache   Cacher
	reads   *readThrough
	logger  *zap.Logger
}

// NewGRPCHandlers initializes the gRPC handlers. metrics may be nil.
func NewGRPCHandlers(scoring ScoringService, cache Cacher, metrics CacheRecorder, logger *zap.Logger, ttl time.Duration) *GRPCHandlers {
	if scoring == nil {
		panic("nil ScoringService provided to NewGRPCHandlers")
	}
	if cache == nil {
		panic("nil Cacher provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	logger = logger.Named("grpc-handler")
	return &GRPCHandlers{
		scoring: scoring,
		cache:   cache,
		reads:   &readThrough{cache: cache, ttl: ttl, rec: metrics, logger: logger},
		logger:  logger,
	}
}

// normalizeKey joins the prefix with each part; times are truncated to the
// UTC day and the zero time is written as "open".
func normalizeKey(prefix CacheKeyType, parts ...any) string {
	var b strings.Builder
	b.WriteString(string(prefix))
	for _, p := range parts {
		b.WriteByte(':')
		switch v := p.(type) {
		case time.Time:
			if v.IsZero() {
				b.WriteString("open")
			} else {
				b.WriteString(v.UTC().Format("2006-01-02"))
			}
		case string:
			if v == "" {
				b.WriteString("*")
			} else {
				b.WriteString(v)
			}
		default:
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return nil
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, service.ErrNotFound):
		s.logger.Info("not found", zap.String("op", op), zap.Error(err))
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrNoScore),
		errors.Is(err, scoring.ErrInsufficientSignal),
		errors.Is(err, scoring.ErrInvalidTransition):
		s.logger.Info("failed precondition", zap.String("op", op), zap.Error(err))
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, scoring.ErrInvalidSignal):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *GRPCHandlers) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *GRPCHandlers) GetCompositeScore(ctx context.Context, req *pb.GetCompositeScoreRequest) (*pb.CompositeScoreResponse, error) {
	accountID := req.GetAccountId()
	if err := requireField("account_id", accountID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	key := normalizeKey(cacheKeyCompositeScore, accountID)
	entry, err := cached(ctx, s.reads, key, func(fetchCtx context.Context) (scoring.ScoreHistoryEntry, error) {
		return s.scoring.GetCompositeScore(fetchCtx, accountID)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetCompositeScore", err)
	}

	return &pb.CompositeScoreResponse{Score: toPBScore(entry)}, nil
}

func (s *GRPCHandlers) RecomputeScore(ctx context.Context, req *pb.RecomputeScoreRequest) (*pb.RecomputeScoreResponse, error) {
	accountID := req.GetAccountId()
	if err := requireField("account_id", accountID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	res, err := s.scoring.ScoreAccount(ctx, accountID, timeOf(req.GetAsOf()))
	if err != nil {
		return nil, s.handleError(ctx, "RecomputeScore", err)
	}
	if !res.Duplicate {
		// Bounded history ranges and portfolio rollups are left to expire.
		s.invalidate(ctx,
			normalizeKey(cacheKeyCompositeScore, accountID),
			normalizeKey(cacheKeyScoreHistory, accountID, time.Time{}, time.Time{}))
	}

	return &pb.RecomputeScoreResponse{
		Score: toPBScore(res.Entry),
		Transition: &pb.Transition{
			From:            res.Transition.From,
			To:              res.Transition.To,
			Direction:       string(res.Transition.Direction),
			EnteredCritical: res.Transition.EnteredCritical,
		},
		Trend:          toPBTrend(res.Trend),
		EmittedSignals: toPBRiskSignals(res.EmittedSignals),
		Duplicate:      res.Duplicate,
	}, nil
}

func (s *GRPCHandlers) GetScoreHistory(ctx context.Context, req *pb.GetScoreHistoryRequest) (*pb.ScoreHistoryResponse, error) {
	accountID := req.GetAccountId()
	if err := requireField("account_id", accountID); err != nil {
		return nil, err
	}
	from, to := timeOf(req.GetFrom()), timeOf(req.GetTo())
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, status.Error(codes.InvalidArgument, "to must not be before from")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	key := normalizeKey(cacheKeyScoreHistory, accountID, from, to)
	history, err := cached(ctx, s.reads, key, func(fetchCtx context.Context) (service.ScoreHistory, error) {
		return s.scoring.GetScoreHistory(fetchCtx, accountID, from, to)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetScoreHistory", err)
	}

	entries := make([]*pb.CompositeScore, len(history.Entries))
	for i, e := range history.Entries {
		entries[i] = toPBScore(e)
	}
	return &pb.ScoreHistoryResponse{
		AccountId: history.AccountID,
		Entries:   entries,
		Trend:     toPBTrend(history.Trend),
	}, nil
}

func (s *GRPCHandlers) GetPortfolioSummary(ctx context.Context, req *pb.GetPortfolioSummaryRequest) (*pb.PortfolioSummaryResponse, error) {
	ownerID := req.GetOwnerId()
	asOf := timeOf(req.GetAsOf())

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	keyDate := asOf
	if keyDate.IsZero() {
		keyDate = time.Now()
	}
	key := normalizeKey(cacheKeyPortfolio, ownerID, keyDate)
	report, err := cached(ctx, s.reads, key, func(fetchCtx context.Context) (service.PortfolioReport, error) {
		return s.scoring.GetPortfolioSummary(fetchCtx, ownerID, asOf)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetPortfolioSummary", err)
	}

	return &pb.PortfolioSummaryResponse{
		Current: toPBSummary(report.Current),
		Prior:   toPBSummary(report.Prior),
		Trend:   toPBPortfolioTrend(report.Trend),
	}, nil
}

// GetPriorityQueue is never cached: resolving a signal must drop the account
// from the next read.
func (s *GRPCHandlers) GetPriorityQueue(ctx context.Context, req *pb.GetPriorityQueueRequest) (*pb.PriorityQueueResponse, error) {
	minARR, err := parseDecimal("min_arr", req.GetMinArr())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must not be negative")
	}

	filter := scoring.PriorityFilter{
		Categories: req.Categories,
		MinARR:     minARR,
		Limit:      int(req.Limit),
	}
	if req.MaxUrgencyDays != nil {
		d := int(*req.MaxUrgencyDays)
		filter.MaxUrgencyDays = &d
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	entries, err := s.scoring.GetPriorityQueue(ctx, service.PriorityQuery{
		OwnerID: req.GetOwnerId(),
		AsOf:    timeOf(req.GetAsOf()),
		Filter:  filter,
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetPriorityQueue", err)
	}
	return &pb.PriorityQueueResponse{Entries: toPBPriority(entries)}, nil
}

func (s *GRPCHandlers) ListActiveRiskSignals(ctx context.Context, req *pb.ListActiveRiskSignalsRequest) (*pb.RiskSignalsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	signals, err := s.scoring.ListActiveRiskSignals(ctx, req.GetAccountId(), req.GetOwnerId())
	if err != nil {
		return nil, s.handleError(ctx, "ListActiveRiskSignals", err)
	}
	return &pb.RiskSignalsResponse{Signals: toPBRiskSignals(signals)}, nil
}

func (s *GRPCHandlers) AcknowledgeRiskSignal(ctx context.Context, req *pb.AcknowledgeRiskSignalRequest) (*pb.RiskSignalResponse, error) {
	if err := requireField("id", req.GetId()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	sig, err := s.scoring.AcknowledgeRiskSignal(ctx, req.Id, req.Notes)
	if err != nil {
		return nil, s.handleError(ctx, "AcknowledgeRiskSignal", err)
	}
	return &pb.RiskSignalResponse{Signal: toPBRiskSignal(sig)}, nil
}

func (s *GRPCHandlers) ResolveRiskSignal(ctx context.Context, req *pb.ResolveRiskSignalRequest) (*pb.RiskSignalResponse, error) {
	if err := requireField("id", req.GetId()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	sig, err := s.scoring.ResolveRiskSignal(ctx, req.Id, req.Outcome, req.Notes)
	if err != nil {
		return nil, s.handleError(ctx, "ResolveRiskSignal", err)
	}
	return &pb.RiskSignalResponse{Signal: toPBRiskSignal(sig)}, nil
}

func (s *GRPCHandlers) RaiseRiskSignal(ctx context.Context, req *pb.RaiseRiskSignalRequest) (*pb.RaiseRiskSignalResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if err := requireField("account_id", req.AccountId); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	sig, created, err := s.scoring.RaiseRiskSignal(ctx, service.RaiseRequest{
		AccountID: req.AccountId,
		Type:      scoring.RiskType(req.Type),
		Severity:  scoring.Severity(req.Severity),
		Details:   req.Details,
	})
	if err != nil {
		return nil, s.handleError(ctx, "RaiseRiskSignal", err)
	}
	return &pb.RaiseRiskSignalResponse{Signal: toPBRiskSignal(sig), Created: created}, nil
}

func (s *GRPCHandlers) IngestSignals(ctx context.Context, req *pb.IngestSignalsRequest) (*pb.IngestSignalsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	res, err := s.scoring.IngestSignals(ctx, fromPBSignals(req.GetSignals()))
	if err != nil {
		return nil, s.handleError(ctx, "IngestSignals", err)
	}
	return &pb.IngestSignalsResponse{Accepted: int32(res.Accepted), Duplicates: int32(res.Duplicates)}, nil
}

func (s *GRPCHandlers) UpsertAccount(ctx context.Context, req *pb.UpsertAccountRequest) (*pb.AccountResponse, error) {
	account, err := fromPBAccount(req.GetAccount())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	saved, err := s.scoring.UpsertAccount(ctx, account)
	if err != nil {
		return nil, s.handleError(ctx, "UpsertAccount", err)
	}
	return &pb.AccountResponse{Account: toPBAccount(saved)}, nil
}
