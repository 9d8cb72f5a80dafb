package grpc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	pb "github.com/godilite/account-health/api/v1"
	"github.com/godilite/account-health/internal/grpc/mocks"
	"github.com/godilite/account-health/internal/repository/models"
	"github.com/godilite/account-health/internal/scoring"
	"github.com/godilite/account-health/internal/service"
)

var testTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type countingRecorder struct {
	hits, misses atomic.Int64
}

func (r *countingRecorder) CacheHit()  { r.hits.Add(1) }
func (r *countingRecorder) CacheMiss() { r.misses.Add(1) }

func sampleEntry() scoring.ScoreHistoryEntry {
	prev := 72.0
	delta := -4.0
	return scoring.ScoreHistoryEntry{
		CompositeScore: scoring.CompositeScore{
			AccountID:         "acct-1",
			ProfileVersion:    "default@1",
			Period:            "2025-03-10",
			Components:        map[scoring.Component]float64{scoring.ComponentUsage: 68},
			MissingComponents: []scoring.Component{scoring.ComponentSupport},
			StaleComponents:   []scoring.Component{},
			WeightedScore:     68,
			Category:          "warning",
			ComputedAt:        testTime,
		},
		PreviousScore:    &prev,
		PreviousCategory: "healthy",
		Delta:            &delta,
	}
}

func TestNewGRPCHandlers(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		mockScoring := &mocks.MockScoringService{}
		mockCache := &mocks.MockCacher{}

		handlers := NewGRPCHandlers(mockScoring, mockCache, nil, zap.NewNop(), 5*time.Minute)

		assert.Equal(t, mockScoring, handlers.scoring)
		assert.Equal(t, mockCache, handlers.cache)
		assert.Equal(t, 5*time.Minute, handlers.reads.ttl)
		assert.NotNil(t, handlers.logger)
	})

	t.Run("nil dependencies panic", func(t *testing.T) {
		assert.Panics(t, func() { NewGRPCHandlers(nil, &mocks.MockCacher{}, nil, zap.NewNop(), time.Minute) })
		assert.Panics(t, func() { NewGRPCHandlers(&mocks.MockScoringService{}, nil, nil, zap.NewNop(), time.Minute) })
	})

	t.Run("non-positive TTL uses default", func(t *testing.T) {
		h := NewGRPCHandlers(&mocks.MockScoringService{}, &mocks.MockCacher{}, nil, nil, -time.Minute)
		assert.Equal(t, defaultCacheDuration, h.reads.ttl)
	})
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "grpc:composite_score:acct-1", normalizeKey(cacheKeyCompositeScore, "acct-1"))
	assert.Equal(t, "grpc:score_history:acct-1:2025-03-01:open",
		normalizeKey(cacheKeyScoreHistory, "acct-1", time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC), time.Time{}))
	assert.Equal(t, "grpc:portfolio_summary:*:2025-03-10", normalizeKey(cacheKeyPortfolio, "", testTime))

	t.Run("timezone conversion", func(t *testing.T) {
		loc := time.FixedZone("UTC+10", 10*60*60)
		local := time.Date(2025, 3, 11, 2, 0, 0, 0, loc)
		assert.Equal(t, "grpc:portfolio_summary:csm:2025-03-10", normalizeKey(cacheKeyPortfolio, "csm", local))
	})
}

func TestHandleError(t *testing.T) {
	handlers := &GRPCHandlers{logger: zap.NewNop()}
	ctx := context.Background()

	t.Run("context canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := handlers.handleError(cctx, "op", errors.New("some error"))

		assert.Equal(t, codes.Canceled, status.Code(err))
		assert.Contains(t, err.Error(), "request canceled")
	})

	t.Run("context deadline exceeded", func(t *testing.T) {
		dctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		time.Sleep(time.Millisecond)

		err := handlers.handleError(dctx, "op", errors.New("some error"))

		assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
	})

	cases := map[string]struct {
		err  error
		code codes.Code
	}{
		"not found":          {fmt.Errorf("%w: acct-9", service.ErrNotFound), codes.NotFound},
		"no score":           {fmt.Errorf("%w: acct-1", service.ErrNoScore), codes.FailedPrecondition},
		"insufficient":       {fmt.Errorf("%w: none", scoring.ErrInsufficientSignal), codes.FailedPrecondition},
		"invalid transition": {fmt.Errorf("%w: resolved", scoring.ErrInvalidTransition), codes.FailedPrecondition},
		"invalid argument":   {fmt.Errorf("%w: bad", service.ErrInvalidArgument), codes.InvalidArgument},
		"invalid signal":     {fmt.Errorf("%w: component", scoring.ErrInvalidSignal), codes.InvalidArgument},
		"storage":            {fmt.Errorf("%w: disk", service.ErrStorageFailure), codes.Internal},
		"deadline from call": {fmt.Errorf("query: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		"unknown":            {errors.New("database connection lost"), codes.Internal},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := handlers.handleError(ctx, "op", tc.err)
			assert.Equal(t, tc.code, status.Code(err))
		})
	}

	t.Run("storage details are not leaked", func(t *testing.T) {
		err := handlers.handleError(ctx, "op", fmt.Errorf("%w: secret path", service.ErrStorageFailure))
		assert.NotContains(t, err.Error(), "secret path")
	})
}

func TestGetCompositeScore(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &mocks.MockScoringService{
			GetCompositeScoreFunc: func(ctx context.Context, accountID string) (scoring.ScoreHistoryEntry, error) {
				assert.Equal(t, "acct-1", accountID)
				return sampleEntry(), nil
			},
		}
		h := NewGRPCHandlers(svc, &mocks.MockCacher{}, nil, zap.NewNop(), time.Minute)

		resp, err := h.GetCompositeScore(context.Background(), &pb.GetCompositeScoreRequest{AccountId: "acct-1"})

		require.NoError(t, err)
		s := resp.Score
		assert.Equal(t, 68.0, s.WeightedScore)
		assert.Equal(t, "warning", s.Category)
		assert.Equal(t, map[string]float64{"usage": 68}, s.Components)
		assert.Equal(t, []string{"support"}, s.MissingComponents)
		assert.Equal(t, "healthy", s.PreviousCategory)
		assert.Equal(t, -4.0, *s.Delta)
		assert.Equal(t, testTime, s.ComputedAt.AsTime())
	})

	t.Run("missing account id", func(t *testing.T) {
		h := NewGRPCHandlers(&mocks.MockScoringService{}, &mocks.MockCacher{}, nil, zap.NewNop(), time.Minute)

		_, err := h.GetCompositeScore(context.Background(), &pb.GetCompositeScoreRequest{})

		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("served from cache", func(t *testing.T) {
		svc := &mocks.MockScoringService{
			GetCompositeScoreFunc: func(ctx context.Context, accountID string) (scoring.ScoreHistoryEntry, error) {
				return sampleEntry(), nil
			},
		}
		cache := &mocks.MemoryCache{}
		require.NoError(t, cache.Set(context.Background(), "grpc:composite_score:acct-1", sampleEntry(), time.Minute))
		rec := &countingRecorder{}
		h := NewGRPCHandlers(svc, cache, rec, zap.NewNop(), time.Minute)

		resp, err := h.GetCompositeScore(context.Background(), &pb.GetCompositeScoreRequest{AccountId: "acct-1"})

		require.NoError(t, err)
		assert.Equal(t, 68.0, resp.Score.WeightedScore)
		assert.Equal(t, map[string]float64{"usage": 68}, resp.Score.Components)
		assert.Equal(t, int64(1), rec.hits.Load())
		assert.Equal(t, int64(0), rec.misses.Load())
	})

	t.Run("miss populates cache", func(t *testing.T) {
		svc := &mocks.MockScoringService{
			GetCompositeScoreFunc: func(ctx context.Context, accountID string) (scoring.ScoreHistoryEntry, error) {
				return sampleEntry(), nil
			},
		}
		cache := &mocks.MemoryCache{}
		rec := &countingRecorder{}
		h := NewGRPCHandlers(svc, cache, rec, zap.NewNop(), time.Minute)

		_, err := h.GetCompositeScore(context.Background(), &pb.GetCompositeScoreRequest{AccountId: "acct-1"})

		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.misses.Load())
		assert.Eventually(t, func() bool { return cache.Has("grpc:composite_score:acct-1") }, time.Second, 10*time.Millisecond)
	})

	t.Run("no score maps to failed precondition", func(t *testing.T) {
		svc := &mocks.MockScoringService{
			GetCompositeScoreFunc: func(ctx context.Context, accountID string) (scoring.ScoreHistoryEntry, error) {
				return scoring.ScoreHistoryEntry{}, fmt.Errorf("%w: %s", service.ErrNoScore, accountID)
			},
		}
		h := NewGRPCHandlers(svc, &mocks.MockCacher{}, nil, zap.NewNop(), time.Minute)

		_, err := h.GetCompositeScore(context.Background(), &pb.GetCompositeScoreRequest{AccountId: "acct-1"})

		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	})
}

func TestRecomputeScore(t *testing.T) {
	var deleted []string
	cache := &mocks.MockCacher{DeleteFunc: func(ctx context.Context, keys ...string) error {
		deleted = append(deleted, keys...)
		return nil
	}}
	svc := &mocks.MockScoringService{
		ScoreAccountFunc: func(ctx context.Context, accountID string, asOf time.Time) (service.ScoreResult, error) {
			assert.Equal(t, testTime, asOf)
			return service.ScoreResult{
				Entry:      sampleEntry(),
				Transition: scoring.Transition{From: "healthy", To: "warning", Direction: scoring.CrossedDownward},
				Trend:      scoring.Trend{Direction: scoring.TrendDeclining, Strength: scoring.StrengthStrong, Slope: -4, Points: 2},
				EmittedSignals: []scoring.RiskSignal{{
					ID: "r1", AccountID: accountID, Type: scoring.RiskScoreDecline, Severity: scoring.SeverityMedium,
					Status: scoring.RiskActive, DetectedAt: testTime,
				}},
			}, nil
		},
	}
	h := NewGRPCHandlers(svc, cache, nil, zap.NewNop(), time.Minute)

	resp, err := h.RecomputeScore(context.Background(), &pb.RecomputeScoreRequest{AccountId: "acct-1", AsOf: timestamppb.New(testTime)})

	require.NoError(t, err)
	assert.Equal(t, "crossed_downward", resp.Transition.Direction)
	assert.Equal(t, "declining", resp.Trend.Direction)
	require.Len(t, resp.EmittedSignals, 1)
	assert.Equal(t, "score_decline", resp.EmittedSignals[0].Type)
	assert.Nil(t, resp.EmittedSignals[0].AcknowledgedAt)
	assert.Equal(t, []string{"grpc:composite_score:acct-1", "grpc:score_history:acct-1:open:open"}, deleted)
}

func TestRecomputeScore_DropsFullHistory(t *testing.T) {
	svc := &mocks.MockScoringService{
		ScoreAccountFunc: func(ctx context.Context, accountID string, asOf time.Time) (service.ScoreResult, error) {
			return service.ScoreResult{Entry: sampleEntry()}, nil
		},
	}
	cache := &mocks.MemoryCache{}
	stale := service.ScoreHistory{AccountID: "acct-1"}
	openKey := normalizeKey(cacheKeyScoreHistory, "acct-1", time.Time{}, time.Time{})
	boundedKey := normalizeKey(cacheKeyScoreHistory, "acct-1", testTime.AddDate(0, 0, -7), testTime)
	require.NoError(t, cache.Set(context.Background(), openKey, stale, time.Minute))
	require.NoError(t, cache.Set(context.Background(), boundedKey, stale, time.Minute))
	h := NewGRPCHandlers(svc, cache, nil, zap.NewNop(), time.Minute)

	_, err := h.RecomputeScore(context.Background(), &pb.RecomputeScoreRequest{AccountId: "acct-1"})

	require.NoError(t, err)
	assert.False(t, cache.Has(openKey))
	assert.True(t, cache.Has(boundedKey), "bounded ranges expire on their own")

	t.Run("duplicate recompute keeps the cache", func(t *testing.T) {
		svc.ScoreAccountFunc = func(ctx context.Context, accountID string, asOf time.Time) (service.ScoreResult, error) {
			return service.ScoreResult{Entry: sampleEntry(), Duplicate: true}, nil
		}
		require.NoError(t, cache.Set(context.Background(), openKey, stale, time.Minute))

		_, err := h.RecomputeScore(context.Background(), &pb.RecomputeScoreRequest{AccountId: "acct-1"})

		require.NoError(t, err)
		assert.True(t, cache.Has(openKey))
	})
}

func TestGetScoreHistory_Validation(t *testing.T) {
	h := NewGRPCHandlers(&mocks.MockScoringService{}, &mocks.MockCacher{}, nil, zap.NewNop(), time.Minute)

	_, err := h.GetScoreHistory(context.Background(), &pb.GetScoreHistoryRequest{
		AccountId: "acct-1",
		From:      timestamppb.New(testTime),
		To:        timestamppb.New(testTime.AddDate(0, 0, -1)),
	})

	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetPortfolioSummary(t *testing.T) {
	avg := 55.5
	svc := &mocks.MockScoringService{
		GetPortfolioSummaryFunc: func(ctx context.Context, ownerID string, asOf time.Time) (service.PortfolioReport, error) {
			assert.Equal(t, "csm", ownerID)
			assert.True(t, asOf.IsZero())
			return service.PortfolioReport{
				Current: scoring.PortfolioSummary{
					TotalAccounts:  2,
					ScoredAccounts: 2,
					CategoryCounts: map[string]int{"warning": 2},
					ARRByCategory:  map[string]decimal.Decimal{"warning": decimal.RequireFromString("150000.50")},
					UnscoredARR:    decimal.Zero,
					TotalARR:       decimal.RequireFromString("150000.50"),
					AverageScore:   &avg,
				},
				Trend: scoring.PortfolioTrend{CategoryCountDeltas: map[string]int{"warning": 1}, InsufficientDelta: -1},
			}, nil
		},
	}
	h := NewGRPCHandlers(svc, &mocks.MockCacher{}, nil, zap.NewNop(), time.Minute)

	resp, err := h.GetPortfolioSummary(context.Background(), &pb.GetPortfolioSummaryRequest{OwnerId: "csm"})

	require.NoError(t, err)
	assert.Equal(t, int32(2), resp.Current.CategoryCounts["warning"])
	assert.Equal(t, "150000.5", resp.Current.ArrByCategory["warning"])
	assert.Equal(t, 55.5, *resp.Current.AverageScore)
	assert.Equal(t, int32(-1), resp.Trend.InsufficientDelta)
}

func TestGetPriorityQueue(t *testing.T) {
	t.Run("maps filters", func(t *testing.T) {
		days := 20
		svc := &mocks.MockScoringService{
			GetPriorityQueueFunc: func(ctx context.Context, q service.PriorityQuery) ([]scoring.PriorityEntry, error) {
				assert.Equal(t, "csm", q.OwnerID)
				assert.Equal(t, []string{"critical"}, q.Filter.Categories)
				assert.True(t, q.Filter.MinARR.Equal(decimal.NewFromInt(50_000)))
				assert.Equal(t, 30, *q.Filter.MaxUrgencyDays)
				assert.Equal(t, 5, q.Filter.Limit)
				return []scoring.PriorityEntry{{
					AccountID: "acct-b", CompositeScore: 30, Category: "critical",
					ARRExposure: decimal.NewFromInt(45_000), UrgencyDays: &days, ActiveSignals: 2, PriorityValue: 6.8, Rank: 1,
				}}, nil
			},
		}
		h := NewGRPCHandlers(svc, &mocks.MockCacher{}, nil, zap.NewNop(), time.Minute)
		maxDays := int32(30)

		resp, err := h.GetPriorityQueue(context.Background(), &pb.GetPriorityQueueRequest{
			OwnerId: "csm", Categories: []string{"critical"}, MinArr: "50000", MaxUrgencyDays: &maxDays, Limit: 5,
		})

		require.NoError(t, err)
		require.Len(t, resp.Entries, 1)
		e := resp.Entries[0]
		assert.Equal(t, "acct-b", e.AccountId)
		assert.Equal(t, "45000", e.ArrExposure)
		assert.Equal(t, int32(20), *e.UrgencyDays)
		assert.Equal(t, int32(1), e.Rank)
	})

	t.Run("rejects bad min_arr", func(t *testing.T) {
		h := NewGRPCHandlers(&mocks.MockScoringService{}, &mocks.MockCacher{}, nil, zap.NewNop(), time.Minute)

		_, err := h.GetPriorityQueue(context.Background(), &pb.GetPriorityQueueRequest{MinArr: "lots"})

		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestRiskSignalHandlers(t *testing.T) {
	acked := testTime
	svc := &mocks.MockScoringService{
		AcknowledgeRiskSignalFunc: func(ctx context.Context, id, notes string) (scoring.RiskSignal, error) {
			return scoring.RiskSignal{ID: id, Status: scoring.RiskAcknowledged, AcknowledgedAt: &acked, Notes: notes}, nil
		},
		ResolveRiskSignalFunc: func(ctx context.Context, id, outcome, notes string) (scoring.RiskSignal, error) {
			return scoring.RiskSignal{}, fmt.Errorf("%w: already resolved", scoring.ErrInvalidTransition)
		},
		RaiseRiskSignalFunc: func(ctx context.Context, req service.RaiseRequest) (scoring.RiskSignal, bool, error) {
			assert.Equal(t, scoring.RiskChampionChange, req.Type)
			return scoring.RiskSignal{ID: "r2", Type: req.Type, Severity: req.Severity, Status: scoring.RiskActive}, true, nil
		},
		ListActiveRiskSignalsFunc: func(ctx context.Context, accountID, ownerID string) ([]scoring.RiskSignal, error) {
			return []scoring.RiskSignal{{ID: "r1"}, {ID: "r2"}}, nil
		},
	}
	h := NewGRPCHandlers(svc, &mocks.MockCacher{}, nil, zap.NewNop(), time.Minute)
	ctx := context.Background()

	ack, err := h.AcknowledgeRiskSignal(ctx, &pb.AcknowledgeRiskSignalRequest{Id: "r1", Notes: "on it"})
	require.NoError(t, err)
	assert.Equal(t, "acknowledged", ack.Signal.Status)
	assert.Equal(t, testTime, ack.Signal.AcknowledgedAt.AsTime())

	_, err = h.ResolveRiskSignal(ctx, &pb.ResolveRiskSignalRequest{Id: "r1", Outcome: "saved"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = h.ResolveRiskSignal(ctx, &pb.ResolveRiskSignalRequest{Outcome: "saved"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	raised, err := h.RaiseRiskSignal(ctx, &pb.RaiseRiskSignalRequest{AccountId: "acct-1", Type: "champion_change", Severity: "high"})
	require.NoError(t, err)
	assert.True(t, raised.Created)
	assert.Equal(t, "high", raised.Signal.Severity)

	list, err := h.ListActiveRiskSignals(ctx, &pb.ListActiveRiskSignalsRequest{OwnerId: "csm"})
	require.NoError(t, err)
	assert.Len(t, list.Signals, 2)
}

func TestIngestAndUpsert(t *testing.T) {
	svc := &mocks.MockScoringService{
		IngestSignalsFunc: func(ctx context.Context, signals []scoring.Signal) (service.IngestResult, error) {
			require.Len(t, signals, 1)
			assert.Equal(t, scoring.ComponentUsage, signals[0].Component)
			assert.Equal(t, testTime, signals[0].ObservedAt)
			return service.IngestResult{Accepted: 1}, nil
		},
		UpsertAccountFunc: func(ctx context.Context, a models.Account) (models.Account, error) {
			assert.True(t, a.ARR.Equal(decimal.RequireFromString("120000.00")))
			require.NotNil(t, a.RenewalDate)
			a.UpdatedAt = testTime
			return a, nil
		},
	}
	h := NewGRPCHandlers(svc, &mocks.MockCacher{}, nil, zap.NewNop(), time.Minute)
	ctx := context.Background()

	ing, err := h.IngestSignals(ctx, &pb.IngestSignalsRequest{Signals: []*pb.Signal{
		{AccountId: "acct-1", Component: "usage", NormalizedValue: 50, ObservedAt: timestamppb.New(testTime)},
		nil,
	}})
	require.NoError(t, err)
	assert.Equal(t, int32(1), ing.Accepted)

	acct, err := h.UpsertAccount(ctx, &pb.UpsertAccountRequest{Account: &pb.Account{
		Id: "acct-1", Arr: "120000.00", RenewalDate: timestamppb.New(testTime.AddDate(0, 2, 0)),
	}})
	require.NoError(t, err)
	assert.Equal(t, "120000", acct.Account.Arr)
	assert.Equal(t, testTime, acct.Account.UpdatedAt.AsTime())

	_, err = h.UpsertAccount(ctx, &pb.UpsertAccountRequest{Account: &pb.Account{Id: "acct-1", Arr: "1e"}})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.UpsertAccount(ctx, &pb.UpsertAccountRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
