package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/godilite/account-health/internal/profile"
	"github.com/godilite/account-health/internal/repository"
	"github.com/godilite/account-health/internal/repository/models"
	"github.com/godilite/account-health/internal/scoring"
	dbbuilder "github.com/godilite/account-health/pkg/database"
)

func setupRealDB(tb testing.TB) Stores {
	tb.Helper()

	db, err := dbbuilder.New(
		dbbuilder.WithDriver("sqlite3"),
		dbbuilder.WithDataSource(":memory:"),
		dbbuilder.WithMaxOpenConns(1),
	)
	if err != nil {
		tb.Fatalf("failed to create db pool via builder: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	if err := repository.Migrate(db); err != nil {
		tb.Fatalf("failed to migrate db: %v", err)
	}

	return Stores{
		Accounts: repository.NewAccountRepository(db),
		Signals:  repository.NewSignalRepository(db),
		History:  repository.NewHistoryRepository(db),
		Risks:    repository.NewRiskSignalRepository(db),
	}
}

func newRealService(tb testing.TB, stores Stores, clock func() time.Time) *ScoringService {
	tb.Helper()
	registry, err := profile.NewRegistry("", profile.DefaultProfile())
	if err != nil {
		tb.Fatalf("registry: %v", err)
	}
	return NewScoringService(stores, registry, zap.NewNop(), WithClock(clock))
}

func BenchmarkScoreAccount(b *testing.B) {
	ctx := context.Background()
	stores := setupRealDB(b)
	asOf := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newRealService(b, stores, func() time.Time { return asOf })

	if _, err := svc.UpsertAccount(ctx, models.Account{ID: "acct-1", ARR: decimal.NewFromInt(90_000)}); err != nil {
		b.Fatal(err)
	}
	var signals []scoring.Signal
	for i, c := range scoring.Components[:6] {
		signals = append(signals, scoring.Signal{
			AccountID: "acct-1", Component: c, NormalizedValue: float64(40 + 10*i), ObservedAt: asOf.Add(-time.Hour),
		})
	}
	if _, err := svc.IngestSignals(ctx, signals); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()

	day := 0
	for b.Loop() {
		day++
		_, _ = svc.ScoreAccount(ctx, "acct-1", asOf.AddDate(0, 0, day))
	}
}

func BenchmarkGetPriorityQueue(b *testing.B) {
	ctx := context.Background()
	stores := setupRealDB(b)
	asOf := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newRealService(b, stores, func() time.Time { return asOf })

	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("acct-%03d", i)
		if _, err := svc.UpsertAccount(ctx, models.Account{ID: id, OwnerID: "csm", ARR: decimal.NewFromInt(int64(1000 * i))}); err != nil {
			b.Fatal(err)
		}
		_, err := svc.IngestSignals(ctx, []scoring.Signal{{
			AccountID: id, Component: scoring.ComponentUsage, NormalizedValue: float64(i % 100), ObservedAt: asOf.Add(-time.Hour),
		}})
		if err != nil {
			b.Fatal(err)
		}
		if _, err := svc.ScoreAccount(ctx, id, asOf); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()

	for b.Loop() {
		_, _ = svc.GetPriorityQueue(ctx, PriorityQuery{OwnerID: "csm", AsOf: asOf})
	}
}
