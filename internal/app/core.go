package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/godilite/account-health/internal/batch"
	"github.com/godilite/account-health/internal/config"
	"github.com/godilite/account-health/internal/metrics"
	"github.com/godilite/account-health/internal/profile"
	"github.com/godilite/account-health/internal/repository"
	"github.com/godilite/account-health/internal/service"
	dbbuilder "github.com/godilite/account-health/pkg/database"
)

// Core is the storage, profile and scoring wiring shared by the server and
// the healthctl CLI.
type Core struct {
	Logger   *zap.Logger
	DB       *sql.DB
	Profiles *profile.Registry
	Accounts *repository.AccountRepository
	Runs     *repository.RunRepository
	Service  *service.ScoringService
	Runner   *batch.Runner
	Metrics  *metrics.Metrics
}

// NewCore opens and migrates the database, loads the weighting profiles and
// pins each one so a redefined (name, version) is rejected.
func NewCore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Core, error) {
	db, err := dbbuilder.New(
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
		dbbuilder.WithPragmas("PRAGMA foreign_keys = ON"),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))

	if err := repository.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	registry, err := profile.Load(cfg.ProfilesPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	profileRepo := repository.NewProfileRepository(db)
	for _, p := range registry.All() {
		if err := profileRepo.Register(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("registering profile %s: %w", p.Ref(), err)
		}
	}
	logger.Info("Weighting profiles loaded",
		zap.String("path", cfg.ProfilesPath),
		zap.Int("count", len(registry.All())),
		zap.String("default", registry.Default().Ref()))

	accounts := repository.NewAccountRepository(db)
	runs := repository.NewRunRepository(db)
	m := metrics.New()

	svc := service.NewScoringService(service.Stores{
		Accounts: accounts,
		Signals:  repository.NewSignalRepository(db),
		History:  repository.NewHistoryRepository(db),
		Risks:    repository.NewRiskSignalRepository(db),
	}, registry, logger)

	runner := batch.NewRunner(svc, accounts, runs, m, logger, batch.Config{
		Workers:        cfg.BatchWorkers,
		AccountTimeout: cfg.AccountTimeout,
	})

	return &Core{
		Logger:   logger,
		DB:       db,
		Profiles: registry,
		Accounts: accounts,
		Runs:     runs,
		Service:  svc,
		Runner:   runner,
		Metrics:  m,
	}, nil
}

func (c *Core) Close() error {
	return c.DB.Close()
}
