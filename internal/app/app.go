package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	pb "github.com/godilite/account-health/api/v1"
	"github.com/godilite/account-health/internal/config"
	handler "github.com/godilite/account-health/internal/grpc"
	"github.com/godilite/account-health/internal/ingest"
	"github.com/godilite/account-health/internal/scheduler"
	"github.com/godilite/account-health/pkg/cache"
	dbbuilder "github.com/godilite/account-health/pkg/database"
	grpcsrv "github.com/godilite/account-health/pkg/grpc/server"
	"github.com/godilite/account-health/pkg/httpserver"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger     *zap.Logger
	core       *Core
	cache      *cache.Cache
	grpcServer *grpcsrv.Server
	httpServer *httpserver.Server
	scheduler  *scheduler.Scheduler
	consumer   *ingest.Consumer
	closeKafka func() error

	// cancelJob aborts a scheduled batch still running at shutdown.
	cancelJob context.CancelFunc
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	core, err := NewCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	cacheClient, err := cache.New(ctx, cache.WithAddress(cfg.RedisAddr), cache.WithKeyPrefix(cfg.RedisKeyPrefix))
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("cache init failed: %w", err)
	}
	logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))

	grpcHandlers := handler.NewGRPCHandlers(core.Service, cacheClient, core.Metrics, logger, cfg.CacheTTL)

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithLogging(true),
		grpcsrv.WithRateLimit(cfg.GRPCRateLimit, cfg.GRPCRateBurst),
	)
	if err != nil {
		cacheClient.Close()
		core.Close()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}
	grpcServer.RegisterServiceWithHealth(pb.ServiceName, func(s *grpc.Server) {
		pb.RegisterHealthScoringServer(s, grpcHandlers)
	})

	jobCtx, cancelJob := context.WithCancel(context.WithoutCancel(ctx))
	a := &App{
		logger:     logger,
		core:       core,
		cache:      cacheClient,
		grpcServer: grpcServer,
		cancelJob:  cancelJob,
	}

	if cfg.MetricsPort != 0 {
		a.httpServer = httpserver.New(fmt.Sprintf(":%d", cfg.MetricsPort), core.Metrics.Handler(),
			map[string]httpserver.Check{
				"database": dbbuilder.Check(core.DB),
				"redis":    cacheClient.Ping,
			}, logger)
	}

	a.scheduler = scheduler.New(core.Runner, logger, jobCtx)
	if _, err := a.scheduler.Schedule(cfg.BatchCron); err != nil {
		a.close()
		return nil, err
	}

	if len(cfg.KafkaBrokers) > 0 {
		reader, err := ingest.NewReader(ingest.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("kafka reader: %w", err)
		}
		a.consumer = ingest.NewConsumer(reader, core.Service, core.Metrics, logger, 0)
		a.closeKafka = reader.Close
		logger.Info("Kafka ingestion enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic))
	}

	return a, nil
}

// Run starts every component and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	a.logger.Info("application starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.grpcServer.Start()
	a.scheduler.Start()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	if a.httpServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.httpServer.Start(); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}
	if a.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		a.logger.Error("component failed", zap.Error(runErr))
	}
	stop()

	a.logger.Info("application shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.cancelJob()
	a.scheduler.Stop()
	if err := a.grpcServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("gRPC shutdown error", zap.Error(err))
	}
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("metrics server shutdown error", zap.Error(err))
		}
	}
	if a.closeKafka != nil {
		if err := a.closeKafka(); err != nil {
			a.logger.Warn("kafka reader close error", zap.Error(err))
		}
	}
	wg.Wait()
	a.close()

	if shutdownCtx.Err() == context.DeadlineExceeded {
		a.logger.Warn("shutdown completed but deadline exceeded")
	} else {
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return runErr
}

func (a *App) close() {
	a.cancelJob()
	if err := a.cache.Close(); err != nil {
		a.logger.Error("cache shutdown error", zap.Error(err))
	}
	if err := a.core.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}
}
