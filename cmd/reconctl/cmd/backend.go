package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/revenue-reconciliation/internal/config"
	"github.com/revenue-reconciliation/internal/data/memory"
	"github.com/revenue-reconciliation/internal/data/mongo"
	"github.com/revenue-reconciliation/internal/data/postgres"
	"github.com/revenue-reconciliation/internal/domain/reconlog"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/platform/locking"
	"github.com/revenue-reconciliation/internal/platform/persistence"
	"github.com/revenue-reconciliation/internal/reconciliation"
)

// Backend is the engine wired to one set of stores
type Backend struct {
	Runner    *reconciliation.Orchestrator
	Overrides *reconciliation.OverrideHandler
	Summaries *reconciliation.SummaryAggregator
	Logs      reconlog.Repository

	close func(ctx context.Context)
}

// Close releases the connections behind the backend
func (b *Backend) Close(ctx context.Context) {
	if b.close != nil {
		b.close(ctx)
	}
}

// BackendOpener builds the backend commands run against
type BackendOpener func(ctx context.Context, configName string, logger *slog.Logger) (*Backend, error)

// OpenStoreBackend connects to the same Postgres, MongoDB and Redis as the API and worker,
// so runs started here are exclusive with theirs.
func OpenStoreBackend(ctx context.Context, configName string, logger *slog.Logger) (*Backend, error) {
	cfg, err := config.LoadConfig(configName)
	if err != nil {
		return nil, err
	}

	matchingCfg := reconciliation.NewConfig(&cfg.Matching)
	if err := matchingCfg.Validate(); err != nil {
		return nil, err
	}

	postgresDB, err := persistence.NewPostgresDB(ctx, logger, &cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	mongoDB, err := persistence.NewMongoDB(ctx, logger, &cfg.MongoDB)
	if err != nil {
		postgresDB.Close()
		return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
	}

	redisClient, err := persistence.NewRedisClient(ctx, logger, &cfg.Redis)
	if err != nil {
		postgresDB.Close()
		_ = mongoDB.Close(ctx)
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	glEntryRepo := postgres.NewGLEntryRepository(logger, postgresDB)
	matchRepo := postgres.NewMatchRepository(logger, postgresDB)
	unitOfWork := postgres.NewUnitOfWork(logger, postgresDB.Pool())
	logRepo := mongo.NewReconciliationLogRepository(logger, mongoDB.Database())

	stores := reconciliation.Stores{
		GLEntries:     glEntryRepo,
		ForecastLines: postgres.NewForecastLineRepository(logger, postgresDB),
		Matches:       matchRepo,
		Logs:          logRepo,
		UnitOfWork:    unitOfWork,
	}
	locker := locking.NewRedisLocker(redisClient, cfg.Redis.LockTTL, logger)

	b := newBackend(stores, locker, matchingCfg, logger)
	b.close = func(ctx context.Context) {
		if err := redisClient.Close(); err != nil {
			logger.Warn("Error closing Redis client", "error", err)
		}
		postgresDB.Close()
		if err := mongoDB.Close(ctx); err != nil {
			logger.Warn("Error closing MongoDB connection", "error", err)
		}
	}
	return b, nil
}

// NewMemoryBackend runs the engine against an in-process store with a local period lock
func NewMemoryBackend(store *memory.Store, logs reconlog.Repository, cfg reconciliation.Config, logger *slog.Logger) *Backend {
	stores := reconciliation.Stores{
		GLEntries:     store.GLEntries(),
		ForecastLines: store.ForecastLines(),
		Matches:       store.Matches(),
		Logs:          logs,
		UnitOfWork:    store,
	}
	return newBackend(stores, locking.NewLocalLocker(), cfg, logger)
}

func newBackend(stores reconciliation.Stores, locker shared.PeriodLocker, cfg reconciliation.Config, logger *slog.Logger) *Backend {
	return &Backend{
		Runner:    reconciliation.NewOrchestrator(stores, locker, cfg, logger),
		Overrides: reconciliation.NewOverrideHandler(stores.UnitOfWork, logger),
		Summaries: reconciliation.NewSummaryAggregator(stores.GLEntries, stores.Matches, logger),
		Logs:      stores.Logs,
	}
}
