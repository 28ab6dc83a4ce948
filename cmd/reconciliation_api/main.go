package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/revenue-reconciliation/internal/config"
	"github.com/revenue-reconciliation/internal/data/mongo"
	"github.com/revenue-reconciliation/internal/data/postgres"
	"github.com/revenue-reconciliation/internal/logger"
	"github.com/revenue-reconciliation/internal/platform/locking"
	"github.com/revenue-reconciliation/internal/platform/messaging/producers"
	"github.com/revenue-reconciliation/internal/platform/persistence"
	"github.com/revenue-reconciliation/internal/reconciliation"
	"github.com/revenue-reconciliation/internal/reconciliation_api"
	"github.com/revenue-reconciliation/internal/reconciliation_api/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("reconciliation_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Reconciliation API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	matchingCfg := reconciliation.NewConfig(&cfg.Matching)
	if err := matchingCfg.Validate(); err != nil {
		log.Error("Invalid matching configuration", "error", err)
		os.Exit(1)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Publishes scheduled reconciliation requests for the worker
	requestProducer, err := producers.NewReconciliationRequestProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize reconciliation request producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	glEntryRepo := postgres.NewGLEntryRepository(log, postgresDB)
	forecastLineRepo := postgres.NewForecastLineRepository(log, postgresDB)
	matchRepo := postgres.NewMatchRepository(log, postgresDB)
	unitOfWork := postgres.NewUnitOfWork(log, postgresDB.Pool())
	logRepo := mongo.NewReconciliationLogRepository(log, mongoDB.Database())
	if err := logRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create reconciliation log indexes", "error", err)
		os.Exit(1)
	}

	orchestrator := reconciliation.NewOrchestrator(reconciliation.Stores{
		GLEntries:     glEntryRepo,
		ForecastLines: forecastLineRepo,
		Matches:       matchRepo,
		Logs:          logRepo,
		UnitOfWork:    unitOfWork,
	}, locking.NewRedisLocker(redisClient, cfg.Redis.LockTTL, log), matchingCfg, log)

	reconciliationService := service.NewReconciliationService(
		log,
		orchestrator,
		reconciliation.NewOverrideHandler(unitOfWork, log),
		reconciliation.NewSummaryAggregator(glEntryRepo, matchRepo, log),
		logRepo,
		requestProducer,
	)

	server := reconciliation_api.NewServer(log, cfg, reconciliationService)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case serviceErr = <-errChan:
		log.Error("Service error occurred", "error", serviceErr)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Drain in-flight requests, then stop background work
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", "error", err)
	}
	cancelAppCtx()

	if err := requestProducer.Close(); err != nil {
		log.Error("Error closing reconciliation request producer", "error", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}
	postgresDB.Close()
	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Reconciliation API shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Reconciliation API shutdown completed successfully")
}
