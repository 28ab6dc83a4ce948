package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/revenue-reconciliation/internal/config"
	"github.com/revenue-reconciliation/internal/data/mongo"
	"github.com/revenue-reconciliation/internal/data/postgres"
	"github.com/revenue-reconciliation/internal/logger"
	"github.com/revenue-reconciliation/internal/platform/locking"
	"github.com/revenue-reconciliation/internal/platform/messaging/consumers"
	"github.com/revenue-reconciliation/internal/platform/messaging/producers"
	"github.com/revenue-reconciliation/internal/platform/persistence"
	"github.com/revenue-reconciliation/internal/reconciliation"
	"github.com/revenue-reconciliation/internal/reconciliation_worker/consumer"
	"github.com/revenue-reconciliation/internal/reconciliation_worker/outbox_poller"
	"github.com/revenue-reconciliation/internal/reconciliation_worker/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("reconciliation_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Reconciliation Worker",
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

	// Initialize repositories
	glEntryRepo := postgres.NewGLEntryRepository(log, postgresDB)
	forecastLineRepo := postgres.NewForecastLineRepository(log, postgresDB)
	matchRepo := postgres.NewMatchRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	unitOfWork := postgres.NewUnitOfWork(log, postgresDB.Pool())
	logRepo := mongo.NewReconciliationLogRepository(log, mongoDB.Database())
	if err := logRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create reconciliation log indexes", "error", err)
		os.Exit(1)
	}

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	matchEventProducer, err := producers.NewMatchEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize match event producer", "error", err)
		os.Exit(1)
	}

	orchestrator := reconciliation.NewOrchestrator(reconciliation.Stores{
		GLEntries:     glEntryRepo,
		ForecastLines: forecastLineRepo,
		Matches:       matchRepo,
		Logs:          logRepo,
		UnitOfWork:    unitOfWork,
	}, locking.NewRedisLocker(redisClient, cfg.Redis.LockTTL, log), matchingCfg, log)

	// Runs for different periods proceed in parallel up to the pool size
	processingService, err := service.NewWorkerPoolProcessingService(
		service.NewProcessingService(orchestrator, log),
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	requestHandler := consumer.NewReconciliationRequestHandler(log, processingService, dlqProducer)

	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		outbox_poller.NewKafkaEventRelay(outboxRepo, matchEventProducer, log),
		log,
	)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.RequestTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.RequestTopic, cfg.Kafka.ConsumerGroup, requestHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
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

	// Cancelling the app context also cancels running reconciliations between batches
	cancelAppCtx()
	processingService.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if err := dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}
	if err := matchEventProducer.Close(); err != nil {
		log.Error("Error closing match event producer", "error", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}
	postgresDB.Close()
	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Reconciliation Worker shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Reconciliation Worker shutdown completed successfully")
}
