package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/anchor-settlement-engine/internal/config"
	"github.com/anchor-settlement-engine/internal/data/mongo"
	"github.com/anchor-settlement-engine/internal/data/postgres"
	"github.com/anchor-settlement-engine/internal/data/redis"
	"github.com/anchor-settlement-engine/internal/logger"
	"github.com/anchor-settlement-engine/internal/platform/horizon"
	"github.com/anchor-settlement-engine/internal/platform/messaging/consumers"
	"github.com/anchor-settlement-engine/internal/platform/messaging/producers"
	"github.com/anchor-settlement-engine/internal/platform/metrics"
	"github.com/anchor-settlement-engine/internal/platform/persistence"
	"github.com/anchor-settlement-engine/internal/settlement/components"
	"github.com/anchor-settlement-engine/internal/settlement/consumer"
	"github.com/anchor-settlement-engine/internal/settlement/service"
	"github.com/anchor-settlement-engine/internal/settlement/trustline_poller"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("settlement_engine")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Settlement Engine",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	signer, err := horizon.ParseSigner(cfg.Ledger.DistributionSeed)
	if err != nil || signer == nil {
		log.Error("A valid distribution seed is required to settle deposits", "error", err)
		os.Exit(1)
	}
	ledgerClient := horizon.NewClient(horizon.NewHorizonAPI(&cfg.Ledger), signer, &cfg.Ledger, log.With("component", "horizon"))

	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	journalRepo := mongo.NewJournalRepository(log, mongoDB.Database())
	if indexer, ok := journalRepo.(interface{ EnsureIndexes(context.Context) error }); ok {
		if err := indexer.EnsureIndexes(appCtx); err != nil {
			log.Warn("Failed to ensure journal indexes", "error", err)
		}
	}
	paymentDedup := redis.NewPaymentDeduplicator(redisClient, cfg.Redis.DedupTTL, log.With("component", "payment_dedup"))

	settler := components.CreateSettler(transactionRepo, ledgerClient, journalRepo, log, cfg)
	matcher := components.CreateMatcher(transactionRepo, journalRepo, log)

	settlementDLQ, err := producers.NewDLQProducer(log, &cfg.Kafka, cfg.Kafka.SettlementTopic)
	if err != nil {
		log.Error("Failed to initialize settlement DLQ producer", "error", err)
		os.Exit(1)
	}
	paymentDLQ, err := producers.NewDLQProducer(log, &cfg.Kafka, cfg.Kafka.PaymentTopic)
	if err != nil {
		log.Error("Failed to initialize payment DLQ producer", "error", err)
		os.Exit(1)
	}

	settlementConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.SettlementTopic, cfg.Kafka.SettlementGroup)
	paymentConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.PaymentTopic, cfg.Kafka.PaymentGroup)

	settlementHandler := consumer.NewSettlementRequestHandler(log.With("component", "settlement_requests"), settler, deadLetterPublisher(settlementDLQ))
	paymentHandler := consumer.NewIncomingPaymentHandler(log.With("component", "incoming_payments"), transactionRepo, matcher, paymentDedup, deadLetterPublisher(paymentDLQ))

	poller := trustline_poller.NewPoller(&cfg.Trustline, transactionRepo, ledgerClient, settler, log.With("component", "trustline_poller"))

	healthServer := metrics.NewServer(log, cfg.Metrics.Port, map[string]metrics.HealthCheck{
		"postgres": postgresDB.Ping,
		"mongodb":  mongoDB.Ping,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})

	errChan := make(chan error, 4)
	var wg sync.WaitGroup

	if err := settlementConsumer.Subscribe(appCtx, settlementHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to settlement requests", "error", err)
		os.Exit(1)
	}
	if err := paymentConsumer.Subscribe(appCtx, paymentHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to incoming payments", "error", err)
		os.Exit(1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := poller.Start(appCtx); err != nil {
			errChan <- fmt.Errorf("trustline poller error: %w", err)
		}
	}()

	go func() {
		if err := healthServer.Start(); err != nil {
			errChan <- err
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

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()
	select {
	case <-wgChan:
		log.Info("Background workers stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if wpSettler, ok := settler.(*service.WorkerPoolSettler); ok {
		log.Info("Shutting down worker pool", "running_workers", wpSettler.Running())
		wpSettler.Shutdown()
	}

	var shutdownErrs []error
	if err := settlementConsumer.Close(); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("close settlement consumer: %w", err))
	}
	if err := paymentConsumer.Close(); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("close payment consumer: %w", err))
	}
	for _, dlq := range []*producers.DLQProducer{settlementDLQ, paymentDLQ} {
		if err := dlq.Close(); err != nil {
			shutdownErrs = append(shutdownErrs, fmt.Errorf("close DLQ producer: %w", err))
		}
	}
	if err := healthServer.Stop(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, err)
	}
	if err := redisClient.Close(); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("close redis: %w", err))
	}
	postgresDB.Close()
	if err := mongoDB.Close(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, err)
	}

	for _, err := range shutdownErrs {
		log.Error("Error during shutdown", "error", err)
	}
	if serviceErr != nil || len(shutdownErrs) > 0 {
		log.Error("Settlement Engine shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Settlement Engine shutdown completed successfully")
}

// deadLetterPublisher hides an unconfigured DLQ producer behind a nil interface
func deadLetterPublisher(p *producers.DLQProducer) producers.DeadLetterPublisher {
	if p == nil {
		return nil
	}
	return p
}
