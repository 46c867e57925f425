package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anchor-settlement-engine/internal/api_gateway"
	"github.com/anchor-settlement-engine/internal/api_gateway/service"
	"github.com/anchor-settlement-engine/internal/config"
	"github.com/anchor-settlement-engine/internal/data/mongo"
	"github.com/anchor-settlement-engine/internal/data/postgres"
	"github.com/anchor-settlement-engine/internal/logger"
	"github.com/anchor-settlement-engine/internal/platform/horizon"
	"github.com/anchor-settlement-engine/internal/platform/messaging/producers"
	"github.com/anchor-settlement-engine/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

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

	settlementProducer, err := producers.NewTopicProducer(log, &cfg.Kafka, cfg.Kafka.SettlementTopic)
	if err != nil {
		log.Error("Failed to initialize settlement request producer", "error", err)
		os.Exit(1)
	}

	// Read-only: the gateway never signs ledger transactions
	ledgerClient := horizon.NewClient(horizon.NewHorizonAPI(&cfg.Ledger), nil, &cfg.Ledger, log.With("component", "horizon"))

	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	journalRepo := mongo.NewJournalRepository(log, mongoDB.Database())

	transactionService := service.NewTransactionService(log, transactionRepo, journalRepo, settlementProducer)
	accountService := service.NewAccountService(ledgerClient)

	server := api_gateway.NewServer(log, cfg, transactionService, accountService)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case serverErr = <-errChan:
		log.Error("Server error occurred", "error", serverErr)
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Drain requests before closing what they use
	failed := serverErr != nil
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		failed = true
	}
	if err := settlementProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
		failed = true
	}
	postgresDB.Close()
	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		failed = true
	}

	if failed {
		log.Error("API Gateway shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("API Gateway shutdown completed successfully")
}
