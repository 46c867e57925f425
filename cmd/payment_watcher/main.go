package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anchor-settlement-engine/internal/config"
	"github.com/anchor-settlement-engine/internal/data/redis"
	"github.com/anchor-settlement-engine/internal/logger"
	"github.com/anchor-settlement-engine/internal/platform/horizon"
	"github.com/anchor-settlement-engine/internal/platform/messaging/producers"
	"github.com/anchor-settlement-engine/internal/platform/metrics"
	"github.com/anchor-settlement-engine/internal/platform/persistence"
	"github.com/anchor-settlement-engine/internal/settlement/payment_watcher"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("payment_watcher")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	if cfg.Ledger.AnchorAccount == "" {
		log.Error("LEDGER_ANCHOR_ACCOUNT is required to watch incoming payments")
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	paymentProducer, err := producers.NewTopicProducer(log, &cfg.Kafka, cfg.Kafka.PaymentTopic)
	if err != nil {
		log.Error("Failed to initialize payment producer", "error", err)
		os.Exit(1)
	}

	// No call timeout here: the stream is a long-lived request
	streamCfg := cfg.Ledger
	streamCfg.CallTimeout = 0
	ledgerClient := horizon.NewClient(horizon.NewHorizonAPI(&streamCfg), nil, &cfg.Ledger, log.With("component", "horizon"))

	watcher := payment_watcher.NewWatcher(
		cfg.Ledger.AnchorAccount,
		ledgerClient,
		redis.NewCursorStore(redisClient),
		paymentProducer,
		log.With("component", "payment_watcher"),
	)

	healthServer := metrics.NewServer(log, cfg.Metrics.Port, map[string]metrics.HealthCheck{
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})

	errChan := make(chan error, 2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := watcher.Run(appCtx); err != nil {
			errChan <- err
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

	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	failed := serviceErr != nil
	if err := healthServer.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping health server", "error", err)
		failed = true
	}
	if err := paymentProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
		failed = true
	}
	if err := redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
		failed = true
	}

	if failed {
		log.Error("Payment Watcher shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Payment Watcher shutdown completed successfully")
}
