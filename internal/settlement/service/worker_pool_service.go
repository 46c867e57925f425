package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/anchor-settlement-engine/internal/domain/transaction"
	"github.com/anchor-settlement-engine/internal/platform/metrics"
)

// WorkerPoolSettler runs settlements on a bounded pool of goroutines
type WorkerPoolSettler struct {
	base   Settler
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

type settleResult struct {
	outcome Outcome
	err     error
}

func NewWorkerPoolSettler(base Settler, config WorkerPoolConfig, logger *slog.Logger) (*WorkerPoolSettler, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolSettler{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

// SettleDeposit runs the settlement on a pool worker and waits for its outcome.
// It blocks while every worker is busy.
func (s *WorkerPoolSettler) SettleDeposit(ctx context.Context, request *transaction.SettlementRequest) (Outcome, error) {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Debug("Submitting deposit to worker pool", "transaction_id", request.TransactionID.String())

	resultChan := make(chan settleResult, 1)
	requestCopy := *request

	err := s.pool.Submit(func() {
		metrics.WorkerPoolRunning.Inc()
		defer metrics.WorkerPoolRunning.Dec()

		outcome, err := s.base.SettleDeposit(ctx, &requestCopy)
		resultChan <- settleResult{outcome: outcome, err: err}
	})
	if err != nil {
		logger.Error("Failed to submit deposit to worker pool",
			"transaction_id", request.TransactionID.String(),
			"error", err,
		)
		return OutcomeSkipped, err
	}

	res := <-resultChan
	return res.outcome, res.err
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolSettler) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolSettler) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolSettler) Capacity() int {
	return s.pool.Cap()
}
