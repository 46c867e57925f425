package components

import (
	"log/slog"

	"github.com/anchor-settlement-engine/internal/config"
	"github.com/anchor-settlement-engine/internal/domain/journal"
	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
	"github.com/anchor-settlement-engine/internal/settlement/service"
)

// CreateSettler creates the deposit settler with all its dependencies, running on
// a worker pool when one can be created.
func CreateSettler(
	transactionRepo transaction.Repository,
	ledgerClient ledger.Client,
	journalRepo journal.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.Settler {
	recorder := NewJournalRecorder(journalRepo, logger.With("component", "journal"))

	baseSettler := service.NewDepositSettler(
		transactionRepo,
		ledgerClient,
		recorder,
		service.SettlerConfig{
			StartingBalance:   cfg.Ledger.StartingBalance,
			MaxFailedAttempts: cfg.Settlement.MaxFailedAttempts,
			DefaultIssuer:     cfg.Ledger.IssuerAccount,
		},
		logger.With("component", "deposit_settler"),
	)

	workerPoolSettler, err := service.NewWorkerPoolSettler(
		baseSettler,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool settler, falling back to base settler", "error", err)
		return baseSettler
	}

	logger.Info("Created worker pool settler", "pool_size", cfg.WorkerPool.Size)
	return workerPoolSettler
}

// CreateMatcher creates the withdrawal matcher
func CreateMatcher(
	transactionRepo transaction.Repository,
	journalRepo journal.Repository,
	logger *slog.Logger,
) service.Matcher {
	recorder := NewJournalRecorder(journalRepo, logger.With("component", "journal"))
	return service.NewWithdrawalMatcher(transactionRepo, recorder, logger.With("component", "withdrawal_matcher"))
}
