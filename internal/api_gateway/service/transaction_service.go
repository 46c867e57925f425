package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/anchor-settlement-engine/internal/domain/journal"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
	"github.com/anchor-settlement-engine/internal/platform/messaging/producers"
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	transactionRepo transaction.Repository
	journalRepo     journal.Repository
	producer        producers.MessagePublisher
	logger          *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(
	logger *slog.Logger,
	transactionRepo transaction.Repository,
	journalRepo journal.Repository,
	producer producers.MessagePublisher,
) TransactionService {
	return &TransactionServiceImpl{
		transactionRepo: transactionRepo,
		journalRepo:     journalRepo,
		producer:        producer,
		logger:          logger,
	}
}

// RequestSettlement checks that the deposit is claimable and publishes a settlement
// request keyed by transaction ID. The engine repeats the status check when it
// claims the deposit, so a request racing another one is harmless.
func (s *TransactionServiceImpl) RequestSettlement(ctx context.Context, id uuid.UUID, correlationID string) (*transaction.Transaction, error) {
	tx, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Kind != transaction.KindDeposit || !slices.Contains(transaction.SettleableStatuses, tx.Status) {
		return nil, ErrNotSettleable{ID: tx.ID, Kind: tx.Kind, Status: tx.Status}
	}

	request := &transaction.SettlementRequest{
		TransactionID: tx.ID,
		CorrelationID: correlationID,
		RequestedAt:   time.Now().UTC(),
	}
	if err := s.producer.Publish(ctx, tx.ID.String(), request); err != nil {
		s.logger.Error("Failed to publish settlement request",
			"transaction_id", tx.ID.String(),
			"correlation_id", correlationID,
			"error", err,
		)
		return nil, fmt.Errorf("publish settlement request: %w", err)
	}

	s.logger.Info("Settlement request published",
		"transaction_id", tx.ID.String(),
		"correlation_id", correlationID,
		"status", string(tx.Status),
	)
	return tx, nil
}

// GetTransactionByID retrieves a transaction by its ID. Returns nil if not found
func (s *TransactionServiceImpl) GetTransactionByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	tx, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound{}) {
			s.logger.Info("Transaction not found", "transaction_id", id.String())
			return nil, nil
		}
		s.logger.Error("Failed to get transaction by ID", "transaction_id", id.String(), "error", err)
		return nil, err
	}
	return tx, nil
}

// GetAttempts retrieves one page of the settlement journal of a transaction
func (s *TransactionServiceImpl) GetAttempts(ctx context.Context, id uuid.UUID, page, perPage int) ([]*journal.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.journalRepo.ListByTransactionID(ctx, id, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.journalRepo.CountByTransactionID(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
