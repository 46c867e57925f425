package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anchor-settlement-engine/internal/domain/journal"
	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
)

// WithdrawalMatcher settles withdrawals from the user payments observed on the ledger
type WithdrawalMatcher struct {
	repo    transaction.Repository
	journal JournalRecorder
	logger  *slog.Logger
	now     func() time.Time
}

func NewWithdrawalMatcher(repo transaction.Repository, journal JournalRecorder, logger *slog.Logger) *WithdrawalMatcher {
	return &WithdrawalMatcher{
		repo:    repo,
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
}

// MatchIncomingPayment applies payment to the withdrawal tx. A successful payment
// completes the withdrawal; an unsuccessful one moves it to pending_stellar for
// anchor follow-up. The write is version checked so only one payment can complete
// a withdrawal. Errors are returned only when the store could not be written.
func (m *WithdrawalMatcher) MatchIncomingPayment(ctx context.Context, payment *ledger.IncomingPayment, tx *transaction.Transaction) (MatchResult, error) {
	logger := m.logger.With("transaction_id", tx.ID.String(), "payment_id", payment.ID)

	if tx.Kind != transaction.KindWithdrawal {
		return "", fmt.Errorf("%w: %s is a %s", transaction.ErrWrongKind, tx.ID, tx.Kind)
	}

	if !tx.MatchesMemo(transaction.MemoType(payment.MemoType), payment.Memo) {
		logger.Warn("Payment memo does not match withdrawal", "memo_type", payment.MemoType, "memo", payment.Memo)
		return MatchMemoMismatch, nil
	}

	if !isMatchable(tx.Status) {
		logger.Info("Withdrawal already settled, ignoring payment", "status", tx.Status)
		return MatchAlreadySettled, nil
	}

	before := tx.Status
	entry := &journal.Entry{
		TransactionID: tx.ID,
		Operation:     journal.OperationWithdrawalMatch,
		StatusBefore:  string(before),
		LedgerTxID:    payment.ID,
		CreatedAt:     m.now().UTC(),
	}

	result := MatchCompleted
	if payment.Successful {
		if err := tx.Complete(payment.ID, m.now()); err != nil {
			logger.Error("Failed to complete withdrawal", "error", err)
			return "", err
		}
		entry.Outcome = journal.OutcomeSucceeded
	} else {
		result = MatchPendingStellar
		entry.Outcome = journal.OutcomeLedgerFailure
		entry.Error = "ledger payment was not successful"
		if before == transaction.StatusPendingStellar {
			entry.StatusAfter = string(before)
			m.journal.Record(ctx, entry)
			logger.Warn("Another unsuccessful payment for withdrawal already pending_stellar")
			return result, nil
		}
		if err := tx.TransitionTo(transaction.StatusPendingStellar); err != nil {
			return "", err
		}
	}

	if err := m.repo.Save(ctx, tx); err != nil {
		if errors.Is(err, transaction.ErrConcurrentModification{}) {
			logger.Info("Withdrawal changed concurrently, payment not applied")
			return MatchAlreadySettled, nil
		}
		logger.Error("Failed to persist withdrawal match", "error", err)
		return "", fmt.Errorf("failed to save withdrawal %s: %w", tx.ID, err)
	}

	entry.StatusAfter = string(tx.Status)
	m.journal.Record(ctx, entry)

	logger.Info("Applied incoming payment to withdrawal",
		"successful", payment.Successful,
		"status_before", before,
		"status", tx.Status,
	)
	return result, nil
}

func isMatchable(status transaction.Status) bool {
	for _, s := range transaction.MatchableStatuses {
		if s == status {
			return true
		}
	}
	return false
}
