package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/anchor-settlement-engine/internal/domain/journal"
	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
)

// TransactionService is the API's view of transaction records
type TransactionService interface {
	// RequestSettlement queues settlement of a deposit.
	// Returns ErrTransactionNotFound or ErrNotSettleable when the deposit cannot be queued.
	RequestSettlement(ctx context.Context, id uuid.UUID, correlationID string) (*transaction.Transaction, error)

	// GetTransactionByID returns nil when the transaction does not exist
	GetTransactionByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)

	// GetAttempts returns a page of journal entries and the total number of entries
	GetAttempts(ctx context.Context, id uuid.UUID, page, perPage int) ([]*journal.Entry, int64, error)
}

// AccountService looks up ledger accounts for operators checking trustlines
type AccountService interface {
	// GetLedgerAccount returns ErrInvalidAddress for malformed addresses and
	// ledger.ErrAccountNotFound for unfunded ones
	GetLedgerAccount(ctx context.Context, address string) (*ledger.Account, error)
}

// ErrNotSettleable is returned for transactions the settlement worker would not claim
type ErrNotSettleable struct {
	ID     uuid.UUID
	Kind   transaction.Kind
	Status transaction.Status
}

func (e ErrNotSettleable) Error() string {
	return fmt.Sprintf("transaction %s (%s, %s) cannot be settled", e.ID, e.Kind, e.Status)
}
