package service

import (
	"context"

	"github.com/anchor-settlement-engine/internal/domain/journal"
	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
)

// Settler settles a deposit against the ledger.
// A non-nil error means the deposit was never claimed and the request can be retried;
// ledger failures are reported through the Outcome only.
type Settler interface {
	SettleDeposit(ctx context.Context, request *transaction.SettlementRequest) (Outcome, error)
}

// Matcher applies an observed ledger payment to the withdrawal it references
type Matcher interface {
	MatchIncomingPayment(ctx context.Context, payment *ledger.IncomingPayment, tx *transaction.Transaction) (MatchResult, error)
}

// JournalRecorder appends settlement attempts to the journal. Failures are logged, never returned.
type JournalRecorder interface {
	Record(ctx context.Context, entry *journal.Entry)
}
