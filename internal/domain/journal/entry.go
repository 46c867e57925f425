// Package journal records every settlement attempt made against the ledger.
package journal

import (
	"time"

	"github.com/google/uuid"
)

// Operation names the kind of ledger interaction an entry records
type Operation string

const (
	OperationCreateAccount   Operation = "create_account"
	OperationPayment         Operation = "payment"
	OperationWithdrawalMatch Operation = "withdrawal_match"
	OperationAccountLookup   Operation = "account_lookup"
)

// Outcome is the result of the attempt
type Outcome string

const (
	OutcomeSucceeded     Outcome = "succeeded"
	OutcomeNoTrustline   Outcome = "no_trustline"
	OutcomeFailed        Outcome = "failed"
	OutcomeIgnored       Outcome = "ignored"
	OutcomeLedgerFailure Outcome = "ledger_failure"
	OutcomeUnconfirmed   Outcome = "unconfirmed"
)

// Entry is one attempt against the ledger for a transaction
type Entry struct {
	TransactionID   uuid.UUID `json:"transaction_id" bson:"transaction_id"`
	Operation       Operation `json:"operation" bson:"operation"`
	Outcome         Outcome   `json:"outcome" bson:"outcome"`
	StatusBefore    string    `json:"status_before" bson:"status_before"`
	StatusAfter     string    `json:"status_after" bson:"status_after"`
	LedgerTxID      string    `json:"ledger_tx_id,omitempty" bson:"ledger_tx_id,omitempty"`
	TransactionCode string    `json:"transaction_code,omitempty" bson:"transaction_code,omitempty"`
	OperationCodes  []string  `json:"operation_codes,omitempty" bson:"operation_codes,omitempty"`
	Error           string    `json:"error,omitempty" bson:"error,omitempty"`
	CorrelationID   string    `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}
