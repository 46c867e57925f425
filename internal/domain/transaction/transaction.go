// Package transaction holds the off-chain transaction record and the status
// machine the settlement workers drive it through.
package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultStatusETA is the advisory number of seconds until the next status change
const DefaultStatusETA = 3600

// Kind distinguishes deposits from withdrawals
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
)

var (
	ErrInvalidKind      = errors.New("transaction kind must be deposit or withdrawal")
	ErrInvalidAmount    = errors.New("amount must be positive and cover the fee")
	ErrMissingAccount   = errors.New("ledger account is required")
	ErrMissingAsset     = errors.New("asset code is required")
	ErrAlreadyCompleted = errors.New("transaction already completed")
	ErrWrongKind        = errors.New("operation not valid for transaction kind")
)

// DepositDetails holds the fields only deposits carry
type DepositDetails struct {
	StellarAccount string `json:"stellar_account"`
}

// WithdrawalDetails holds the fields only withdrawals carry
type WithdrawalDetails struct {
	AnchorAccount string   `json:"withdraw_anchor_account"`
	Memo          string   `json:"withdraw_memo"`
	MemoType      MemoType `json:"withdraw_memo_type"`
}

// Transaction is a deposit or a withdrawal. Exactly one of Deposit and
// Withdrawal is set, matching Kind.
type Transaction struct {
	ID                    uuid.UUID           `json:"id"`
	Kind                  Kind                `json:"kind"`
	Status                Status              `json:"status"`
	StatusETA             int                 `json:"status_eta"`
	Asset                 ledger.Asset        `json:"asset"`
	AmountIn              decimal.Decimal     `json:"amount_in"`
	AmountFee             decimal.Decimal     `json:"amount_fee"`
	AmountOut             decimal.NullDecimal `json:"amount_out"`
	StellarTransactionID  string              `json:"stellar_transaction_id,omitempty"`
	ExternalTransactionID string              `json:"external_transaction_id,omitempty"`
	FailedAttempts        int                 `json:"failed_attempts"`
	LastError             string              `json:"last_error,omitempty"`
	Version               int                 `json:"version"`
	StartedAt             time.Time           `json:"started_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
	CompletedAt           *time.Time          `json:"completed_at,omitempty"`

	Deposit    *DepositDetails    `json:"deposit,omitempty"`
	Withdrawal *WithdrawalDetails `json:"withdrawal,omitempty"`
}

// NewDeposit creates a deposit awaiting the anchor's settlement
func NewDeposit(stellarAccount string, asset ledger.Asset, amountIn, amountFee decimal.Decimal) (*Transaction, error) {
	if stellarAccount == "" {
		return nil, ErrMissingAccount
	}
	tx, err := newTransaction(KindDeposit, StatusPendingAnchor, asset, amountIn, amountFee)
	if err != nil {
		return nil, err
	}
	tx.Deposit = &DepositDetails{StellarAccount: stellarAccount}
	return tx, nil
}

// NewWithdrawal creates a withdrawal waiting for the user's ledger payment
func NewWithdrawal(anchorAccount string, memoType MemoType, memo string, asset ledger.Asset, amountIn, amountFee decimal.Decimal) (*Transaction, error) {
	if anchorAccount == "" {
		return nil, ErrMissingAccount
	}
	normalized, err := NormalizeMemo(memoType, memo)
	if err != nil {
		return nil, err
	}
	tx, err := newTransaction(KindWithdrawal, StatusPendingUserTransferStart, asset, amountIn, amountFee)
	if err != nil {
		return nil, err
	}
	tx.Withdrawal = &WithdrawalDetails{AnchorAccount: anchorAccount, Memo: normalized, MemoType: memoType}
	return tx, nil
}

func newTransaction(kind Kind, status Status, asset ledger.Asset, amountIn, amountFee decimal.Decimal) (*Transaction, error) {
	if asset.Code == "" {
		return nil, ErrMissingAsset
	}
	if !amountIn.IsPositive() || amountFee.IsNegative() || amountFee.GreaterThan(amountIn) {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	return &Transaction{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    status,
		StatusETA: DefaultStatusETA,
		Asset:     asset,
		AmountIn:  amountIn,
		AmountFee: amountFee,
		Version:   1,
		StartedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks that the kind and its detail block agree
func (t *Transaction) Validate() error {
	switch t.Kind {
	case KindDeposit:
		if t.Deposit == nil || t.Withdrawal != nil {
			return fmt.Errorf("%w: deposit must carry deposit details only", ErrInvalidKind)
		}
	case KindWithdrawal:
		if t.Withdrawal == nil || t.Deposit != nil {
			return fmt.Errorf("%w: withdrawal must carry withdrawal details only", ErrInvalidKind)
		}
	default:
		return ErrInvalidKind
	}
	return nil
}

// PaymentAmount is the amount delivered on the ledger: amount_in minus fee,
// rounded to ledger precision
func (t *Transaction) PaymentAmount() decimal.Decimal {
	return t.AmountIn.Sub(t.AmountFee).Round(ledger.AmountPrecision)
}

// DestinationAccount returns the ledger account a deposit pays into
func (t *Transaction) DestinationAccount() string {
	if t.Deposit == nil {
		return ""
	}
	return t.Deposit.StellarAccount
}

// TransitionTo moves the transaction to status if the edge exists
func (t *Transaction) TransitionTo(status Status) error {
	if !CanTransition(t.Kind, t.Status, status) {
		return ErrInvalidTransition{ID: t.ID, From: t.Status, To: status}
	}
	t.Status = status
	return nil
}

// Complete records the ledger transaction that settled this record.
// The ledger id and completion time are write-once.
func (t *Transaction) Complete(ledgerTxID string, at time.Time) error {
	if t.CompletedAt != nil {
		return ErrAlreadyCompleted
	}
	if t.StellarTransactionID != "" && t.StellarTransactionID != ledgerTxID {
		return ErrAlreadyCompleted
	}
	if err := t.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	completedAt := at.UTC()
	t.CompletedAt = &completedAt
	t.StellarTransactionID = ledgerTxID
	t.StatusETA = 0
	if t.Kind == KindDeposit {
		t.AmountOut = decimal.NewNullDecimal(t.PaymentAmount())
	}
	return nil
}

// RecordFailure counts a failed settlement attempt
func (t *Transaction) RecordFailure(err error) {
	t.FailedAttempts++
	if err != nil {
		t.LastError = err.Error()
	}
}

// MatchesMemo reports whether a withdrawal is correlated with the given memo
func (t *Transaction) MatchesMemo(memoType MemoType, memo string) bool {
	if t.Withdrawal == nil || t.Withdrawal.MemoType != memoType {
		return false
	}
	normalized, err := NormalizeMemo(memoType, memo)
	if err != nil {
		return false
	}
	return normalized == t.Withdrawal.Memo
}
