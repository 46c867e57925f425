// Package ledger describes the external ledger the engine settles against: account
// lookups, fee discovery and signed submissions, plus the payment records observed on it.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// AmountPrecision is the number of decimal places the ledger accepts for asset amounts
const AmountPrecision int32 = 7

// Client is the ledger access used by the settlement workers.
// Implementations must bound every call in time.
type Client interface {
	// LoadAccount returns ErrAccountNotFound when the address has no account on the ledger.
	LoadAccount(ctx context.Context, address string) (*Account, error)
	// FetchBaseFee returns the current per-operation base fee in stroops.
	FetchBaseFee(ctx context.Context) (int64, error)
	// Submit signs and submits the operations as one transaction.
	// A rejected transaction is reported as a *SubmissionError.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
}

// Asset identifies a non-native asset by code and issuing account
type Asset struct {
	Code   string `json:"code"`
	Issuer string `json:"issuer,omitempty"`
}

// AssetTypeNative and AssetTypePoolShares are balance lines that carry no asset code
const (
	AssetTypeNative     = "native"
	AssetTypePoolShares = "liquidity_pool_shares"
)

// Balance is one line of an account's balance list
type Balance struct {
	AssetType       string `json:"asset_type"`
	AssetCode       string `json:"asset_code,omitempty"`
	AssetIssuer     string `json:"asset_issuer,omitempty"`
	LiquidityPoolID string `json:"liquidity_pool_id,omitempty"`
	Amount          string `json:"balance"`
}

// Account is a ledger account as seen by the engine
type Account struct {
	Address  string
	Balances []Balance
}

// HasTrustline reports whether the account holds a balance line for the asset code.
// Codes are case-sensitive and only the code is compared, not the issuer.
// Native and liquidity pool share lines are ignored.
func (a *Account) HasTrustline(code string) bool {
	if a == nil || code == "" {
		return false
	}
	for _, b := range a.Balances {
		if b.AssetType == AssetTypeNative || b.AssetType == AssetTypePoolShares {
			continue
		}
		if b.AssetCode == code {
			return true
		}
	}
	return false
}

// Operation is one of the operation types the engine submits
type Operation interface {
	operationType() string
}

// CreateAccount funds a new account with the native starting balance
type CreateAccount struct {
	Destination     string
	StartingBalance string
}

func (CreateAccount) operationType() string { return "create_account" }

// Payment sends an asset amount to an existing account
type Payment struct {
	Destination string
	Asset       Asset
	Amount      decimal.Decimal
}

func (Payment) operationType() string { return "payment" }

// OperationName returns the wire name of an operation, used in logs and the journal
func OperationName(op Operation) string {
	if op == nil {
		return ""
	}
	return op.operationType()
}

// SubmitRequest carries the operations of one ledger transaction
type SubmitRequest struct {
	Operations []Operation
	BaseFee    int64
	Memo       string
}

// SubmitResult describes an accepted ledger transaction
type SubmitResult struct {
	Hash      string
	Ledger    int32
	ResultXDR string
}

// FormatAmount renders an amount with the ledger's fixed precision
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPrecision)
}
