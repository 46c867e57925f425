package service

import (
	"context"
	"errors"

	"github.com/stellar/go/strkey"

	"github.com/anchor-settlement-engine/internal/domain/ledger"
)

// ErrInvalidAddress is returned for strings that are not ledger account IDs
var ErrInvalidAddress = errors.New("invalid ledger account address")

// AccountLoader reads ledger accounts
type AccountLoader interface {
	LoadAccount(ctx context.Context, address string) (*ledger.Account, error)
}

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accounts AccountLoader
}

// NewAccountService creates a new account service
func NewAccountService(accounts AccountLoader) AccountService {
	return &AccountServiceImpl{
		accounts: accounts,
	}
}

// GetLedgerAccount validates the address before asking the ledger
func (s *AccountServiceImpl) GetLedgerAccount(ctx context.Context, address string) (*ledger.Account, error) {
	if !strkey.IsValidEd25519PublicKey(address) {
		return nil, ErrInvalidAddress
	}
	return s.accounts.LoadAccount(ctx, address)
}
