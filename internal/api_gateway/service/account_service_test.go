package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anchor-settlement-engine/internal/domain/ledger"
)

type MockAccountLoader struct {
	mock.Mock
}

func (m *MockAccountLoader) LoadAccount(ctx context.Context, address string) (*ledger.Account, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func TestAccountServiceImpl_GetLedgerAccount(t *testing.T) {
	ctx := context.Background()
	address := keypair.MustRandom().Address()

	tests := []struct {
		name        string
		address     string
		setupMocks  func(loader *MockAccountLoader)
		expectedErr error
	}{
		{
			name:    "Success",
			address: address,
			setupMocks: func(loader *MockAccountLoader) {
				loader.On("LoadAccount", ctx, address).Return(&ledger.Account{
					Address:  address,
					Balances: []ledger.Balance{{AssetType: "credit_alphanum4", AssetCode: "USD", Amount: "0"}},
				}, nil).Once()
			},
		},
		{
			name:    "NotFound",
			address: address,
			setupMocks: func(loader *MockAccountLoader) {
				loader.On("LoadAccount", ctx, address).Return(nil, ledger.ErrAccountNotFound).Once()
			},
			expectedErr: ledger.ErrAccountNotFound,
		},
		{
			name:    "LedgerError",
			address: address,
			setupMocks: func(loader *MockAccountLoader) {
				loader.On("LoadAccount", ctx, address).Return(nil, errors.New("timeout")).Once()
			},
			expectedErr: errors.New("timeout"),
		},
		{
			name:        "InvalidAddress",
			address:     "GNOTANADDRESS",
			setupMocks:  func(loader *MockAccountLoader) {},
			expectedErr: ErrInvalidAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := new(MockAccountLoader)
			tt.setupMocks(loader)
			service := NewAccountService(loader)

			acc, err := service.GetLedgerAccount(ctx, tt.address)

			if tt.expectedErr != nil {
				assert.EqualError(t, err, tt.expectedErr.Error())
				assert.Nil(t, acc)
			} else {
				require.NoError(t, err)
				assert.True(t, acc.HasTrustline("USD"))
			}
			loader.AssertExpectations(t)
		})
	}
}
