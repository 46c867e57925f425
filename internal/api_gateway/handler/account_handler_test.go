package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anchor-settlement-engine/internal/api_gateway/middleware"
	"github.com/anchor-settlement-engine/internal/api_gateway/service"
	"github.com/anchor-settlement-engine/internal/domain/ledger"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetLedgerAccount(ctx context.Context, address string) (*ledger.Account, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func TestAccountHandler_GetByAddress(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	account := &ledger.Account{
		Address: "GDEST",
		Balances: []ledger.Balance{
			{AssetType: "native", Amount: "2.5000000"},
			{AssetType: "credit_alphanum4", AssetCode: "USD", AssetIssuer: "GISSUER", Amount: "0.0000000"},
		},
	}

	tests := []struct {
		name           string
		setupMocks     func(svc *MockAccountService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "Success",
			setupMocks: func(svc *MockAccountService) {
				svc.On("GetLedgerAccount", mock.Anything, "GDEST").Return(account, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "InvalidAddress",
			setupMocks: func(svc *MockAccountService) {
				svc.On("GetLedgerAccount", mock.Anything, "GDEST").Return(nil, service.ErrInvalidAddress).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name: "NotFound",
			setupMocks: func(svc *MockAccountService) {
				svc.On("GetLedgerAccount", mock.Anything, "GDEST").Return(nil, ledger.ErrAccountNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name: "LedgerUnavailable",
			setupMocks: func(svc *MockAccountService) {
				svc.On("GetLedgerAccount", mock.Anything, "GDEST").Return(nil, errors.New("timeout")).Once()
			},
			expectedStatus: http.StatusBadGateway,
			expectedCode:   "LEDGER_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAccountService)
			tt.setupMocks(svc)
			router := gin.New()
			router.Use(middleware.CorrelationID())
			router.GET("/accounts/:address", NewAccountHandler(logger, svc).GetByAddress)

			rr := serve(router, http.MethodGet, "/accounts/GDEST")

			assert.Equal(t, tt.expectedStatus, rr.Code)
			var body DataResponse[AccountResponse]
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			if tt.expectedCode != "" {
				require.NotNil(t, body.Error)
				assert.Equal(t, tt.expectedCode, body.Error.Code)
			} else {
				assert.Equal(t, "GDEST", body.Data.Address)
				require.Len(t, body.Data.Balances, 2)
				assert.Equal(t, "USD", body.Data.Balances[1].AssetCode)
			}
			svc.AssertExpectations(t)
		})
	}
}
