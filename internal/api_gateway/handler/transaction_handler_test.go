package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anchor-settlement-engine/internal/api_gateway/middleware"
	"github.com/anchor-settlement-engine/internal/api_gateway/service"
	"github.com/anchor-settlement-engine/internal/domain/journal"
	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
)

// PaginatedResponse is a generic version of Response for testing paginated data
type PaginatedResponse[T any] struct {
	Data          []T        `json:"data"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

// DataResponse is a generic version of Response for testing single items
type DataResponse[T any] struct {
	Data          T          `json:"data"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) RequestSettlement(ctx context.Context, id uuid.UUID, correlationID string) (*transaction.Transaction, error) {
	args := m.Called(ctx, id, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetTransactionByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetAttempts(ctx context.Context, id uuid.UUID, page, perPage int) ([]*journal.Entry, int64, error) {
	args := m.Called(ctx, id, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*journal.Entry), args.Get(1).(int64), args.Error(2)
}

func newTestRouter(h *TransactionHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.POST("/deposits/:id/settle", h.Settle)
	router.GET("/transactions/:id", h.GetByID)
	router.GET("/transactions/:id/attempts", h.GetAttempts)
	return router
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	req.Header.Set(middleware.CorrelationIDHeader, "corr-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func testDeposit(t *testing.T) *transaction.Transaction {
	t.Helper()
	tx, err := transaction.NewDeposit("GDEST", ledger.Asset{Code: "USD", Issuer: "GISSUER"},
		decimal.RequireFromString("100"), decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	return tx
}

func TestTransactionHandler_Settle(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	tx := testDeposit(t)

	tests := []struct {
		name           string
		path           string
		setupMocks     func(svc *MockTransactionService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "Accepted",
			path: "/deposits/" + tx.ID.String() + "/settle",
			setupMocks: func(svc *MockTransactionService) {
				svc.On("RequestSettlement", mock.Anything, tx.ID, "corr-1").Return(tx, nil).Once()
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "InvalidID",
			path:           "/deposits/not-a-uuid/settle",
			setupMocks:     func(svc *MockTransactionService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name: "NotFound",
			path: "/deposits/" + tx.ID.String() + "/settle",
			setupMocks: func(svc *MockTransactionService) {
				svc.On("RequestSettlement", mock.Anything, tx.ID, "corr-1").
					Return(nil, transaction.ErrTransactionNotFound{ID: tx.ID}).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name: "NotSettleable",
			path: "/deposits/" + tx.ID.String() + "/settle",
			setupMocks: func(svc *MockTransactionService) {
				svc.On("RequestSettlement", mock.Anything, tx.ID, "corr-1").
					Return(nil, service.ErrNotSettleable{ID: tx.ID, Kind: transaction.KindDeposit, Status: transaction.StatusCompleted}).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "CONFLICT",
		},
		{
			name: "PublishFailure",
			path: "/deposits/" + tx.ID.String() + "/settle",
			setupMocks: func(svc *MockTransactionService) {
				svc.On("RequestSettlement", mock.Anything, tx.ID, "corr-1").Return(nil, errors.New("broker down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockTransactionService)
			tt.setupMocks(svc)
			router := newTestRouter(NewTransactionHandler(logger, svc))

			rr := serve(router, http.MethodPost, tt.path)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			var body DataResponse[SettlementAcceptedResponse]
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, "corr-1", body.CorrelationID)
			if tt.expectedCode != "" {
				require.NotNil(t, body.Error)
				assert.Equal(t, tt.expectedCode, body.Error.Code)
			} else {
				assert.Equal(t, tx.ID.String(), body.Data.TransactionID)
				assert.Equal(t, "pending_anchor", body.Data.Status)
				assert.Equal(t, "corr-1", body.Data.CorrelationID)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestTransactionHandler_GetByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		svc := new(MockTransactionService)
		router := newTestRouter(NewTransactionHandler(logger, svc))
		tx := testDeposit(t)
		completedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		tx.Status = transaction.StatusPendingStellar
		require.NoError(t, tx.Complete("ledgerhash", completedAt))
		svc.On("GetTransactionByID", mock.Anything, tx.ID).Return(tx, nil).Once()

		rr := serve(router, http.MethodGet, "/transactions/"+tx.ID.String())

		assert.Equal(t, http.StatusOK, rr.Code)
		var body DataResponse[TransactionResponse]
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "completed", body.Data.Status)
		assert.Equal(t, 0, body.Data.StatusETA)
		assert.Equal(t, "deposit", body.Data.Kind)
		assert.Equal(t, "100.0000000", body.Data.AmountIn)
		assert.Equal(t, "1.5000000", body.Data.AmountFee)
		assert.Equal(t, "98.5000000", body.Data.AmountOut)
		assert.Equal(t, "GDEST", body.Data.StellarAccount)
		assert.Equal(t, "ledgerhash", body.Data.StellarTransactionID)
		assert.Equal(t, "2026-01-02T03:04:05Z", body.Data.CompletedAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := new(MockTransactionService)
		router := newTestRouter(NewTransactionHandler(logger, svc))
		id := uuid.New()
		svc.On("GetTransactionByID", mock.Anything, id).Return(nil, nil).Once()

		rr := serve(router, http.MethodGet, "/transactions/"+id.String())
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("ServiceError", func(t *testing.T) {
		svc := new(MockTransactionService)
		router := newTestRouter(NewTransactionHandler(logger, svc))
		id := uuid.New()
		svc.On("GetTransactionByID", mock.Anything, id).Return(nil, errors.New("db error")).Once()

		rr := serve(router, http.MethodGet, "/transactions/"+id.String())
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		svc := new(MockTransactionService)
		router := newTestRouter(NewTransactionHandler(logger, svc))

		rr := serve(router, http.MethodGet, "/transactions/123")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "GetTransactionByID", mock.Anything, mock.Anything)
	})
}

func TestTransactionHandler_GetAttempts(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	id := uuid.New()

	t.Run("Success", func(t *testing.T) {
		svc := new(MockTransactionService)
		router := newTestRouter(NewTransactionHandler(logger, svc))
		entries := []*journal.Entry{
			{
				TransactionID:   id,
				Operation:       journal.OperationPayment,
				Outcome:         journal.OutcomeNoTrustline,
				StatusBefore:    "pending_stellar",
				StatusAfter:     "pending_trust",
				TransactionCode: ledger.TxFailed,
				OperationCodes:  []string{ledger.OpNoTrust},
				CreatedAt:       time.Now(),
			},
		}
		svc.On("GetAttempts", mock.Anything, id, 2, 5).Return(entries, int64(6), nil).Once()

		rr := serve(router, http.MethodGet, "/transactions/"+id.String()+"/attempts?page=2&per_page=5")

		assert.Equal(t, http.StatusOK, rr.Code)
		var body PaginatedResponse[AttemptResponse]
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Len(t, body.Data, 1)
		assert.Equal(t, "no_trustline", body.Data[0].Outcome)
		assert.Equal(t, []string{"op_no_trust"}, body.Data[0].OperationCodes)
		require.NotNil(t, body.Meta)
		assert.Equal(t, 2, body.Meta.TotalPages)
		assert.Equal(t, 6, body.Meta.TotalItems)
	})

	t.Run("DefaultPagination", func(t *testing.T) {
		svc := new(MockTransactionService)
		router := newTestRouter(NewTransactionHandler(logger, svc))
		svc.On("GetAttempts", mock.Anything, id, 1, 10).Return([]*journal.Entry{}, int64(0), nil).Once()

		rr := serve(router, http.MethodGet, "/transactions/"+id.String()+"/attempts")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"data":[]`)
		svc.AssertExpectations(t)
	})

	t.Run("InvalidPagination", func(t *testing.T) {
		svc := new(MockTransactionService)
		router := newTestRouter(NewTransactionHandler(logger, svc))

		rr := serve(router, http.MethodGet, "/transactions/"+id.String()+"/attempts?per_page=1000")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("ServiceError", func(t *testing.T) {
		svc := new(MockTransactionService)
		router := newTestRouter(NewTransactionHandler(logger, svc))
		svc.On("GetAttempts", mock.Anything, id, 1, 10).Return(nil, int64(0), errors.New("mongo down")).Once()

		rr := serve(router, http.MethodGet, "/transactions/"+id.String()+"/attempts")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
