package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anchor-settlement-engine/internal/api_gateway/middleware"
	"github.com/anchor-settlement-engine/internal/api_gateway/service"
	"github.com/anchor-settlement-engine/internal/domain/journal"
	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
)

// TransactionHandler handles HTTP requests for transaction operations
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// Settle queues settlement of a deposit and answers 202. The outcome is observed
// through GetByID and GetAttempts.
func (h *TransactionHandler) Settle(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	tx, err := h.transactionService.RequestSettlement(c.Request.Context(), id, correlationID)
	if err != nil {
		var notSettleable service.ErrNotSettleable
		switch {
		case errors.Is(err, transaction.ErrTransactionNotFound{}):
			RespondNotFound(c, "Transaction not found")
		case errors.As(err, &notSettleable):
			h.logger.Warn("Settlement requested for unsettleable transaction",
				"transaction_id", id.String(),
				"kind", string(notSettleable.Kind),
				"status", string(notSettleable.Status),
			)
			RespondConflict(c, notSettleable.Error())
		default:
			h.logger.Error("Failed to request settlement", "transaction_id", id.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondAccepted(c, SettlementAcceptedResponse{
		TransactionID: tx.ID.String(),
		Status:        string(tx.Status),
		CorrelationID: correlationID,
	})
}

// GetByID retrieves transaction details by its ID, returns 404 if not found
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	tx, err := h.transactionService.GetTransactionByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get transaction", "transaction_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}
	if tx == nil {
		RespondNotFound(c, "Transaction not found")
		return
	}

	RespondOK(c, mapTransactionToResponse(tx))
}

// GetAttempts lists the settlement journal of a transaction, newest first
func (h *TransactionHandler) GetAttempts(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Warn("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.transactionService.GetAttempts(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to get settlement attempts", "transaction_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	attempts := make([]AttemptResponse, 0, len(entries))
	for _, entry := range entries {
		attempts = append(attempts, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, attempts, pagination.Page, pagination.PerPage, int(total))
}

func (h *TransactionHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid transaction ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return uuid.Nil, false
	}
	return id, true
}

func mapTransactionToResponse(tx *transaction.Transaction) TransactionResponse {
	response := TransactionResponse{
		ID:                    tx.ID.String(),
		Kind:                  string(tx.Kind),
		Status:                string(tx.Status),
		StatusETA:             tx.StatusETA,
		AssetCode:             tx.Asset.Code,
		AssetIssuer:           tx.Asset.Issuer,
		AmountIn:              ledger.FormatAmount(tx.AmountIn),
		AmountFee:             ledger.FormatAmount(tx.AmountFee),
		StellarTransactionID:  tx.StellarTransactionID,
		ExternalTransactionID: tx.ExternalTransactionID,
		FailedAttempts:        tx.FailedAttempts,
		LastError:             tx.LastError,
		StartedAt:             tx.StartedAt.Format(time.RFC3339),
		UpdatedAt:             tx.UpdatedAt.Format(time.RFC3339),
	}

	if tx.AmountOut.Valid {
		response.AmountOut = ledger.FormatAmount(tx.AmountOut.Decimal)
	}
	if tx.CompletedAt != nil {
		response.CompletedAt = tx.CompletedAt.Format(time.RFC3339)
	}
	if tx.Deposit != nil {
		response.StellarAccount = tx.Deposit.StellarAccount
	}
	if tx.Withdrawal != nil {
		response.WithdrawAnchorAccount = tx.Withdrawal.AnchorAccount
		response.WithdrawMemo = tx.Withdrawal.Memo
		response.WithdrawMemoType = string(tx.Withdrawal.MemoType)
	}

	return response
}

func mapEntryToResponse(entry *journal.Entry) AttemptResponse {
	return AttemptResponse{
		Operation:       string(entry.Operation),
		Outcome:         string(entry.Outcome),
		StatusBefore:    entry.StatusBefore,
		StatusAfter:     entry.StatusAfter,
		LedgerTxID:      entry.LedgerTxID,
		TransactionCode: entry.TransactionCode,
		OperationCodes:  entry.OperationCodes,
		Error:           entry.Error,
		CorrelationID:   entry.CorrelationID,
		CreatedAt:       entry.CreatedAt.Format(time.RFC3339),
	}
}
