package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/anchor-settlement-engine/internal/api_gateway/service"
	"github.com/anchor-settlement-engine/internal/domain/ledger"
)

// AccountHandler exposes ledger account lookups
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// GetByAddress returns the ledger account with its balance lines, so an operator
// can see whether a pending_trust deposit's destination has added the trustline
func (h *AccountHandler) GetByAddress(c *gin.Context) {
	address := c.Param("address")

	acc, err := h.accountService.GetLedgerAccount(c.Request.Context(), address)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAddress):
			RespondBadRequest(c, "Invalid account address")
		case errors.Is(err, ledger.ErrAccountNotFound):
			RespondNotFound(c, "Account not found on the ledger")
		default:
			h.logger.Error("Failed to load ledger account", "address", address, "error", err)
			RespondBadGateway(c)
		}
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

func mapAccountToResponse(acc *ledger.Account) AccountResponse {
	balances := make([]BalanceResponse, 0, len(acc.Balances))
	for _, b := range acc.Balances {
		balances = append(balances, BalanceResponse{
			AssetType:   b.AssetType,
			AssetCode:   b.AssetCode,
			AssetIssuer: b.AssetIssuer,
			Amount:      b.Amount,
		})
	}
	return AccountResponse{
		Address:  acc.Address,
		Balances: balances,
	}
}
