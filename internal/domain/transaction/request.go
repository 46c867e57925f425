package transaction

import (
	"time"

	"github.com/google/uuid"
)

// SettlementRequest asks the engine to settle a deposit
type SettlementRequest struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	CorrelationID string    `json:"correlation_id"`
	RequestedAt   time.Time `json:"requested_at"`
}
