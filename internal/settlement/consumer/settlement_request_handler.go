package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/anchor-settlement-engine/internal/domain/transaction"
	"github.com/anchor-settlement-engine/internal/platform/messaging/producers"
	"github.com/anchor-settlement-engine/internal/settlement/service"
)

var errMissingTransactionID = errors.New("settlement request without transaction_id")

// SettlementRequestHandler handles deposit settlement requests from Kafka
type SettlementRequestHandler struct {
	settler  service.Settler
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

// NewSettlementRequestHandler creates a new handler
func NewSettlementRequestHandler(
	logger *slog.Logger,
	settler service.Settler,
	producer producers.DeadLetterPublisher,
) *SettlementRequestHandler {
	return &SettlementRequestHandler{
		settler:  settler,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage settles the requested deposit. It returns an error only when the
// deposit could not be claimed, so the message is redelivered.
func (h *SettlementRequestHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request transaction.SettlementRequest
	err := json.Unmarshal(value, &request)
	if err == nil && request.TransactionID == uuid.Nil {
		err = errMissingTransactionID
	}
	if err != nil {
		return parkMessage(ctx, h.logger, h.producer, key, value, "Failed to decode settlement request", err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received settlement request", "transaction_id", request.TransactionID.String())

	outcome, err := h.settler.SettleDeposit(ctx, &request)
	if err != nil {
		logger.Error("Failed to settle deposit",
			"transaction_id", request.TransactionID.String(),
			"error", err,
		)
		return fmt.Errorf("settling deposit %s failed: %w", request.TransactionID.String(), err)
	}

	logger.Info("Settlement request handled", "transaction_id", request.TransactionID.String(), "outcome", outcome)
	return nil
}

// parkMessage sends an undecodable message to the DLQ and returns nil once it is
// parked so its offset is committed. A failed publish returns an error so the
// consumer retries it. Without a DLQ the message is dropped, since retrying a
// decode cannot succeed and would stall the partition.
func parkMessage(ctx context.Context, logger *slog.Logger, dlq producers.DeadLetterPublisher, key, value []byte, msg string, cause error) error {
	logger.Error(msg, "error", cause, "message_key", string(key))

	if dlq == nil {
		logger.Error("No DLQ configured, dropping undecodable message", "message_key", string(key))
		return nil
	}

	reason := fmt.Sprintf("%s: %s", msg, cause.Error())
	if dlqErr := dlq.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("failed to decode message: %w", cause)
	}
	return nil
}
