package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
	"github.com/anchor-settlement-engine/internal/platform/messaging/producers"
	"github.com/anchor-settlement-engine/internal/platform/metrics"
	"github.com/anchor-settlement-engine/internal/settlement/service"
)

// PaymentClaimer de-duplicates ledger payments redelivered by the broker
type PaymentClaimer interface {
	Claim(ctx context.Context, paymentID string) (bool, error)
	Release(ctx context.Context, paymentID string) error
}

// Match results recorded for payments that never reach the matcher
const (
	resultNoMemo      = "no_memo"
	resultInvalidMemo = "invalid_memo"
	resultUnknownMemo = "unknown_memo"
	resultDuplicate   = "duplicate"
	resultError       = "error"
)

// IncomingPaymentHandler correlates observed ledger payments with pending
// withdrawals by memo and hands them to the matcher
type IncomingPaymentHandler struct {
	repo     transaction.Repository
	matcher  service.Matcher
	claimer  PaymentClaimer
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

func NewIncomingPaymentHandler(
	logger *slog.Logger,
	repo transaction.Repository,
	matcher service.Matcher,
	claimer PaymentClaimer,
	producer producers.DeadLetterPublisher,
) *IncomingPaymentHandler {
	return &IncomingPaymentHandler{
		repo:     repo,
		matcher:  matcher,
		claimer:  claimer,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage processes one incoming payment record
func (h *IncomingPaymentHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var payment ledger.IncomingPayment
	if err := json.Unmarshal(value, &payment); err != nil {
		return parkMessage(ctx, h.logger, h.producer, key, value, "Failed to decode incoming payment", err)
	}

	logger := h.logger.With("payment_id", payment.ID)

	memoType := transaction.MemoType(payment.MemoType)
	if payment.Memo == "" || !memoType.Valid() {
		logger.Debug("Ignoring payment without a usable memo", "memo_type", payment.MemoType)
		return h.done(resultNoMemo, nil)
	}

	memo, err := transaction.NormalizeMemo(memoType, payment.Memo)
	if err != nil {
		logger.Warn("Ignoring payment with unreadable memo", "memo_type", payment.MemoType, "memo", payment.Memo)
		return h.done(resultInvalidMemo, nil)
	}

	tx, err := h.repo.FindWithdrawalByMemo(ctx, memoType, memo)
	if err != nil {
		var notFound transaction.ErrWithdrawalNotFound
		if errors.As(err, &notFound) {
			logger.Info("No withdrawal for payment memo", "memo_type", memoType, "memo", memo)
			return h.done(resultUnknownMemo, nil)
		}
		logger.Error("Failed to look up withdrawal by memo", "error", err)
		return h.done(resultError, fmt.Errorf("withdrawal lookup for payment %s failed: %w", payment.ID, err))
	}

	claimed := false
	if h.claimer != nil {
		ok, err := h.claimer.Claim(ctx, payment.ID)
		switch {
		case err != nil:
			logger.Warn("Payment de-duplication unavailable, relying on status check", "error", err)
		case !ok:
			logger.Info("Payment already processed, skipping", "transaction_id", tx.ID.String())
			return h.done(resultDuplicate, nil)
		default:
			claimed = true
		}
	}

	result, err := h.matcher.MatchIncomingPayment(ctx, &payment, tx)
	if err != nil {
		if claimed {
			if relErr := h.claimer.Release(ctx, payment.ID); relErr != nil {
				logger.Error("Failed to release payment claim", "error", relErr)
			}
		}
		return h.done(resultError, fmt.Errorf("matching payment %s failed: %w", payment.ID, err))
	}

	return h.done(string(result), nil)
}

func (h *IncomingPaymentHandler) done(result string, err error) error {
	metrics.WithdrawalMatches.WithLabelValues(result).Inc()
	return err
}
