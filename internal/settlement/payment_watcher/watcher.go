package payment_watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/platform/messaging/producers"
	"github.com/anchor-settlement-engine/internal/platform/metrics"
)

// StreamFromNow starts a stream at the ledger's current tip
const StreamFromNow = "now"

// PaymentStream follows ledger transactions touching an account
type PaymentStream interface {
	Stream(ctx context.Context, account, cursor string, handler func(ledger.IncomingPayment)) error
}

// CursorStore persists the stream position between restarts
type CursorStore interface {
	Load(ctx context.Context, account, fallback string) (string, error)
	Save(ctx context.Context, account, cursor string) error
}

// Watcher forwards transactions observed on the anchor account to the payment
// topic, resuming from the last forwarded paging token after a restart
type Watcher struct {
	account        string
	stream         PaymentStream
	cursors        CursorStore
	publisher      producers.MessagePublisher
	logger         *slog.Logger
	reconnectDelay time.Duration
}

func NewWatcher(
	account string,
	stream PaymentStream,
	cursors CursorStore,
	publisher producers.MessagePublisher,
	logger *slog.Logger,
) *Watcher {
	return &Watcher{
		account:        account,
		stream:         stream,
		cursors:        cursors,
		publisher:      publisher,
		logger:         logger.With("account", account),
		reconnectDelay: 5 * time.Second,
	}
}

// Run streams until ctx is cancelled, reconnecting after stream or publish failures
func (w *Watcher) Run(ctx context.Context) error {
	cursor, err := w.cursors.Load(ctx, w.account, StreamFromNow)
	if err != nil {
		w.logger.Warn("Failed to load stream cursor, starting from now", "error", err)
		cursor = StreamFromNow
	}

	w.logger.Info("Starting Payment Watcher", "cursor", cursor)
	for {
		cursor = w.follow(ctx, cursor)
		if ctx.Err() != nil {
			w.logger.Info("Payment Watcher stopping due to context cancellation.", "cursor", cursor)
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.reconnectDelay):
		}
		w.logger.Info("Reconnecting payment stream", "cursor", cursor)
	}
}

// follow runs one stream session and returns the cursor of the last forwarded payment
func (w *Watcher) follow(ctx context.Context, cursor string) string {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := w.stream.Stream(streamCtx, w.account, cursor, func(payment ledger.IncomingPayment) {
		if streamCtx.Err() != nil {
			return
		}
		if !w.forward(ctx, payment) {
			// Stop here so the next session resumes at this payment
			cancel()
			return
		}
		if payment.PagingToken != "" {
			cursor = payment.PagingToken
			if err := w.cursors.Save(ctx, w.account, cursor); err != nil {
				w.logger.Warn("Failed to save stream cursor", "cursor", cursor, "error", err)
			}
		}
	})
	if err != nil && ctx.Err() == nil {
		w.logger.Error("Payment stream ended with error", "error", err)
	}
	return cursor
}

func (w *Watcher) forward(ctx context.Context, payment ledger.IncomingPayment) bool {
	if err := w.publisher.Publish(ctx, payment.ID, payment); err != nil {
		metrics.PaymentsForwarded.WithLabelValues("publish_failed").Inc()
		w.logger.Error("Failed to publish incoming payment", "payment_id", payment.ID, "error", err)
		return false
	}
	metrics.PaymentsForwarded.WithLabelValues("published").Inc()
	w.logger.Debug("Forwarded incoming payment", "payment_id", payment.ID, "memo_type", payment.MemoType)
	return true
}
