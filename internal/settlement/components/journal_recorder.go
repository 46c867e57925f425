package components

import (
	"context"
	"log/slog"
	"time"

	"github.com/anchor-settlement-engine/internal/domain/journal"
	"github.com/anchor-settlement-engine/internal/settlement/service"
)

// journalWriteTimeout bounds a journal append so a slow journal store cannot hold a worker
const journalWriteTimeout = 5 * time.Second

type JournalRecorderImpl struct {
	journalRepo journal.Repository
	logger      *slog.Logger
}

func NewJournalRecorder(journalRepo journal.Repository, logger *slog.Logger) service.JournalRecorder {
	return &JournalRecorderImpl{
		journalRepo: journalRepo,
		logger:      logger,
	}
}

// Record appends the attempt to the journal. The entry is still written when the
// caller's context has been cancelled.
func (r *JournalRecorderImpl) Record(ctx context.Context, entry *journal.Entry) {
	logger := r.logger
	if entry.CorrelationID != "" {
		logger = r.logger.With("correlation_id", entry.CorrelationID)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalWriteTimeout)
	defer cancel()

	if err := r.journalRepo.Append(writeCtx, entry); err != nil {
		logger.Error("Failed to record settlement attempt",
			"transaction_id", entry.TransactionID.String(),
			"operation", entry.Operation,
			"outcome", entry.Outcome,
			"error", err,
		)
		return
	}

	logger.Debug("Recorded settlement attempt",
		"transaction_id", entry.TransactionID.String(),
		"operation", entry.Operation,
		"outcome", entry.Outcome,
	)
}
