package journal

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores settlement attempts
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	ListByTransactionID(ctx context.Context, transactionID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByTransactionID(ctx context.Context, transactionID uuid.UUID) (int64, error)
}
