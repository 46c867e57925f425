package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines transaction record persistence
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// ListByStatus returns up to limit records in (started_at, id) order, starting
	// after the cursor. A nil cursor starts from the oldest record.
	ListByStatus(ctx context.Context, kind Kind, status Status, after *PageCursor, limit int) ([]*Transaction, error)
	FindWithdrawalByMemo(ctx context.Context, memoType MemoType, memo string) (*Transaction, error)

	// TransitionStatus atomically moves a record of the given kind to `to` only if its
	// current status is one of `from`. It returns ErrStatusConflict when no row moved.
	TransitionStatus(ctx context.Context, id uuid.UUID, kind Kind, from []Status, to Status) (*Transaction, error)

	// Save writes the mutable fields using optimistic locking on Version
	Save(ctx context.Context, tx *Transaction) error
	WithTx(tx pgx.Tx) Repository
}

// PageCursor is the position of the last record of a page in (started_at, id) order
type PageCursor struct {
	StartedAt time.Time
	ID        uuid.UUID
}

// CursorAt returns the cursor positioned on tx
func CursorAt(tx *Transaction) *PageCursor {
	return &PageCursor{StartedAt: tx.StartedAt, ID: tx.ID}
}

// ErrStatusConflict means a conditional status change found the record in another status
var ErrStatusConflict = errors.New("transaction status changed concurrently")

// ErrTransactionNotFound indicates a missing transaction record
type ErrTransactionNotFound struct {
	ID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	ID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for transaction: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.ID == uuid.Nil || e.ID == t.ID
}

// ErrInvalidTransition is returned for a status change outside the transition graph
type ErrInvalidTransition struct {
	ID   uuid.UUID
	From Status
	To   Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition for %s: %s -> %s", e.ID, e.From, e.To)
}

// ErrWithdrawalNotFound indicates no withdrawal carries the memo
type ErrWithdrawalNotFound struct {
	MemoType MemoType
	Memo     string
}

func (e ErrWithdrawalNotFound) Error() string {
	return fmt.Sprintf("no withdrawal for %s memo %q", e.MemoType, e.Memo)
}
