// Package postgres provides PostgreSQL implementations of the domain repositories.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
	"github.com/anchor-settlement-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, kind, status, status_eta, asset_code, asset_issuer, amount_in, amount_fee, amount_out,
		stellar_account, withdraw_anchor_account, withdraw_memo, withdraw_memo_type,
		stellar_transaction_id, external_transaction_id, failed_attempts, last_error,
		version, started_at, updated_at, completed_at`

const (
	createTransactionQuery = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	getTransactionByIDQuery = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	listTransactionsByStatusQuery = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE kind = $1 AND status = $2
		ORDER BY started_at ASC, id ASC
		LIMIT $3
	`

	listTransactionsByStatusAfterQuery = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE kind = $1 AND status = $2 AND (started_at, id) > ($3, $4)
		ORDER BY started_at ASC, id ASC
		LIMIT $5
	`

	findWithdrawalByMemoQuery = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE kind = 'withdrawal' AND withdraw_memo_type = $1 AND withdraw_memo = $2
	`

	transitionStatusQuery = `
		UPDATE transactions
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND kind = $3 AND status = ANY($4)
		RETURNING ` + transactionColumns

	saveTransactionQuery = `
		UPDATE transactions
		SET status = $1, status_eta = $2, amount_out = $3, stellar_transaction_id = $4,
			failed_attempts = $5, last_error = $6, completed_at = $7, version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10
	`
)

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given database transaction
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new transaction record
func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	var stellarAccount, anchorAccount, memo, memoType string
	if tx.Deposit != nil {
		stellarAccount = tx.Deposit.StellarAccount
	}
	if tx.Withdrawal != nil {
		anchorAccount = tx.Withdrawal.AnchorAccount
		memo = tx.Withdrawal.Memo
		memoType = string(tx.Withdrawal.MemoType)
	}

	_, err := r.querier.Exec(ctx, createTransactionQuery,
		tx.ID,
		string(tx.Kind),
		string(tx.Status),
		tx.StatusETA,
		tx.Asset.Code,
		tx.Asset.Issuer,
		tx.AmountIn,
		tx.AmountFee,
		tx.AmountOut,
		stellarAccount,
		anchorAccount,
		memo,
		memoType,
		tx.StellarTransactionID,
		tx.ExternalTransactionID,
		tx.FailedAttempts,
		tx.LastError,
		tx.Version,
		tx.StartedAt,
		tx.UpdatedAt,
		tx.CompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", "transaction_id", tx.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	tx, err := scanTransaction(r.querier.QueryRow(ctx, getTransactionByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ID: id}
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// ListByStatus returns a page of transactions of a kind in the given status, oldest first
func (r *TransactionRepository) ListByStatus(ctx context.Context, kind transaction.Kind, status transaction.Status, after *transaction.PageCursor, limit int) ([]*transaction.Transaction, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if after == nil {
		rows, err = r.querier.Query(ctx, listTransactionsByStatusQuery, string(kind), string(status), limit)
	} else {
		rows, err = r.querier.Query(ctx, listTransactionsByStatusAfterQuery,
			string(kind), string(status), after.StartedAt, after.ID, limit)
	}
	if err != nil {
		r.logger.Error("Failed to list transactions", "kind", kind, "status", status, "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating transactions", "error", err)
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// FindWithdrawalByMemo looks up the withdrawal correlated with a normalized memo
func (r *TransactionRepository) FindWithdrawalByMemo(ctx context.Context, memoType transaction.MemoType, memo string) (*transaction.Transaction, error) {
	tx, err := scanTransaction(r.querier.QueryRow(ctx, findWithdrawalByMemoQuery, string(memoType), memo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrWithdrawalNotFound{MemoType: memoType, Memo: memo}
		}
		r.logger.Error("Failed to find withdrawal by memo", "memo_type", memoType, "error", err)
		return nil, fmt.Errorf("failed to find withdrawal: %w", err)
	}

	return tx, nil
}

// TransitionStatus performs a compare-and-set on the status column.
// Every from->to edge must exist in the transition graph for the kind.
func (r *TransactionRepository) TransitionStatus(ctx context.Context, id uuid.UUID, kind transaction.Kind, from []transaction.Status, to transaction.Status) (*transaction.Transaction, error) {
	fromValues := make([]string, 0, len(from))
	for _, f := range from {
		if !transaction.CanTransition(kind, f, to) {
			return nil, transaction.ErrInvalidTransition{ID: id, From: f, To: to}
		}
		fromValues = append(fromValues, string(f))
	}

	tx, err := scanTransaction(r.querier.QueryRow(ctx, transitionStatusQuery, string(to), id, string(kind), fromValues))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrStatusConflict
		}
		r.logger.Error("Failed to transition transaction status", "transaction_id", id.String(), "to", to, "error", err)
		return nil, fmt.Errorf("failed to transition transaction status: %w", err)
	}

	return tx, nil
}

// Save writes the fields the settlement workers change. The row must still be at
// tx.Version; on success tx.Version is advanced.
func (r *TransactionRepository) Save(ctx context.Context, tx *transaction.Transaction) error {
	now := time.Now().UTC()

	result, err := r.querier.Exec(ctx, saveTransactionQuery,
		string(tx.Status),
		tx.StatusETA,
		tx.AmountOut,
		tx.StellarTransactionID,
		tx.FailedAttempts,
		tx.LastError,
		tx.CompletedAt,
		now,
		tx.ID,
		tx.Version,
	)
	if err != nil {
		r.logger.Error("Failed to save transaction", "transaction_id", tx.ID.String(), "error", err)
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrConcurrentModification{ID: tx.ID}
	}

	tx.Version++
	tx.UpdatedAt = now
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*transaction.Transaction, error) {
	var (
		tx                     transaction.Transaction
		kind, status, memoType string
		assetCode, issuer      string
		stellarAccount         string
		anchorAccount, memo    string
	)

	err := row.Scan(
		&tx.ID,
		&kind,
		&status,
		&tx.StatusETA,
		&assetCode,
		&issuer,
		&tx.AmountIn,
		&tx.AmountFee,
		&tx.AmountOut,
		&stellarAccount,
		&anchorAccount,
		&memo,
		&memoType,
		&tx.StellarTransactionID,
		&tx.ExternalTransactionID,
		&tx.FailedAttempts,
		&tx.LastError,
		&tx.Version,
		&tx.StartedAt,
		&tx.UpdatedAt,
		&tx.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Kind = transaction.Kind(kind)
	tx.Status = transaction.Status(status)
	tx.Asset = ledger.Asset{Code: assetCode, Issuer: issuer}

	switch tx.Kind {
	case transaction.KindDeposit:
		tx.Deposit = &transaction.DepositDetails{StellarAccount: stellarAccount}
	case transaction.KindWithdrawal:
		tx.Withdrawal = &transaction.WithdrawalDetails{
			AnchorAccount: anchorAccount,
			Memo:          memo,
			MemoType:      transaction.MemoType(memoType),
		}
	}

	return &tx, nil
}
