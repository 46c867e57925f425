package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/anchor-settlement-engine/internal/domain/journal"
	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
)

// MockTransactionRepo mocks transaction.Repository
type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Create(ctx context.Context, tx *transaction.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) ListByStatus(ctx context.Context, kind transaction.Kind, status transaction.Status, after *transaction.PageCursor, limit int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, kind, status, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) FindWithdrawalByMemo(ctx context.Context, memoType transaction.MemoType, memo string) (*transaction.Transaction, error) {
	args := m.Called(ctx, memoType, memo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) TransitionStatus(ctx context.Context, id uuid.UUID, kind transaction.Kind, from []transaction.Status, to transaction.Status) (*transaction.Transaction, error) {
	args := m.Called(ctx, id, kind, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) Save(ctx context.Context, tx *transaction.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepo) WithTx(tx pgx.Tx) transaction.Repository {
	args := m.Called(tx)
	return args.Get(0).(transaction.Repository)
}

// MockLedgerClient mocks ledger.Client
type MockLedgerClient struct {
	mock.Mock
}

func (m *MockLedgerClient) LoadAccount(ctx context.Context, address string) (*ledger.Account, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockLedgerClient) FetchBaseFee(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerClient) Submit(ctx context.Context, req ledger.SubmitRequest) (*ledger.SubmitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.SubmitResult), args.Error(1)
}

// MockJournalRecorder mocks JournalRecorder
type MockJournalRecorder struct {
	mock.Mock
}

func (m *MockJournalRecorder) Record(ctx context.Context, entry *journal.Entry) {
	m.Called(ctx, entry)
}

// MockSettler mocks Settler
type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) SettleDeposit(ctx context.Context, request *transaction.SettlementRequest) (Outcome, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(Outcome), args.Error(1)
}
