package consumer

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
	"github.com/anchor-settlement-engine/internal/settlement/service"
)

type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) SettleDeposit(ctx context.Context, request *transaction.SettlementRequest) (service.Outcome, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(service.Outcome), args.Error(1)
}

type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) MatchIncomingPayment(ctx context.Context, payment *ledger.IncomingPayment, tx *transaction.Transaction) (service.MatchResult, error) {
	args := m.Called(ctx, payment, tx)
	return args.Get(0).(service.MatchResult), args.Error(1)
}

type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockPaymentClaimer struct {
	mock.Mock
}

func (m *MockPaymentClaimer) Claim(ctx context.Context, paymentID string) (bool, error) {
	args := m.Called(ctx, paymentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentClaimer) Release(ctx context.Context, paymentID string) error {
	return m.Called(ctx, paymentID).Error(0)
}

// MockTransactionRepo mocks the lookups used by the payment handler
type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Create(ctx context.Context, tx *transaction.Transaction) error {
	return m.Called(ctx, tx).Error(0)
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
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepo) WithTx(tx pgx.Tx) transaction.Repository {
	return m
}
