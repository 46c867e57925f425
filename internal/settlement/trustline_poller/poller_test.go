package trustline_poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anchor-settlement-engine/internal/config"
	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
	"github.com/anchor-settlement-engine/internal/settlement/service"
)

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

type MockAccountLoader struct {
	mock.Mock
}

func (m *MockAccountLoader) LoadAccount(ctx context.Context, address string) (*ledger.Account, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) SettleDeposit(ctx context.Context, request *transaction.SettlementRequest) (service.Outcome, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(service.Outcome), args.Error(1)
}

var testConfig = &config.TrustlineConfig{Schedule: "@every 1s", BatchSize: 50}

var firstPage = (*transaction.PageCursor)(nil)

func pendingTrustDeposit(t *testing.T, n int, failedAttempts int) *transaction.Transaction {
	t.Helper()
	tx, err := transaction.NewDeposit(fmt.Sprintf("GDEST%d", n), ledger.Asset{Code: "USD", Issuer: "GISSUER"},
		decimal.RequireFromString("10"), decimal.Zero)
	require.NoError(t, err)
	tx.Status = transaction.StatusPendingTrust
	tx.FailedAttempts = failedAttempts
	return tx
}

func withBalances(address string, codes ...string) *ledger.Account {
	acc := &ledger.Account{Address: address, Balances: []ledger.Balance{{AssetType: "native", Amount: "2.5"}}}
	for _, code := range codes {
		acc.Balances = append(acc.Balances, ledger.Balance{AssetType: "credit_alphanum4", AssetCode: code, Amount: "0"})
	}
	return acc
}

func forTransaction(id uuid.UUID) interface{} {
	return mock.MatchedBy(func(req *transaction.SettlementRequest) bool {
		return req.TransactionID == id && req.CorrelationID != ""
	})
}

func TestPoller_Reconcile(t *testing.T) {
	repo := &MockTransactionRepo{}
	accounts := &MockAccountLoader{}
	settler := &MockSettler{}
	poller := NewPoller(testConfig, repo, accounts, settler, slog.Default())

	trusted := pendingTrustDeposit(t, 1, 0)
	untrusted := pendingTrustDeposit(t, 2, 0)
	otherAsset := pendingTrustDeposit(t, 3, 0)
	unreachable := pendingTrustDeposit(t, 4, 0)
	malformed := pendingTrustDeposit(t, 5, 0)
	freshMissing := pendingTrustDeposit(t, 6, 0)
	failedCreate := pendingTrustDeposit(t, 7, 1)

	repo.On("ListByStatus", mock.Anything, transaction.KindDeposit, transaction.StatusPendingTrust, firstPage, 50).
		Return([]*transaction.Transaction{trusted, untrusted, otherAsset, unreachable, malformed, freshMissing, failedCreate}, nil).Once()

	accounts.On("LoadAccount", mock.Anything, "GDEST1").Return(withBalances("GDEST1", "USD"), nil)
	// Asset codes are case sensitive: a "usd" trustline does not hold USD.
	accounts.On("LoadAccount", mock.Anything, "GDEST2").Return(withBalances("GDEST2", "usd"), nil)
	accounts.On("LoadAccount", mock.Anything, "GDEST3").Return(withBalances("GDEST3", "EUR"), nil)
	accounts.On("LoadAccount", mock.Anything, "GDEST4").Return(nil, errors.New("timeout"))
	accounts.On("LoadAccount", mock.Anything, "GDEST5").Return(nil, fmt.Errorf("%w: no id", ledger.ErrMalformedResponse))
	accounts.On("LoadAccount", mock.Anything, "GDEST6").Return(nil, ledger.ErrAccountNotFound)
	accounts.On("LoadAccount", mock.Anything, "GDEST7").Return(nil, ledger.ErrAccountNotFound)

	settler.On("SettleDeposit", mock.Anything, forTransaction(trusted.ID)).Return(service.OutcomeCompleted, nil).Once()
	settler.On("SettleDeposit", mock.Anything, forTransaction(failedCreate.ID)).Return(service.OutcomeAccountCreated, nil).Once()

	err := poller.Reconcile(context.Background())

	require.NoError(t, err)
	settler.AssertExpectations(t)
	settler.AssertNumberOfCalls(t, "SettleDeposit", 2)
	accounts.AssertNumberOfCalls(t, "LoadAccount", 7)
}

func TestPoller_ReconcilePagesThroughBacklog(t *testing.T) {
	repo := &MockTransactionRepo{}
	accounts := &MockAccountLoader{}
	settler := &MockSettler{}
	cfg := &config.TrustlineConfig{Schedule: "@every 1s", BatchSize: 2}
	poller := NewPoller(cfg, repo, accounts, settler, slog.Default())

	// The oldest page is full of deposits that never become settleable.
	stale1 := pendingTrustDeposit(t, 1, 0)
	stale2 := pendingTrustDeposit(t, 2, 0)
	stale2.StartedAt = stale1.StartedAt.Add(time.Second)
	trusted := pendingTrustDeposit(t, 3, 0)
	trusted.StartedAt = stale2.StartedAt.Add(time.Second)

	repo.On("ListByStatus", mock.Anything, transaction.KindDeposit, transaction.StatusPendingTrust, firstPage, 2).
		Return([]*transaction.Transaction{stale1, stale2}, nil).Once()
	repo.On("ListByStatus", mock.Anything, transaction.KindDeposit, transaction.StatusPendingTrust,
		&transaction.PageCursor{StartedAt: stale2.StartedAt, ID: stale2.ID}, 2).
		Return([]*transaction.Transaction{trusted}, nil).Once()

	accounts.On("LoadAccount", mock.Anything, "GDEST1").Return(withBalances("GDEST1"), nil)
	accounts.On("LoadAccount", mock.Anything, "GDEST2").Return(withBalances("GDEST2", "EUR"), nil)
	accounts.On("LoadAccount", mock.Anything, "GDEST3").Return(withBalances("GDEST3", "USD"), nil)
	settler.On("SettleDeposit", mock.Anything, forTransaction(trusted.ID)).Return(service.OutcomeCompleted, nil).Once()

	require.NoError(t, poller.Reconcile(context.Background()))

	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "ListByStatus", 2)
	settler.AssertExpectations(t)
	settler.AssertNumberOfCalls(t, "SettleDeposit", 1)
}

func TestPoller_ReconcileStopsAfterExactlyFullPage(t *testing.T) {
	repo := &MockTransactionRepo{}
	accounts := &MockAccountLoader{}
	cfg := &config.TrustlineConfig{Schedule: "@every 1s", BatchSize: 1}
	poller := NewPoller(cfg, repo, accounts, &MockSettler{}, slog.Default())

	only := pendingTrustDeposit(t, 1, 0)
	repo.On("ListByStatus", mock.Anything, transaction.KindDeposit, transaction.StatusPendingTrust, firstPage, 1).
		Return([]*transaction.Transaction{only}, nil).Once()
	repo.On("ListByStatus", mock.Anything, transaction.KindDeposit, transaction.StatusPendingTrust, transaction.CursorAt(only), 1).
		Return([]*transaction.Transaction{}, nil).Once()
	accounts.On("LoadAccount", mock.Anything, "GDEST1").Return(withBalances("GDEST1"), nil)

	require.NoError(t, poller.Reconcile(context.Background()))
	repo.AssertExpectations(t)
}

func TestPoller_ReconcileNothingPending(t *testing.T) {
	repo := &MockTransactionRepo{}
	accounts := &MockAccountLoader{}
	settler := &MockSettler{}
	poller := NewPoller(testConfig, repo, accounts, settler, slog.Default())

	repo.On("ListByStatus", mock.Anything, transaction.KindDeposit, transaction.StatusPendingTrust, firstPage, 50).
		Return([]*transaction.Transaction{}, nil).Once()

	require.NoError(t, poller.Reconcile(context.Background()))
	accounts.AssertNotCalled(t, "LoadAccount", mock.Anything, mock.Anything)
	settler.AssertNotCalled(t, "SettleDeposit", mock.Anything, mock.Anything)
}

func TestPoller_ReconcileListError(t *testing.T) {
	repo := &MockTransactionRepo{}
	poller := NewPoller(testConfig, repo, &MockAccountLoader{}, &MockSettler{}, slog.Default())

	repo.On("ListByStatus", mock.Anything, transaction.KindDeposit, transaction.StatusPendingTrust, firstPage, 50).
		Return(nil, errors.New("db error")).Once()

	err := poller.Reconcile(context.Background())
	assert.ErrorContains(t, err, "failed to list pending_trust deposits")
}

func TestPoller_ReconcileSettlerError(t *testing.T) {
	repo := &MockTransactionRepo{}
	accounts := &MockAccountLoader{}
	settler := &MockSettler{}
	poller := NewPoller(testConfig, repo, accounts, settler, slog.Default())

	tx := pendingTrustDeposit(t, 1, 0)
	repo.On("ListByStatus", mock.Anything, transaction.KindDeposit, transaction.StatusPendingTrust, firstPage, 50).
		Return([]*transaction.Transaction{tx}, nil).Once()
	accounts.On("LoadAccount", mock.Anything, "GDEST1").Return(withBalances("GDEST1", "USD"), nil)
	settler.On("SettleDeposit", mock.Anything, forTransaction(tx.ID)).Return(service.OutcomeSkipped, errors.New("db error")).Once()

	assert.NoError(t, poller.Reconcile(context.Background()))
	settler.AssertExpectations(t)
}

func TestPoller_ReconcileRunsInParallel(t *testing.T) {
	repo := &MockTransactionRepo{}
	accounts := &MockAccountLoader{}
	settler := &MockSettler{}
	poller := NewPoller(testConfig, repo, accounts, settler, slog.Default())

	deposits := make([]*transaction.Transaction, 4)
	for i := range deposits {
		deposits[i] = pendingTrustDeposit(t, i, 0)
		address := deposits[i].DestinationAccount()
		accounts.On("LoadAccount", mock.Anything, address).Return(withBalances(address, "USD"), nil)
	}
	repo.On("ListByStatus", mock.Anything, transaction.KindDeposit, transaction.StatusPendingTrust, firstPage, 50).
		Return(deposits, nil).Once()

	var mu sync.Mutex
	active, peak := 0, 0
	settler.On("SettleDeposit", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	}).Return(service.OutcomeCompleted, nil)

	require.NoError(t, poller.Reconcile(context.Background()))
	settler.AssertNumberOfCalls(t, "SettleDeposit", 4)
	assert.Greater(t, peak, 1)
}

func TestPoller_Start(t *testing.T) {
	t.Run("runs passes on schedule until cancelled", func(t *testing.T) {
		repo := &MockTransactionRepo{}
		poller := NewPoller(testConfig, repo, &MockAccountLoader{}, &MockSettler{}, slog.Default())
		repo.On("ListByStatus", mock.Anything, transaction.KindDeposit, transaction.StatusPendingTrust, firstPage, 50).
			Return([]*transaction.Transaction{}, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
		defer cancel()

		require.NoError(t, poller.Start(ctx))
		repo.AssertCalled(t, "ListByStatus", mock.Anything, transaction.KindDeposit, transaction.StatusPendingTrust, firstPage, 50)
	})

	t.Run("invalid schedule", func(t *testing.T) {
		cfg := &config.TrustlineConfig{Schedule: "every minute please", BatchSize: 10}
		poller := NewPoller(cfg, &MockTransactionRepo{}, &MockAccountLoader{}, &MockSettler{}, slog.Default())

		err := poller.Start(context.Background())
		assert.ErrorContains(t, err, "invalid trustline schedule")
	})
}
