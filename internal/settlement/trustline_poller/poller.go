package trustline_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/anchor-settlement-engine/internal/config"
	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
	"github.com/anchor-settlement-engine/internal/platform/metrics"
	"github.com/anchor-settlement-engine/internal/settlement/service"
)

// AccountLoader reads ledger accounts
type AccountLoader interface {
	LoadAccount(ctx context.Context, address string) (*ledger.Account, error)
}

// Check results, also used as metric labels
const (
	resultTrustlineFound = "trustline_found"
	resultNoTrustline    = "no_trustline"
	resultRetryCreate    = "retry_create_account"
	resultAccountMissing = "account_missing"
	resultLookupFailed   = "lookup_failed"
	resultMalformed      = "malformed_response"
)

// Poller re-triggers settlement of pending_trust deposits whose destination has
// since established a trustline for the asset. It holds no locks of its own; the
// settler's status gate makes repeated or overlapping passes harmless.
type Poller struct {
	repo      transaction.Repository
	accounts  AccountLoader
	settler   service.Settler
	logger    *slog.Logger
	schedule  string
	batchSize int
}

func NewPoller(
	cfg *config.TrustlineConfig,
	repo transaction.Repository,
	accounts AccountLoader,
	settler service.Settler,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		repo:      repo,
		accounts:  accounts,
		settler:   settler,
		logger:    logger,
		schedule:  cfg.Schedule,
		batchSize: cfg.BatchSize,
	}
}

// Start runs Reconcile on the configured schedule until ctx is cancelled.
// A pass that is still running when the next one is due causes that one to be skipped.
func (p *Poller) Start(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(p.logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	if _, err := c.AddFunc(p.schedule, func() {
		if err := p.Reconcile(ctx); err != nil {
			p.logger.Error("Error during trustline reconciliation pass", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid trustline schedule %q: %w", p.schedule, err)
	}

	p.logger.Info("Starting Trustline Poller", "schedule", p.schedule, "batch_size", p.batchSize)
	c.Start()

	<-ctx.Done()
	p.logger.Info("Trustline Poller stopping due to context cancellation.")
	<-c.Stop().Done()
	return nil
}

// Reconcile makes one pass over the pending_trust deposits, a page of batchSize
// at a time, until the status is exhausted
func (p *Poller) Reconcile(ctx context.Context) error {
	metrics.TrustlineTicks.Inc()

	var (
		cursor      *transaction.PageCursor
		pending     int
		retriggered int
	)
	for ctx.Err() == nil {
		deposits, err := p.repo.ListByStatus(ctx, transaction.KindDeposit, transaction.StatusPendingTrust, cursor, p.batchSize)
		if err != nil {
			return fmt.Errorf("failed to list pending_trust deposits: %w", err)
		}
		if len(deposits) == 0 {
			break
		}

		pending += len(deposits)
		retriggered += p.reconcilePage(ctx, deposits)

		if len(deposits) < p.batchSize {
			break
		}
		cursor = transaction.CursorAt(deposits[len(deposits)-1])
	}

	if pending == 0 {
		p.logger.Debug("No pending_trust deposits found.")
		return nil
	}
	p.logger.Info("Trustline reconciliation pass finished", "pending_trust", pending, "retriggered", retriggered)
	return nil
}

// reconcilePage checks every deposit of a page and waits for its re-triggers
func (p *Poller) reconcilePage(ctx context.Context, deposits []*transaction.Transaction) int {
	var wg sync.WaitGroup
	retriggered := 0
	for _, tx := range deposits {
		if ctx.Err() != nil {
			break
		}
		if !p.shouldRetrigger(ctx, tx) {
			continue
		}

		retriggered++
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			p.retrigger(ctx, id)
		}(tx.ID)
	}
	wg.Wait()
	return retriggered
}

func (p *Poller) shouldRetrigger(ctx context.Context, tx *transaction.Transaction) bool {
	logger := p.logger.With("transaction_id", tx.ID.String())
	result := resultNoTrustline
	defer func() { metrics.TrustlineChecks.WithLabelValues(result).Inc() }()

	account, err := p.accounts.LoadAccount(ctx, tx.DestinationAccount())
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		// A failed account creation left the deposit here; retry it.
		if tx.FailedAttempts > 0 {
			result = resultRetryCreate
			return true
		}
		result = resultAccountMissing
		logger.Warn("Destination account of pending_trust deposit not found", "destination", tx.DestinationAccount())
		return false
	case errors.Is(err, ledger.ErrMalformedResponse):
		result = resultMalformed
		logger.Warn("Skipping deposit, malformed account response", "error", err)
		return false
	case err != nil:
		result = resultLookupFailed
		logger.Warn("Skipping deposit, account lookup failed", "error", err)
		return false
	}

	if !account.HasTrustline(tx.Asset.Code) {
		return false
	}
	result = resultTrustlineFound
	return true
}

func (p *Poller) retrigger(ctx context.Context, id uuid.UUID) {
	request := &transaction.SettlementRequest{
		TransactionID: id,
		CorrelationID: uuid.NewString(),
		RequestedAt:   time.Now().UTC(),
	}

	outcome, err := p.settler.SettleDeposit(ctx, request)
	if err != nil {
		p.logger.Error("Failed to re-trigger deposit settlement",
			"transaction_id", id.String(),
			"correlation_id", request.CorrelationID,
			"error", err,
		)
		return
	}
	p.logger.Info("Re-triggered deposit settlement",
		"transaction_id", id.String(),
		"correlation_id", request.CorrelationID,
		"outcome", outcome,
	)
}
