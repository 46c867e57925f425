package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anchor-settlement-engine/internal/domain/journal"
	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/domain/transaction"
	"github.com/anchor-settlement-engine/internal/platform/metrics"
)

// SettlerConfig holds the settlement parameters of DepositSettler
type SettlerConfig struct {
	StartingBalance   string
	MaxFailedAttempts int
	DefaultIssuer     string // used for deposits recorded without an asset issuer
}

// DepositSettler moves a deposit from the anchor to the user's ledger account.
// The persisted status is the only lock: a deposit is claimed by moving it to
// pending_stellar before any ledger call is made.
type DepositSettler struct {
	repo    transaction.Repository
	ledger  ledger.Client
	journal JournalRecorder
	cfg     SettlerConfig
	logger  *slog.Logger
	now     func() time.Time
}

func NewDepositSettler(
	repo transaction.Repository,
	client ledger.Client,
	journal JournalRecorder,
	cfg SettlerConfig,
	logger *slog.Logger,
) *DepositSettler {
	return &DepositSettler{
		repo:    repo,
		ledger:  client,
		journal: journal,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// SettleDeposit claims the deposit and makes at most one ledger submission for it
func (s *DepositSettler) SettleDeposit(ctx context.Context, request *transaction.SettlementRequest) (Outcome, error) {
	logger := s.logger.With("transaction_id", request.TransactionID.String())
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	tx, err := s.repo.TransitionStatus(ctx, request.TransactionID, transaction.KindDeposit,
		transaction.SettleableStatuses, transaction.StatusPendingStellar)
	if err != nil {
		if errors.Is(err, transaction.ErrStatusConflict) {
			logger.Info("Deposit is not awaiting settlement, skipping")
			return s.done(OutcomeSkipped), nil
		}
		logger.Error("Failed to claim deposit for settlement", "error", err)
		return OutcomeSkipped, fmt.Errorf("failed to claim deposit %s: %w", request.TransactionID, err)
	}

	logger.Info("Claimed deposit for settlement",
		"destination", tx.DestinationAccount(),
		"asset", tx.Asset.Code,
		"amount", tx.PaymentAmount().String(),
	)

	run := &attempt{settler: s, tx: tx, logger: logger, correlationID: request.CorrelationID}

	if _, err := s.ledger.LoadAccount(ctx, tx.DestinationAccount()); err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return s.done(run.createAccount(ctx)), nil
		}
		return s.done(run.fail(ctx, journal.OperationAccountLookup, err)), nil
	}

	return s.done(run.pay(ctx)), nil
}

func (s *DepositSettler) done(outcome Outcome) Outcome {
	metrics.DepositOutcomes.WithLabelValues(string(outcome)).Inc()
	return outcome
}

// attempt carries one claimed deposit through its ledger call and outcome write
type attempt struct {
	settler       *DepositSettler
	tx            *transaction.Transaction
	logger        *slog.Logger
	correlationID string
}

func (a *attempt) createAccount(ctx context.Context) Outcome {
	destination := a.tx.DestinationAccount()
	a.logger.Info("Destination account not found, creating it", "destination", destination)

	fee, err := a.settler.ledger.FetchBaseFee(ctx)
	if err != nil {
		return a.fail(ctx, journal.OperationCreateAccount, err)
	}

	res, err := a.settler.ledger.Submit(ctx, ledger.SubmitRequest{
		Operations: []ledger.Operation{ledger.CreateAccount{
			Destination:     destination,
			StartingBalance: a.settler.cfg.StartingBalance,
		}},
		BaseFee: fee,
	})
	if err != nil {
		return a.submitFailed(ctx, journal.OperationCreateAccount, err)
	}

	if err := a.tx.TransitionTo(transaction.StatusPendingTrust); err != nil {
		a.logger.Error("Unexpected status after account creation", "error", err)
		return OutcomeFailed
	}

	entry := a.entry(journal.OperationCreateAccount, journal.OutcomeSucceeded)
	entry.LedgerTxID = res.Hash
	if !a.save(ctx, entry) {
		return OutcomeFailed
	}

	a.logger.Info("Created destination account, deposit awaits trustline", "ledger_tx_id", res.Hash)
	return OutcomeAccountCreated
}

func (a *attempt) pay(ctx context.Context) Outcome {
	fee, err := a.settler.ledger.FetchBaseFee(ctx)
	if err != nil {
		return a.fail(ctx, journal.OperationPayment, err)
	}

	asset := a.tx.Asset
	if asset.Issuer == "" {
		asset.Issuer = a.settler.cfg.DefaultIssuer
	}

	amount := a.tx.PaymentAmount()
	res, err := a.settler.ledger.Submit(ctx, ledger.SubmitRequest{
		Operations: []ledger.Operation{ledger.Payment{
			Destination: a.tx.DestinationAccount(),
			Asset:       asset,
			Amount:      amount,
		}},
		BaseFee: fee,
	})
	if ledger.IsNoTrustline(err) {
		if err := a.tx.TransitionTo(transaction.StatusPendingTrust); err != nil {
			a.logger.Error("Unexpected status after trustline rejection", "error", err)
			return OutcomeFailed
		}
		entry := a.entry(journal.OperationPayment, journal.OutcomeNoTrustline)
		withResultCodes(entry, err)
		if !a.save(ctx, entry) {
			return OutcomeFailed
		}
		a.logger.Info("Destination has no trustline for asset, deposit awaits trustline", "asset", a.tx.Asset.Code)
		return OutcomeAwaitingTrustline
	}
	if err != nil {
		return a.submitFailed(ctx, journal.OperationPayment, err)
	}

	if err := a.tx.Complete(res.Hash, a.settler.now()); err != nil {
		a.logger.Error("Failed to complete deposit after payment", "ledger_tx_id", res.Hash, "error", err)
		return OutcomeFailed
	}

	entry := a.entry(journal.OperationPayment, journal.OutcomeSucceeded)
	entry.LedgerTxID = res.Hash
	if !a.save(ctx, entry) {
		return OutcomeFailed
	}

	a.logger.Info("Deposit completed", "ledger_tx_id", res.Hash, "amount_out", amount.String())
	return OutcomeCompleted
}

// submitFailed routes a failed submission. Only a submission known to have left
// nothing on the ledger enters the retry policy; any other is held.
func (a *attempt) submitFailed(ctx context.Context, op journal.Operation, cause error) Outcome {
	if ledger.IsSafeToResubmit(cause) {
		return a.fail(ctx, op, cause)
	}
	return a.hold(ctx, op, cause)
}

// hold keeps the deposit in pending_stellar after a submission with an unknown
// outcome. The poller never lists pending_stellar, so nothing resubmits it; an
// operator checks the recorded hash on the ledger first.
func (a *attempt) hold(ctx context.Context, op journal.Operation, cause error) Outcome {
	a.tx.RecordFailure(cause)
	hash := ledger.UnconfirmedHash(cause)

	a.logger.Error("Ledger submission outcome unknown, deposit held in pending_stellar for operator action",
		"operation", op,
		"ledger_tx_id", hash,
		"failed_attempts", a.tx.FailedAttempts,
		"error", cause,
	)

	entry := a.entry(op, journal.OutcomeUnconfirmed)
	entry.LedgerTxID = hash
	entry.Error = cause.Error()
	a.save(ctx, entry)

	return OutcomeUnconfirmed
}

// fail counts the failed attempt. Below the attempt limit the deposit goes back to
// pending_trust so the trustline poller retries it; at the limit it stays
// pending_stellar until an operator resolves it.
func (a *attempt) fail(ctx context.Context, op journal.Operation, cause error) Outcome {
	a.tx.RecordFailure(cause)

	if a.tx.FailedAttempts < a.settler.cfg.MaxFailedAttempts {
		if err := a.tx.TransitionTo(transaction.StatusPendingTrust); err != nil {
			a.logger.Error("Unexpected status after failed attempt", "error", err)
		}
		a.logger.Warn("Settlement attempt failed, deposit returned to reconciliation",
			"operation", op,
			"failed_attempts", a.tx.FailedAttempts,
			"error", cause,
		)
	} else {
		a.logger.Error("Settlement attempts exhausted, deposit left pending_stellar for operator action",
			"operation", op,
			"failed_attempts", a.tx.FailedAttempts,
			"error", cause,
		)
	}

	outcome := journal.OutcomeFailed
	if errors.Is(cause, ledger.ErrMalformedResponse) {
		outcome = journal.OutcomeLedgerFailure
	}
	entry := a.entry(op, outcome)
	entry.Error = cause.Error()
	withResultCodes(entry, cause)
	a.save(ctx, entry)

	return OutcomeFailed
}

// save writes the outcome and journals the attempt. The journal entry is written even
// when the store write fails so the ledger transaction can be reconciled by hand.
func (a *attempt) save(ctx context.Context, entry *journal.Entry) bool {
	saved := true
	if err := a.settler.repo.Save(ctx, a.tx); err != nil {
		saved = false
		a.logger.Error("Failed to persist settlement outcome, deposit left pending_stellar",
			"status", a.tx.Status,
			"ledger_tx_id", entry.LedgerTxID,
			"error", err,
		)
		entry.StatusAfter = string(transaction.StatusPendingStellar)
		if entry.Error == "" {
			entry.Error = err.Error()
		}
	}
	a.settler.journal.Record(ctx, entry)
	return saved
}

func (a *attempt) entry(op journal.Operation, outcome journal.Outcome) *journal.Entry {
	return &journal.Entry{
		TransactionID: a.tx.ID,
		Operation:     op,
		Outcome:       outcome,
		StatusBefore:  string(transaction.StatusPendingStellar),
		StatusAfter:   string(a.tx.Status),
		CorrelationID: a.correlationID,
		CreatedAt:     a.settler.now().UTC(),
	}
}

func withResultCodes(entry *journal.Entry, err error) {
	var subErr *ledger.SubmissionError
	if errors.As(err, &subErr) {
		entry.TransactionCode = subErr.TransactionCode
		entry.OperationCodes = subErr.OperationCodes
	}
}
