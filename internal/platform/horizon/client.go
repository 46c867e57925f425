// Package horizon adapts the Stellar Horizon API to the engine's ledger client.
package horizon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"

	"github.com/anchor-settlement-engine/internal/config"
	"github.com/anchor-settlement-engine/internal/domain/ledger"
	"github.com/anchor-settlement-engine/internal/platform/metrics"
)

// Client implements ledger.Client against a Horizon server. Submissions are
// serialized because they share the distribution account's sequence number.
type Client struct {
	horizon    horizonclient.ClientInterface
	signer     *keypair.Full
	passphrase string
	txTimeout  time.Duration
	logger     *slog.Logger

	submitMu sync.Mutex
}

var _ ledger.Client = (*Client)(nil)

// NewHorizonAPI builds the underlying Horizon client with a bounded HTTP timeout
func NewHorizonAPI(cfg *config.LedgerConfig) *horizonclient.Client {
	return &horizonclient.Client{
		HorizonURL: cfg.HorizonURL,
		HTTP:       &http.Client{Timeout: cfg.CallTimeout},
	}
}

// NewClient creates a ledger client signing with the given distribution keypair.
// The signer may be nil for read-only processes.
func NewClient(api horizonclient.ClientInterface, signer *keypair.Full, cfg *config.LedgerConfig, logger *slog.Logger) *Client {
	return &Client{
		horizon:    api,
		signer:     signer,
		passphrase: cfg.NetworkPassphrase,
		txTimeout:  cfg.TxTimeout,
		logger:     logger,
	}
}

// ParseSigner reads the distribution seed. An empty seed yields a nil signer.
func ParseSigner(seed string) (*keypair.Full, error) {
	if seed == "" {
		return nil, nil
	}
	kp, err := keypair.ParseFull(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid distribution seed: %w", err)
	}
	return kp, nil
}

// LoadAccount fetches an account and its balance list
func (c *Client) LoadAccount(ctx context.Context, address string) (*ledger.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := observe("load_account")
	acc, err := c.horizon.AccountDetail(horizonclient.AccountRequest{AccountID: address})
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			done("not_found")
			return nil, ledger.ErrAccountNotFound
		}
		done("error")
		return nil, fmt.Errorf("failed to load account %s: %w", address, err)
	}
	done("ok")

	if acc.AccountID == "" {
		return nil, fmt.Errorf("%w: account without id", ledger.ErrMalformedResponse)
	}

	// Pool share lines have no asset code; HasTrustline skips them
	balances := make([]ledger.Balance, 0, len(acc.Balances))
	for _, b := range acc.Balances {
		balances = append(balances, ledger.Balance{
			AssetType:       b.Asset.Type,
			AssetCode:       b.Asset.Code,
			AssetIssuer:     b.Asset.Issuer,
			LiquidityPoolID: b.LiquidityPoolId,
			Amount:          b.Balance,
		})
	}

	return &ledger.Account{Address: acc.AccountID, Balances: balances}, nil
}

// FetchBaseFee returns the network's current base fee, never below the protocol minimum
func (c *Client) FetchBaseFee(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	done := observe("fetch_base_fee")
	stats, err := c.horizon.FeeStats()
	if err != nil {
		done("error")
		return 0, fmt.Errorf("failed to fetch base fee: %w", err)
	}
	done("ok")

	fee := stats.LastLedgerBaseFee

	if fee < txnbuild.MinBaseFee {
		fee = txnbuild.MinBaseFee
	}
	return fee, nil
}

// Submit builds, signs and submits one transaction from the distribution account.
// Failures before the transaction is sent wrap ledger.ErrNotSubmitted. A send whose
// outcome is unknown is reported as a *ledger.UnconfirmedSubmissionError.
func (c *Client) Submit(ctx context.Context, req ledger.SubmitRequest) (*ledger.SubmitResult, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("%w: ledger client has no signing key", ledger.ErrNotSubmitted)
	}
	if len(req.Operations) == 0 {
		return nil, fmt.Errorf("%w: no operations to submit", ledger.ErrNotSubmitted)
	}

	ops := make([]txnbuild.Operation, 0, len(req.Operations))
	for _, op := range req.Operations {
		converted, err := toTxnbuildOperation(op)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ledger.ErrNotSubmitted, err)
		}
		ops = append(ops, converted)
	}

	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrNotSubmitted, err)
	}

	source, err := c.horizon.AccountDetail(horizonclient.AccountRequest{AccountID: c.signer.Address()})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load distribution account: %w", ledger.ErrNotSubmitted, err)
	}

	baseFee := req.BaseFee
	if baseFee < txnbuild.MinBaseFee {
		baseFee = txnbuild.MinBaseFee
	}

	params := txnbuild.TransactionParams{
		SourceAccount:        &source,
		IncrementSequenceNum: true,
		BaseFee:              baseFee,
		Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(int64(c.txTimeout.Seconds()))},
		Operations:           ops,
	}
	if req.Memo != "" {
		params.Memo = txnbuild.MemoText(req.Memo)
	}

	tx, err := txnbuild.NewTransaction(params)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build transaction: %w", ledger.ErrNotSubmitted, err)
	}
	tx, err = tx.Sign(c.passphrase, c.signer)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to sign transaction: %w", ledger.ErrNotSubmitted, err)
	}
	hash, err := tx.HashHex(c.passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to hash transaction: %w", ledger.ErrNotSubmitted, err)
	}

	done := observe("submit")
	resp, err := c.horizon.SubmitTransaction(tx)
	if err != nil {
		done("rejected")
		return nil, submissionError(hash, err)
	}
	done("ok")

	if resp.Hash == "" {
		return nil, &ledger.UnconfirmedSubmissionError{
			Hash: hash,
			Err:  fmt.Errorf("%w: submission response without hash", ledger.ErrMalformedResponse),
		}
	}
	if !resp.Successful {
		return nil, &ledger.SubmissionError{TransactionCode: ledger.TxFailed, ResultXDR: resp.ResultXdr}
	}

	return &ledger.SubmitResult{Hash: resp.Hash, Ledger: resp.Ledger, ResultXDR: resp.ResultXdr}, nil
}

// Stream delivers every transaction touching account, starting after cursor
// ("now" for new transactions only), until ctx is cancelled.
func (c *Client) Stream(ctx context.Context, account, cursor string, handler func(ledger.IncomingPayment)) error {
	req := horizonclient.TransactionRequest{ForAccount: account, Cursor: cursor}
	return c.horizon.StreamTransactions(ctx, req, func(tx hProtocol.Transaction) {
		handler(toIncomingPayment(tx))
	})
}

func toIncomingPayment(tx hProtocol.Transaction) ledger.IncomingPayment {
	return ledger.IncomingPayment{
		ID:            tx.ID,
		Hash:          tx.Hash,
		Successful:    tx.Successful,
		SourceAccount: tx.Account,
		MemoType:      tx.MemoType,
		Memo:          tx.Memo,
		EnvelopeXDR:   tx.EnvelopeXdr,
		ResultXDR:     tx.ResultXdr,
		PagingToken:   tx.PT,
		CreatedAt:     tx.LedgerCloseTime,
	}
}

func toTxnbuildOperation(op ledger.Operation) (txnbuild.Operation, error) {
	switch o := op.(type) {
	case ledger.CreateAccount:
		return &txnbuild.CreateAccount{Destination: o.Destination, Amount: o.StartingBalance}, nil
	case ledger.Payment:
		return &txnbuild.Payment{
			Destination: o.Destination,
			Amount:      ledger.FormatAmount(o.Amount),
			Asset:       txnbuild.CreditAsset{Code: o.Asset.Code, Issuer: o.Asset.Issuer},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported ledger operation %T", op)
	}
}

// submissionError converts a Horizon rejection carrying result codes into a
// *ledger.SubmissionError. Anything else (timeouts, transport errors, gateway
// errors without codes) leaves the outcome unknown.
func submissionError(hash string, err error) error {
	hErr := horizonclient.GetError(err)
	if hErr == nil {
		return &ledger.UnconfirmedSubmissionError{Hash: hash, Err: err}
	}

	codes, codesErr := hErr.ResultCodes()
	if codesErr != nil || codes == nil || codes.TransactionCode == "" {
		return &ledger.UnconfirmedSubmissionError{
			Hash: hash,
			Err:  fmt.Errorf("horizon status %d: %w", hErr.Problem.Status, err),
		}
	}

	resultXDR, _ := hErr.ResultString()
	return &ledger.SubmissionError{
		Status:          hErr.Problem.Status,
		TransactionCode: codes.TransactionCode,
		OperationCodes:  codes.OperationCodes,
		ResultXDR:       resultXDR,
	}
}

func observe(method string) func(result string) {
	start := time.Now()
	return func(result string) {
		metrics.LedgerLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
		metrics.LedgerCalls.WithLabelValues(method, result).Inc()
	}
}
