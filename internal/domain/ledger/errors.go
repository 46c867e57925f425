package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Result codes reported by Horizon for submitted transactions
const (
	TxSuccess = "tx_success"
	TxFailed  = "tx_failed"

	OpSuccess       = "op_success"
	OpNoTrust       = "op_no_trust"
	OpAlreadyExists = "op_already_exists"
	OpUnderfunded   = "op_underfunded"
)

var (
	// ErrAccountNotFound means the ledger has no account at the address
	ErrAccountNotFound = errors.New("ledger account not found")
	// ErrMalformedResponse means the ledger answered with data the engine cannot interpret
	ErrMalformedResponse = errors.New("malformed ledger response")
	// ErrNotSubmitted means a transaction failed before it was sent to the ledger
	ErrNotSubmitted = errors.New("transaction not submitted")
)

// UnconfirmedSubmissionError is a submission whose outcome is unknown. The transaction
// may still be applied, so it must not be resubmitted until Hash has been checked.
type UnconfirmedSubmissionError struct {
	Hash string
	Err  error
}

func (e *UnconfirmedSubmissionError) Error() string {
	return fmt.Sprintf("ledger submission %s unconfirmed: %v", e.Hash, e.Err)
}

func (e *UnconfirmedSubmissionError) Unwrap() error {
	return e.Err
}

// IsSafeToResubmit reports whether a failed Submit is known to have left nothing
// applied on the ledger: it was never sent, or the ledger rejected it with a result code.
func IsSafeToResubmit(err error) bool {
	if err == nil {
		return false
	}
	var unconfirmed *UnconfirmedSubmissionError
	if errors.As(err, &unconfirmed) {
		return false
	}
	if errors.Is(err, ErrNotSubmitted) {
		return true
	}
	var subErr *SubmissionError
	return errors.As(err, &subErr) && subErr.TransactionCode != ""
}

// UnconfirmedHash returns the hash of an unconfirmed submission, if err is one
func UnconfirmedHash(err error) string {
	var unconfirmed *UnconfirmedSubmissionError
	if errors.As(err, &unconfirmed) {
		return unconfirmed.Hash
	}
	return ""
}

// SubmissionError is a transaction the ledger rejected, with its result codes
type SubmissionError struct {
	Status          int
	TransactionCode string
	OperationCodes  []string
	ResultXDR       string
}

func (e *SubmissionError) Error() string {
	if len(e.OperationCodes) == 0 {
		return fmt.Sprintf("ledger rejected transaction: %s", e.TransactionCode)
	}
	return fmt.Sprintf("ledger rejected transaction: %s [%s]", e.TransactionCode, strings.Join(e.OperationCodes, ","))
}

// HasOperationCode reports whether any operation failed with the given code
func (e *SubmissionError) HasOperationCode(code string) bool {
	for _, c := range e.OperationCodes {
		if c == code {
			return true
		}
	}
	return false
}

// IsNoTrustline reports whether err is a submission rejected because the
// destination does not trust the asset
func IsNoTrustline(err error) bool {
	var subErr *SubmissionError
	if errors.As(err, &subErr) {
		return subErr.HasOperationCode(OpNoTrust)
	}
	return false
}
