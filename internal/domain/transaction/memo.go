package transaction

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

// MemoType is the ledger memo kind used to correlate withdrawals
type MemoType string

const (
	MemoTypeText MemoType = "text"
	MemoTypeID   MemoType = "id"
	MemoTypeHash MemoType = "hash"
)

// ErrInvalidMemo indicates a memo that cannot be read as its declared type
var ErrInvalidMemo = errors.New("invalid memo")

// Valid reports whether t is one of the supported memo types
func (t MemoType) Valid() bool {
	switch t {
	case MemoTypeText, MemoTypeID, MemoTypeHash:
		return true
	}
	return false
}

// NormalizeMemo converts a memo into its canonical stored form.
// Hash memos are accepted as hex or base64 and stored as lowercase hex.
func NormalizeMemo(memoType MemoType, memo string) (string, error) {
	switch memoType {
	case MemoTypeText:
		if memo == "" || len(memo) > 28 {
			return "", ErrInvalidMemo
		}
		return memo, nil
	case MemoTypeID:
		id, err := strconv.ParseUint(strings.TrimSpace(memo), 10, 64)
		if err != nil {
			return "", ErrInvalidMemo
		}
		return strconv.FormatUint(id, 10), nil
	case MemoTypeHash:
		return normalizeHash(strings.TrimSpace(memo))
	default:
		return "", ErrInvalidMemo
	}
}

func normalizeHash(memo string) (string, error) {
	if len(memo) == hex.EncodedLen(32) {
		if raw, err := hex.DecodeString(memo); err == nil {
			return hex.EncodeToString(raw), nil
		}
	}
	raw, err := base64.StdEncoding.DecodeString(memo)
	if err != nil || len(raw) != 32 {
		return "", ErrInvalidMemo
	}
	return hex.EncodeToString(raw), nil
}

// EncodeMemo renders a stored memo the way the ledger reports it.
// Hash memos are returned base64-encoded.
func EncodeMemo(memoType MemoType, memo string) (string, error) {
	if memoType != MemoTypeHash {
		return NormalizeMemo(memoType, memo)
	}
	raw, err := hex.DecodeString(memo)
	if err != nil || len(raw) != 32 {
		return "", ErrInvalidMemo
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
