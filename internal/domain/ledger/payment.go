package ledger

import "time"

// IncomingPayment is a ledger transaction observed on the anchor's receiving account
type IncomingPayment struct {
	ID            string    `json:"id"`
	Hash          string    `json:"hash"`
	Successful    bool      `json:"successful"`
	SourceAccount string    `json:"source_account"`
	MemoType      string    `json:"memo_type"`
	Memo          string    `json:"memo"`
	EnvelopeXDR   string    `json:"envelope_xdr"`
	ResultXDR     string    `json:"result_xdr,omitempty"`
	PagingToken   string    `json:"paging_token,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
