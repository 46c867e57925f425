package handler

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID                    string `json:"id"`
	Kind                  string `json:"kind"`
	Status                string `json:"status"`
	StatusETA             int    `json:"status_eta"`
	AssetCode             string `json:"asset_code"`
	AssetIssuer           string `json:"asset_issuer,omitempty"`
	AmountIn              string `json:"amount_in"`
	AmountFee             string `json:"amount_fee"`
	AmountOut             string `json:"amount_out,omitempty"`
	StellarAccount        string `json:"stellar_account,omitempty"`
	WithdrawAnchorAccount string `json:"withdraw_anchor_account,omitempty"`
	WithdrawMemo          string `json:"withdraw_memo,omitempty"`
	WithdrawMemoType      string `json:"withdraw_memo_type,omitempty"`
	StellarTransactionID  string `json:"stellar_transaction_id,omitempty"`
	ExternalTransactionID string `json:"external_transaction_id,omitempty"`
	FailedAttempts        int    `json:"failed_attempts"`
	LastError             string `json:"last_error,omitempty"`
	StartedAt             string `json:"started_at"`
	UpdatedAt             string `json:"updated_at"`
	CompletedAt           string `json:"completed_at,omitempty"`
}

// SettlementAcceptedResponse is returned when a settlement request was queued
type SettlementAcceptedResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id"`
}

// AttemptResponse represents one settlement journal entry
type AttemptResponse struct {
	Operation       string   `json:"operation"`
	Outcome         string   `json:"outcome"`
	StatusBefore    string   `json:"status_before"`
	StatusAfter     string   `json:"status_after"`
	LedgerTxID      string   `json:"ledger_tx_id,omitempty"`
	TransactionCode string   `json:"transaction_code,omitempty"`
	OperationCodes  []string `json:"operation_codes,omitempty"`
	Error           string   `json:"error,omitempty"`
	CorrelationID   string   `json:"correlation_id,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

// AccountResponse represents a ledger account and its balance lines
type AccountResponse struct {
	Address  string            `json:"address"`
	Balances []BalanceResponse `json:"balances"`
}

// BalanceResponse represents one balance line of a ledger account
type BalanceResponse struct {
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code,omitempty"`
	AssetIssuer string `json:"asset_issuer,omitempty"`
	Amount      string `json:"amount"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
