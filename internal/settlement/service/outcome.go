package service

// Outcome is the result of one SettleDeposit call
type Outcome string

const (
	// OutcomeSkipped means the deposit was not in a settleable status
	OutcomeSkipped Outcome = "skipped"
	// OutcomeAccountCreated means the destination was funded and the deposit now awaits a trustline
	OutcomeAccountCreated Outcome = "account_created"
	// OutcomeCompleted means the payment landed and the deposit is completed
	OutcomeCompleted Outcome = "completed"
	// OutcomeAwaitingTrustline means the destination does not trust the asset yet
	OutcomeAwaitingTrustline Outcome = "awaiting_trustline"
	// OutcomeFailed means the ledger rejected the attempt or its result could not be stored
	OutcomeFailed Outcome = "failed"
	// OutcomeUnconfirmed means a submission may have been applied; the deposit is held
	// in pending_stellar and never resubmitted automatically
	OutcomeUnconfirmed Outcome = "unconfirmed"
)

// MatchResult is the result of applying an incoming payment to a withdrawal
type MatchResult string

const (
	MatchCompleted      MatchResult = "completed"
	MatchPendingStellar MatchResult = "pending_stellar"
	MatchAlreadySettled MatchResult = "already_settled"
	MatchMemoMismatch   MatchResult = "memo_mismatch"
)
