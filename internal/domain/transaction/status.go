package transaction

// Status is the lifecycle state of a transaction as reported to clients
type Status string

const (
	StatusCompleted                Status = "completed"
	StatusPendingExternal          Status = "pending_external"
	StatusPendingAnchor            Status = "pending_anchor"
	StatusPendingStellar           Status = "pending_stellar"
	StatusPendingTrust             Status = "pending_trust"
	StatusPendingUser              Status = "pending_user"
	StatusPendingUserTransferStart Status = "pending_user_transfer_start"
	StatusIncomplete               Status = "incomplete"
	StatusNoMarket                 Status = "no_market"
	StatusTooSmall                 Status = "too_small"
	StatusTooLarge                 Status = "too_large"
	StatusError                    Status = "error"
)

var allStatuses = []Status{
	StatusCompleted,
	StatusPendingExternal,
	StatusPendingAnchor,
	StatusPendingStellar,
	StatusPendingTrust,
	StatusPendingUser,
	StatusPendingUserTransferStart,
	StatusIncomplete,
	StatusNoMarket,
	StatusTooSmall,
	StatusTooLarge,
	StatusError,
}

// Valid reports whether s is a known status value
func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no engine transition leaves s
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// transitions lists every status change the engine is allowed to write, per kind
var transitions = map[Kind]map[Status][]Status{
	KindDeposit: {
		StatusPendingAnchor:  {StatusPendingStellar},
		StatusPendingTrust:   {StatusPendingStellar},
		StatusPendingStellar: {StatusPendingTrust, StatusCompleted},
	},
	KindWithdrawal: {
		StatusPendingUserTransferStart: {StatusPendingStellar, StatusCompleted},
		StatusPendingStellar:           {StatusCompleted},
	},
}

// CanTransition reports whether the engine may move a transaction of the given kind from one status to another
func CanTransition(kind Kind, from, to Status) bool {
	for _, next := range transitions[kind][from] {
		if next == to {
			return true
		}
	}
	return false
}

// SettleableStatuses are the deposit statuses the settlement worker may claim
var SettleableStatuses = []Status{StatusPendingAnchor, StatusPendingTrust}

// MatchableStatuses are the withdrawal statuses an incoming payment may advance
var MatchableStatuses = []Status{StatusPendingUserTransferStart, StatusPendingStellar}
