package payments

import "github.com/lubrihub/storefront-backend/pkg/enums"

var allowedTransitions = map[enums.TransactionStatus][]enums.TransactionStatus{
	enums.TransactionStatusPending: {
		enums.TransactionStatusProcessing,
		enums.TransactionStatusCompleted,
		enums.TransactionStatusFailed,
		enums.TransactionStatusCancelled,
	},
	enums.TransactionStatusProcessing: {
		enums.TransactionStatusCompleted,
		enums.TransactionStatusFailed,
		enums.TransactionStatusCancelled,
	},
	enums.TransactionStatusCompleted: {
		enums.TransactionStatusRefunded,
		enums.TransactionStatusPartiallyRefunded,
	},
	enums.TransactionStatusPartiallyRefunded: {
		enums.TransactionStatusRefunded,
	},
}

// CanTransition reports whether a transaction may move from one status to
// another. Staying in the same status is never a transition.
func CanTransition(from, to enums.TransactionStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
