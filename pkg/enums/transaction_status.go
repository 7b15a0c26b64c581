package enums

import "fmt"

// TransactionStatus tracks the lifecycle of a payment transaction.
type TransactionStatus string

const (
	TransactionStatusPending           TransactionStatus = "pending"
	TransactionStatusProcessing        TransactionStatus = "processing"
	TransactionStatusCompleted         TransactionStatus = "completed"
	TransactionStatusFailed            TransactionStatus = "failed"
	TransactionStatusCancelled         TransactionStatus = "cancelled"
	TransactionStatusRefunded          TransactionStatus = "refunded"
	TransactionStatusPartiallyRefunded TransactionStatus = "partially_refunded"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPending,
	TransactionStatusProcessing,
	TransactionStatusCompleted,
	TransactionStatusFailed,
	TransactionStatusCancelled,
	TransactionStatusRefunded,
	TransactionStatusPartiallyRefunded,
}

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}

// IsTerminal reports whether no further gateway-driven change is expected
// before a refund.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusCompleted,
		TransactionStatusFailed,
		TransactionStatusCancelled,
		TransactionStatusRefunded,
		TransactionStatusPartiallyRefunded:
		return true
	default:
		return false
	}
}

// IsRefundable reports whether money can still be returned on the transaction.
func (s TransactionStatus) IsRefundable() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusPartiallyRefunded
}
