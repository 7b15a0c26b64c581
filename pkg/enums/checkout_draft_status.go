package enums

import "fmt"

// CheckoutDraftStatus tracks whether a checkout draft is still in progress.
type CheckoutDraftStatus string

const (
	CheckoutDraftStatusOpen            CheckoutDraftStatus = "open"
	CheckoutDraftStatusAwaitingPayment CheckoutDraftStatus = "awaiting_payment"
	CheckoutDraftStatusCompleted       CheckoutDraftStatus = "completed"
	CheckoutDraftStatusAbandoned       CheckoutDraftStatus = "abandoned"
)

var validCheckoutDraftStatuses = []CheckoutDraftStatus{
	CheckoutDraftStatusOpen,
	CheckoutDraftStatusAwaitingPayment,
	CheckoutDraftStatusCompleted,
	CheckoutDraftStatusAbandoned,
}

// String implements fmt.Stringer.
func (s CheckoutDraftStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutDraftStatus.
func (s CheckoutDraftStatus) IsValid() bool {
	for _, candidate := range validCheckoutDraftStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCheckoutDraftStatus converts raw input into a CheckoutDraftStatus.
func ParseCheckoutDraftStatus(value string) (CheckoutDraftStatus, error) {
	for _, candidate := range validCheckoutDraftStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout draft status %q", value)
}
