package enums

import "fmt"

// StatusSource records what moved a transaction into its current status.
type StatusSource string

const (
	StatusSourceInitiate StatusSource = "initiate"
	StatusSourceWebhook  StatusSource = "webhook"
	StatusSourcePoll     StatusSource = "poll"
	StatusSourceRefund   StatusSource = "refund"
)

var validStatusSources = []StatusSource{
	StatusSourceInitiate,
	StatusSourceWebhook,
	StatusSourcePoll,
	StatusSourceRefund,
}

// String implements fmt.Stringer.
func (s StatusSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StatusSource.
func (s StatusSource) IsValid() bool {
	for _, candidate := range validStatusSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStatusSource converts raw input into a StatusSource.
func ParseStatusSource(value string) (StatusSource, error) {
	for _, candidate := range validStatusSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid status source %q", value)
}
