package enums

import "fmt"

// PaymentWebhookEvent names the events the payment gateway posts to the webhook.
type PaymentWebhookEvent string

const (
	PaymentWebhookEventCompleted  PaymentWebhookEvent = "payment.completed"
	PaymentWebhookEventFailed     PaymentWebhookEvent = "payment.failed"
	PaymentWebhookEventCancelled  PaymentWebhookEvent = "payment.cancelled"
	PaymentWebhookEventProcessing PaymentWebhookEvent = "payment.processing"
	RefundWebhookEventCompleted   PaymentWebhookEvent = "refund.completed"
	RefundWebhookEventFailed      PaymentWebhookEvent = "refund.failed"
)

var validPaymentWebhookEvents = []PaymentWebhookEvent{
	PaymentWebhookEventCompleted,
	PaymentWebhookEventFailed,
	PaymentWebhookEventCancelled,
	PaymentWebhookEventProcessing,
	RefundWebhookEventCompleted,
	RefundWebhookEventFailed,
}

// String implements fmt.Stringer.
func (e PaymentWebhookEvent) String() string {
	return string(e)
}

// IsValid reports whether the value is a known PaymentWebhookEvent.
func (e PaymentWebhookEvent) IsValid() bool {
	for _, candidate := range validPaymentWebhookEvents {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParsePaymentWebhookEvent converts raw input into a PaymentWebhookEvent.
func ParsePaymentWebhookEvent(value string) (PaymentWebhookEvent, error) {
	for _, candidate := range validPaymentWebhookEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment webhook event %q", value)
}
