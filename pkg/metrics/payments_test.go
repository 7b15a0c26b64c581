package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPaymentMetricsCountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPaymentMetrics(reg)
	metrics.IncInitiated("card", "pending")
	metrics.IncInitiated("card", "pending")
	metrics.IncGatewayError("", "initiate")
	metrics.IncWebhook("payment.completed", "applied")
	metrics.IncRefund("rejected")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "lubrihub_payments_initiated_total", "provider", "card"); err != nil {
		t.Fatalf("fetch initiated: %v", err)
	} else if got != 2 {
		t.Fatalf("expected initiated=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "lubrihub_payments_gateway_errors_total", "provider", "unknown"); err != nil {
		t.Fatalf("fetch gateway errors: %v", err)
	} else if got != 1 {
		t.Fatalf("expected gateway errors=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "lubrihub_payments_webhooks_total", "result", "applied"); err != nil {
		t.Fatalf("fetch webhooks: %v", err)
	} else if got != 1 {
		t.Fatalf("expected webhooks=1, got %f", got)
	}

	if findMetricFamily(mfs, "lubrihub_payments_status_transitions_total") != nil {
		t.Fatalf("transition counter should have no samples yet")
	}
}

func TestNilPaymentMetricsAreNoops(t *testing.T) {
	var metrics *PaymentMetrics
	metrics.IncInitiated("card", "pending")
	metrics.IncTransition("pending", "completed")

	unregistered := NewPaymentMetrics(nil)
	unregistered.IncRefund("accepted")
}
