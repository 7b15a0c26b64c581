package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCartSyncMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartSyncMetrics(reg)
	m.IncWrite(SyncResultSuccess)
	m.IncWrite(SyncResultStale)
	m.IncWrite(SyncResultStale)
	m.IncRetry()
	m.SetPending(3)
	m.ObserveDuration(10 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "lubrihub_cart_sync_writes_total", "result", SyncResultStale); err != nil {
		t.Fatalf("fetch stale writes: %v", err)
	} else if got != 2 {
		t.Fatalf("expected stale=2, got %f", got)
	}
	pending := findMetricFamily(mfs, "lubrihub_cart_sync_pending")
	if pending == nil || pending.GetMetric()[0].GetGauge().GetValue() != 3 {
		t.Fatalf("expected pending gauge 3")
	}
}

func TestPaymentMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)
	m.IncInitiated("mpesa", "pending")
	m.IncWebhook("payment.completed", "applied")
	m.IncTransition("pending", "completed")
	m.IncGatewayError("card", "initiate")
	m.IncRefund("rejected")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "lubrihub_payments_initiated_total", "provider", "mpesa"); err != nil {
		t.Fatalf("fetch initiated: %v", err)
	} else if got != 1 {
		t.Fatalf("expected initiated=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "lubrihub_payments_status_transitions_total", "to", "completed"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected transition=1, got %f", got)
	}
}
