package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sync outcome labels.
const (
	SyncResultSuccess = "success"
	SyncResultFailure = "failure"
	SyncResultStale   = "stale"
)

// CartSyncMetrics tracks the background cart snapshot writer.
type CartSyncMetrics struct {
	writes   *prometheus.CounterVec
	retries  prometheus.Counter
	pending  prometheus.Gauge
	duration prometheus.Histogram
}

// NewCartSyncMetrics registers the cart sync metrics on the provided registerer.
func NewCartSyncMetrics(reg prometheus.Registerer) *CartSyncMetrics {
	if reg == nil {
		return &CartSyncMetrics{}
	}
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cart_sync",
		Name:      "writes_total",
		Help:      "Cart snapshot writes by result.",
	}, []string{"result"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cart_sync",
		Name:      "retries_total",
		Help:      "Retried cart snapshot writes.",
	})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cart_sync",
		Name:      "pending",
		Help:      "Cart snapshots waiting to be written.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "cart_sync",
		Name:      "write_duration_seconds",
		Help:      "Duration of cart snapshot writes including retries.",
		Buckets:   prometheus.DefBuckets,
	})
	reg.MustRegister(writes, retries, pending, duration)
	return &CartSyncMetrics{
		writes:   writes,
		retries:  retries,
		pending:  pending,
		duration: duration,
	}
}

// IncWrite counts a finished write with the given result label.
func (c *CartSyncMetrics) IncWrite(result string) {
	if c == nil || c.writes == nil {
		return
	}
	c.writes.WithLabelValues(normalizeLabel(result)).Inc()
}

func (c *CartSyncMetrics) IncRetry() {
	if c == nil || c.retries == nil {
		return
	}
	c.retries.Inc()
}

func (c *CartSyncMetrics) SetPending(n int) {
	if c == nil || c.pending == nil {
		return
	}
	c.pending.Set(float64(n))
}

func (c *CartSyncMetrics) ObserveDuration(d time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.Observe(d.Seconds())
}
