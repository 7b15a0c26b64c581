package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics counts gateway traffic and transaction state changes.
type PaymentMetrics struct {
	initiated     *prometheus.CounterVec
	gatewayErrors *prometheus.CounterVec
	webhooks      *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	refunds       *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	initiated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "initiated_total",
		Help:      "Payments initiated by provider and initial status.",
	}, []string{"provider", "status"})
	gatewayErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "gateway_errors_total",
		Help:      "Failed gateway calls by provider and operation.",
	}, []string{"provider", "operation"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "webhooks_total",
		Help:      "Webhook deliveries by event and result.",
	}, []string{"event", "result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "status_transitions_total",
		Help:      "Applied transaction status transitions.",
	}, []string{"from", "to"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "refunds_total",
		Help:      "Refund requests by result.",
	}, []string{"result"})
	reg.MustRegister(initiated, gatewayErrors, webhooks, transitions, refunds)
	return &PaymentMetrics{
		initiated:     initiated,
		gatewayErrors: gatewayErrors,
		webhooks:      webhooks,
		transitions:   transitions,
		refunds:       refunds,
	}
}

func (p *PaymentMetrics) IncInitiated(provider, status string) {
	if p == nil || p.initiated == nil {
		return
	}
	p.initiated.WithLabelValues(normalizeLabel(provider), normalizeLabel(status)).Inc()
}

func (p *PaymentMetrics) IncGatewayError(provider, operation string) {
	if p == nil || p.gatewayErrors == nil {
		return
	}
	p.gatewayErrors.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Inc()
}

func (p *PaymentMetrics) IncWebhook(event, result string) {
	if p == nil || p.webhooks == nil {
		return
	}
	p.webhooks.WithLabelValues(normalizeLabel(event), normalizeLabel(result)).Inc()
}

func (p *PaymentMetrics) IncTransition(from, to string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (p *PaymentMetrics) IncRefund(result string) {
	if p == nil || p.refunds == nil {
		return
	}
	p.refunds.WithLabelValues(normalizeLabel(result)).Inc()
}
