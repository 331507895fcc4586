package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records payment lifecycle activity.
type PaymentMetrics struct {
	callbacksProcessed *prometheus.CounterVec
	callbacksRejected  *prometheus.CounterVec
	callbacksDuplicate prometheus.Counter
	gatewayFailures    *prometheus.CounterVec
	gatewayDuration    *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_processed_total",
		Help: "Gateway callbacks applied to a payment, by resulting status.",
	}, []string{"status"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_rejected_total",
		Help: "Gateway callbacks rejected before processing, by reason.",
	}, []string{"reason"})
	duplicate := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_callbacks_duplicate_total",
		Help: "Gateway callbacks that repeated an already-applied status.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_gateway_failures_total",
		Help: "Failed calls to the payment gateway, by operation.",
	}, []string{"operation"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_duration_seconds",
		Help:    "Duration of payment gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(processed, rejected, duplicate, failures, duration)
	return &PaymentMetrics{
		callbacksProcessed: processed,
		callbacksRejected:  rejected,
		callbacksDuplicate: duplicate,
		gatewayFailures:    failures,
		gatewayDuration:    duration,
	}
}

// IncCallbackProcessed increments the processed counter for the applied status.
func (p *PaymentMetrics) IncCallbackProcessed(status string) {
	if p == nil || p.callbacksProcessed == nil {
		return
	}
	p.callbacksProcessed.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncCallbackRejected increments the rejected counter for the given reason.
func (p *PaymentMetrics) IncCallbackRejected(reason string) {
	if p == nil || p.callbacksRejected == nil {
		return
	}
	p.callbacksRejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncCallbackDuplicate increments the duplicate callback counter.
func (p *PaymentMetrics) IncCallbackDuplicate() {
	if p == nil || p.callbacksDuplicate == nil {
		return
	}
	p.callbacksDuplicate.Inc()
}

// IncGatewayFailure increments the gateway failure counter for the operation.
func (p *PaymentMetrics) IncGatewayFailure(operation string) {
	if p == nil || p.gatewayFailures == nil {
		return
	}
	p.gatewayFailures.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObserveGatewayDuration records the duration of a gateway call.
func (p *PaymentMetrics) ObserveGatewayDuration(operation string, duration time.Duration) {
	if p == nil || p.gatewayDuration == nil {
		return
	}
	p.gatewayDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
