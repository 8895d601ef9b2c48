package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records outcomes of the cart-to-purchase transaction.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	success  prometheus.Counter
	failure  *prometheus.CounterVec
	lines    prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	success := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_success_total",
		Help: "Successfully committed checkouts.",
	})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failure_total",
		Help: "Failed checkouts, by reason.",
	}, []string{"reason"})
	lines := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_lines",
		Help:    "Number of cart lines converted per checkout.",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})
	reg.MustRegister(duration, success, failure, lines)
	return &CheckoutMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		lines:    lines,
	}
}

// ObserveSuccess records a committed checkout.
func (c *CheckoutMetrics) ObserveSuccess(lineCount int, elapsed time.Duration) {
	if c == nil || c.success == nil {
		return
	}
	c.success.Inc()
	c.lines.Observe(float64(lineCount))
	c.duration.WithLabelValues("success").Observe(elapsed.Seconds())
}

// ObserveFailure records a rolled-back checkout.
func (c *CheckoutMetrics) ObserveFailure(reason string, elapsed time.Duration) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(reason)).Inc()
	c.duration.WithLabelValues("failure").Observe(elapsed.Seconds())
}
