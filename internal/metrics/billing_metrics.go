package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BillingMetrics records billing and webhook activity
type BillingMetrics interface {
	IncPayment(status, currency string)
	IncDonation(status, currency string)
	IncWebhookEvent(eventType, outcome string)
	ObserveSettledAmount(amountCents int64, currency string)
}

type billingMetrics struct {
	payments      *prometheus.CounterVec
	donations     *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	settledAmount *prometheus.HistogramVec
}

// NewBillingMetrics registers the billing collectors on the given registry
func NewBillingMetrics(registry *prometheus.Registry) BillingMetrics {
	return &billingMetrics{
		payments: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_total",
				Help: "Settlement attempts by status",
			},
			[]string{"status", "currency"},
		),
		donations: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "donations_total",
				Help: "One-time donations by status",
			},
			[]string{"status", "currency"},
		),
		webhookEvents: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_events_total",
				Help: "Stripe webhook events by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		settledAmount: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "settled_amount_cents",
				Help:    "Distribution of settled amounts",
				Buckets: prometheus.ExponentialBuckets(100, 10, 5),
			},
			[]string{"currency"},
		),
	}
}

// IncPayment counts a settlement attempt
func (m *billingMetrics) IncPayment(status, currency string) {
	m.payments.WithLabelValues(status, currency).Inc()
}

// IncDonation counts a donation outcome
func (m *billingMetrics) IncDonation(status, currency string) {
	m.donations.WithLabelValues(status, currency).Inc()
}

// IncWebhookEvent counts a processed webhook event
func (m *billingMetrics) IncWebhookEvent(eventType, outcome string) {
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// ObserveSettledAmount records a settled amount
func (m *billingMetrics) ObserveSettledAmount(amountCents int64, currency string) {
	m.settledAmount.WithLabelValues(currency).Observe(float64(amountCents))
}

// NoopMetrics is used in tests
type NoopMetrics struct{}

// IncPayment does nothing
func (NoopMetrics) IncPayment(string, string) {}

// IncDonation does nothing
func (NoopMetrics) IncDonation(string, string) {}

// IncWebhookEvent does nothing
func (NoopMetrics) IncWebhookEvent(string, string) {}

// ObserveSettledAmount does nothing
func (NoopMetrics) ObserveSettledAmount(int64, string) {}
