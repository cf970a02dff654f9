package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bookstore-backend/pkg/enums"
)

// CommerceMetrics counts checkout outcomes and coupon ledger writes.
type CommerceMetrics struct {
	checkouts   *prometheus.CounterVec
	redemptions *prometheus.CounterVec
}

// NewCommerceMetrics registers the checkout and redemption counters.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by payment method and outcome.",
	}, []string{"payment_method", "outcome"})
	redemptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coupon_redemptions_total",
		Help:      "Coupon ledger writes by source; duplicate marks replays that inserted nothing.",
	}, []string{"source", "result"})
	reg.MustRegister(checkouts, redemptions)
	return &CommerceMetrics{checkouts: checkouts, redemptions: redemptions}
}

// ObserveCheckout records a checkout attempt.
func (m *CommerceMetrics) ObserveCheckout(method enums.PaymentMethod, outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(string(method)), normalizeLabel(outcome)).Inc()
}

// ObserveRedemption records a ledger write.
func (m *CommerceMetrics) ObserveRedemption(source enums.RedemptionSource, inserted bool) {
	if m == nil || m.redemptions == nil {
		return
	}
	result := "inserted"
	if !inserted {
		result = "duplicate"
	}
	m.redemptions.WithLabelValues(normalizeLabel(string(source)), result).Inc()
}
