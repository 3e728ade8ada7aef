// Package metrics exposes Prometheus counters for the points engine.
// All methods are nil-safe so the engine can run without a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	pointsAwarded    *prometheus.CounterVec
	pointsDebited    *prometheus.CounterVec
	capRejections    *prometheus.CounterVec
	badgeGrants      prometheus.Counter
	deliveryFailures prometheus.Counter
}

// New registers the engine's collectors on reg and returns the recorder.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pointsAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "points",
			Name:      "awarded_total",
			Help:      "Credit points committed to the ledger.",
		}, []string{"role", "action"}),
		pointsDebited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "points",
			Name:      "debited_total",
			Help:      "Debit points committed to the ledger.",
		}, []string{"role", "source"}),
		capRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "points",
			Name:      "cap_rejections_total",
			Help:      "Awards rejected by the daily cap.",
		}, []string{"role"}),
		badgeGrants: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "points",
			Name:      "badge_grants_total",
			Help:      "Badge grant rows inserted.",
		}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "points",
			Name:      "credit_delivery_failures_total",
			Help:      "Wallet credit deliveries that failed after commit.",
		}),
	}
	reg.MustRegister(m.pointsAwarded, m.pointsDebited, m.capRejections, m.badgeGrants, m.deliveryFailures)
	return m
}

func (m *Metrics) Awarded(role, action string, points int64) {
	if m == nil {
		return
	}
	m.pointsAwarded.WithLabelValues(role, action).Add(float64(points))
}

func (m *Metrics) Debited(role, source string, points int64) {
	if m == nil {
		return
	}
	m.pointsDebited.WithLabelValues(role, source).Add(float64(points))
}

func (m *Metrics) CapRejected(role string) {
	if m == nil {
		return
	}
	m.capRejections.WithLabelValues(role).Inc()
}

func (m *Metrics) BadgeGranted() {
	if m == nil {
		return
	}
	m.badgeGrants.Inc()
}

func (m *Metrics) DeliveryFailed() {
	if m == nil {
		return
	}
	m.deliveryFailures.Inc()
}
