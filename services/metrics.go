package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts economy events. A nil *Metrics is a valid no-op.
type Metrics struct {
	spins          *prometheus.CounterVec
	spinConflicts  prometheus.Counter
	spinFailures   *prometheus.CounterVec
	reviews        *prometheus.CounterVec
	pointsCredited prometheus.Counter
	pointsSpent    prometheus.Counter
	accounts       prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsRegistry *Metrics
)

// EconomyMetrics returns the process-wide metrics, registering them on first use.
func EconomyMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsRegistry = &Metrics{
			spins: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "qube_gacha_spins_total",
				Help: "Committed gacha spins by drawn tier.",
			}, []string{"tier"}),
			spinConflicts: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "qube_gacha_spin_conflicts_total",
				Help: "Spin attempts retried after losing an account version race.",
			}),
			spinFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "qube_gacha_spin_failures_total",
				Help: "Spins that did not happen, by reason.",
			}, []string{"reason"}),
			reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "qube_submission_reviews_total",
				Help: "Submission reviews committed, by resulting status.",
			}, []string{"status"}),
			pointsCredited: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "qube_points_credited_total",
				Help: "Points credited by approved submissions.",
			}),
			pointsSpent: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "qube_points_spent_total",
				Help: "Points debited by committed spins.",
			}),
			accounts: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "qube_accounts_created_total",
				Help: "User accounts created on first sight of a wallet.",
			}),
		}
		prometheus.MustRegister(
			metricsRegistry.spins,
			metricsRegistry.spinConflicts,
			metricsRegistry.spinFailures,
			metricsRegistry.reviews,
			metricsRegistry.pointsCredited,
			metricsRegistry.pointsSpent,
			metricsRegistry.accounts,
		)
	})
	return metricsRegistry
}

func (m *Metrics) ObserveSpin(tier string, cost int64) {
	if m == nil {
		return
	}
	m.spins.WithLabelValues(tier).Inc()
	m.pointsSpent.Add(float64(cost))
}

func (m *Metrics) ObserveSpinConflict() {
	if m == nil {
		return
	}
	m.spinConflicts.Inc()
}

func (m *Metrics) ObserveSpinFailure(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.spinFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveReview(status string, credited int64) {
	if m == nil {
		return
	}
	m.reviews.WithLabelValues(status).Inc()
	if credited > 0 {
		m.pointsCredited.Add(float64(credited))
	}
}

func (m *Metrics) ObserveAccountCreated() {
	if m == nil {
		return
	}
	m.accounts.Inc()
}
