// Package metrics collects Prometheus counters/histograms for the
// orchestrator tick loop, adapted from infrastructure/metrics/metrics.go's
// Metrics struct/NewWithRegistry/Record* shape (SPEC_FULL §2.1). The
// registry is internal instrumentation only — it is never wired to an
// HTTP /metrics route, since the admin HTTP surface this repo carries is
// deliberately thin (SPEC_FULL §4.8).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the orchestrator tick loop records.
type Metrics struct {
	TickDuration         *prometheus.HistogramVec
	TicksTotal           *prometheus.CounterVec
	RoutesSkippedTotal   *prometheus.CounterVec
	OperationsOpenedTotal *prometheus.CounterVec
	CallbackOutcomesTotal *prometheus.CounterVec
	SweeperExpiredTotal  *prometheus.CounterVec
}

// New creates a Metrics instance registered against prometheus's default
// registerer.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against registerer,
// or left unregistered when registerer is nil (used by tests that build
// collectors without a shared global registry).
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		TickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rebalancer_tick_duration_seconds",
				Help:    "Duration of one orchestrator tick.",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"service"},
		),
		TicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebalancer_ticks_total",
				Help: "Total number of orchestrator ticks run, by outcome.",
			},
			[]string{"service", "outcome"},
		),
		RoutesSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebalancer_routes_skipped_total",
				Help: "Total number of route evaluations that skipped, by reason.",
			},
			[]string{"service", "reason"},
		),
		OperationsOpenedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebalancer_operations_opened_total",
				Help: "Total number of rebalance operations opened, by bridge.",
			},
			[]string{"service", "bridge"},
		),
		CallbackOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebalancer_callback_outcomes_total",
				Help: "Total number of callback engine advancements, by outcome.",
			},
			[]string{"service", "outcome"},
		),
		SweeperExpiredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebalancer_sweeper_expired_total",
				Help: "Total number of earmarks/operations expired by the sweeper, by kind.",
			},
			[]string{"service", "kind"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.TickDuration,
			m.TicksTotal,
			m.RoutesSkippedTotal,
			m.OperationsOpenedTotal,
			m.CallbackOutcomesTotal,
			m.SweeperExpiredTotal,
		)
	}

	return m
}

// RecordTick records one orchestrator tick's outcome and duration.
func (m *Metrics) RecordTick(service, outcome string, duration time.Duration) {
	m.TicksTotal.WithLabelValues(service, outcome).Inc()
	m.TickDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordRouteSkipped records one route evaluation skip.
func (m *Metrics) RecordRouteSkipped(service, reason string) {
	m.RoutesSkippedTotal.WithLabelValues(service, reason).Inc()
}

// RecordOperationOpened records one opened rebalance operation.
func (m *Metrics) RecordOperationOpened(service, bridge string) {
	m.OperationsOpenedTotal.WithLabelValues(service, bridge).Inc()
}

// RecordCallbackOutcome records one callback engine advancement outcome
// ("completed", "failed" or "error").
func (m *Metrics) RecordCallbackOutcome(service, outcome string) {
	m.CallbackOutcomesTotal.WithLabelValues(service, outcome).Inc()
}

// RecordSweeperExpired records count expirations of kind ("earmark" or
// "operation").
func (m *Metrics) RecordSweeperExpired(service, kind string, count int) {
	if count <= 0 {
		return
	}
	m.SweeperExpiredTotal.WithLabelValues(service, kind).Add(float64(count))
}
