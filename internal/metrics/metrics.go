// Package metrics exposes check-cycle counters and gauges.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus instruments for the watcher. Each
// instance owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	checksTotal       *prometheus.CounterVec
	slotsFound        prometheus.Gauge
	newSlotsTotal     prometheus.Counter
	removedSlotsTotal prometheus.Counter
	lastSuccessTS     prometheus.Gauge
}

// New registers and returns the watcher's metrics.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.checksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slotwatch_checks_total",
		Help: "Check cycles run, by outcome.",
	}, []string{"outcome"})
	m.slotsFound = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slotwatch_slots_available",
		Help: "Slots found by the most recent successful check.",
	})
	m.newSlotsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slotwatch_new_slots_total",
		Help: "New slots detected across all checks.",
	})
	m.removedSlotsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slotwatch_removed_slots_total",
		Help: "Slots that disappeared across all checks.",
	})
	m.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slotwatch_last_success_timestamp_seconds",
		Help: "Unix time of the last successful check.",
	})

	m.registry.MustRegister(
		m.checksTotal,
		m.slotsFound,
		m.newSlotsTotal,
		m.removedSlotsTotal,
		m.lastSuccessTS,
	)
	return m
}

// CheckSucceeded records the outcome of one successful cycle.
func (m *Metrics) CheckSucceeded(slotsFound, newCount, removedCount int, unixNow float64) {
	m.checksTotal.WithLabelValues("success").Inc()
	m.slotsFound.Set(float64(slotsFound))
	m.newSlotsTotal.Add(float64(newCount))
	m.removedSlotsTotal.Add(float64(removedCount))
	m.lastSuccessTS.Set(unixNow)
}

// CheckFailed records a cycle that obtained no data.
func (m *Metrics) CheckFailed() {
	m.checksTotal.WithLabelValues("failure").Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
