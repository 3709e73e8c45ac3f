package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Context metrics
	ContextsLive   prometheus.Gauge
	ContextsOpened *prometheus.CounterVec
	ContextsClosed *prometheus.CounterVec

	// Navigation metrics
	Navigations        *prometheus.CounterVec
	NavigationDuration prometheus.Histogram

	// History metrics
	HistoryRecords *prometheus.CounterVec

	// Engine metrics
	EngineCalls *prometheus.CounterVec
}

// New creates the collectors on a dedicated registry so several instances
// can coexist (tests build one per server).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ContextsLive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabgate_contexts_live",
				Help: "Number of live browser contexts in the registry",
			},
		),
		ContextsOpened: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabgate_contexts_opened_total",
				Help: "Context open attempts by outcome",
			},
			[]string{"outcome"},
		),
		ContextsClosed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabgate_contexts_closed_total",
				Help: "Contexts removed from the registry by reason",
			},
			[]string{"reason"},
		),

		Navigations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabgate_navigations_total",
				Help: "Navigations by outcome",
			},
			[]string{"outcome"},
		),
		NavigationDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tabgate_navigation_duration_seconds",
				Help:    "Engine navigation duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),

		HistoryRecords: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabgate_history_records_total",
				Help: "History insert attempts by outcome",
			},
			[]string{"outcome"},
		),

		EngineCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabgate_engine_calls_total",
				Help: "Outbound engine calls by operation and status",
			},
			[]string{"op", "status"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetLiveContexts(n int) {
	if m == nil {
		return
	}
	m.ContextsLive.Set(float64(n))
}

func (m *Metrics) ContextOpened(outcome string) {
	if m == nil {
		return
	}
	m.ContextsOpened.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ContextClosed(reason string) {
	if m == nil {
		return
	}
	m.ContextsClosed.WithLabelValues(reason).Inc()
}

func (m *Metrics) Navigation(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Navigations.WithLabelValues(outcome).Inc()
	if seconds > 0 {
		m.NavigationDuration.Observe(seconds)
	}
}

func (m *Metrics) HistoryRecord(outcome string) {
	if m == nil {
		return
	}
	m.HistoryRecords.WithLabelValues(outcome).Inc()
}

func (m *Metrics) EngineCall(op, status string) {
	if m == nil {
		return
	}
	m.EngineCalls.WithLabelValues(op, status).Inc()
}
