package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GridMetrics counts grid renders and degraded snapshot loads. A nil *GridMetrics is a no-op.
type GridMetrics struct {
	builds         *prometheus.CounterVec
	cells          *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	buildSeconds   prometheus.Histogram
	eventsConsumed *prometheus.CounterVec
}

func NewGridMetrics(reg prometheus.Registerer) *GridMetrics {
	m := &GridMetrics{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicgrid",
			Subsystem: "schedule",
			Name:      "grid_builds_total",
			Help:      "Weekly grids rendered, by whether working hours were configured",
		}, []string{"configured"}),
		cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicgrid",
			Subsystem: "schedule",
			Name:      "grid_cells_total",
			Help:      "Rendered grid cells by state",
		}, []string{"state"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicgrid",
			Subsystem: "schedule",
			Name:      "source_failures_total",
			Help:      "Failed availability or booking fetches that degraded a grid",
		}, []string{"source"}),
		buildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinicgrid",
			Subsystem: "schedule",
			Name:      "grid_build_seconds",
			Help:      "Time to load a snapshot and render a grid",
			Buckets:   prometheus.DefBuckets,
		}),
		eventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicgrid",
			Subsystem: "schedule",
			Name:      "events_consumed_total",
			Help:      "Booking events consumed, by event type and result",
		}, []string{"event_type", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.builds, m.cells, m.sourceFailures, m.buildSeconds, m.eventsConsumed)
	return m
}

func (m *GridMetrics) ObserveGrid(configured bool, counts map[string]int, took time.Duration) {
	if m == nil {
		return
	}
	label := "false"
	if configured {
		label = "true"
	}
	m.builds.WithLabelValues(label).Inc()
	for state, n := range counts {
		m.cells.WithLabelValues(state).Add(float64(n))
	}
	m.buildSeconds.Observe(took.Seconds())
}

func (m *GridMetrics) SourceFailed(source string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source).Inc()
}

func (m *GridMetrics) EventConsumed(eventType, result string) {
	if m == nil {
		return
	}
	m.eventsConsumed.WithLabelValues(eventType, result).Inc()
}
