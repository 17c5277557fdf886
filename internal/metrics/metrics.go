package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы геокодирования.
const (
	OutcomeResolved    = "resolved"
	OutcomeNone        = "none"
	OutcomeError       = "error"
	OutcomeCached      = "cached"
	OutcomeRateLimited = "rate_limited"
)

// Metrics держит собственный registry, чтобы тесты не конфликтовали с глобальным.
// Методы безопасны на nil-получателе.
type Metrics struct {
	registry *prometheus.Registry

	geocodeOutcomes    *prometheus.CounterVec
	derivationDuration prometheus.Histogram
	transitions        *prometheus.CounterVec
	activeSessions     prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		geocodeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freshtrack",
			Name:      "geocode_lookups_total",
			Help:      "Reverse geocoding lookups by outcome.",
		}, []string{"outcome"}),
		derivationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "freshtrack",
			Name:      "route_derivation_seconds",
			Help:      "Time spent deriving districts for one polyline.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freshtrack",
			Name:      "work_transitions_total",
			Help:      "Work status transitions by target status and result.",
		}, []string{"to", "result"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "freshtrack",
			Name:      "telemetry_sessions_active",
			Help:      "Deliveries currently tracked for telemetry and elapsed time.",
		}),
	}
	reg.MustRegister(
		m.geocodeOutcomes,
		m.derivationDuration,
		m.transitions,
		m.activeSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) GeocodeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.geocodeOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveDerivation(d time.Duration) {
	if m == nil {
		return
	}
	m.derivationDuration.Observe(d.Seconds())
}

func (m *Metrics) Transition(to, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to, result).Inc()
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
