package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the consent pipeline.
type Metrics struct {
	DecisionsTotal        *prometheus.CounterVec
	AuthorizationOutcomes *prometheus.CounterVec
	BufferedEvents        prometheus.Gauge
	EventsScrubbedTotal   prometheus.Counter
	EventsDeliveredTotal  *prometheus.CounterVec
	FlushFailuresTotal    prometheus.Counter
	BridgeFailuresTotal   *prometheus.CounterVec
	DivergenceRiskTotal   prometheus.Counter
	PersistenceFailures   prometheus.Counter
}

// New registers and returns the consent metrics collectors.
func New() *Metrics {
	return &Metrics{
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consentgate_decisions_total",
			Help: "Total consent decisions handled, labeled by decision",
		}, []string{"decision"}),
		AuthorizationOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consentgate_authorization_outcomes_total",
			Help: "Total tracking authorization evaluations, labeled by outcome",
		}, []string{"outcome"}),
		BufferedEvents: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "consentgate_buffered_events",
			Help: "Number of analytics events currently held in the consent buffer",
		}),
		EventsScrubbedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentgate_events_scrubbed_total",
			Help: "Total buffered events that had PII keys removed on enqueue",
		}),
		EventsDeliveredTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consentgate_events_delivered_total",
			Help: "Total analytics events delivered to the transport, labeled by path",
		}, []string{"path"}),
		FlushFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentgate_flush_failures_total",
			Help: "Total buffer flushes halted by a delivery failure",
		}),
		BridgeFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consentgate_bridge_failures_total",
			Help: "Total privacy bridge call failures, labeled by direction",
		}, []string{"direction"}),
		DivergenceRiskTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentgate_divergence_risk_total",
			Help: "Times the native layer stayed in privacy mode while full consent was recorded",
		}),
		PersistenceFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentgate_persistence_failures_total",
			Help: "Total consent flag reads or writes that failed",
		}),
	}
}

func (m *Metrics) IncrementDecisions(decision string) {
	m.DecisionsTotal.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncrementAuthorizationOutcome(outcome string) {
	m.AuthorizationOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetBufferedEvents(count float64) {
	m.BufferedEvents.Set(count)
}

func (m *Metrics) IncrementEventsScrubbed() {
	m.EventsScrubbedTotal.Inc()
}

func (m *Metrics) IncrementEventsDelivered(path string, count float64) {
	m.EventsDeliveredTotal.WithLabelValues(path).Add(count)
}

func (m *Metrics) IncrementFlushFailures() {
	m.FlushFailuresTotal.Inc()
}

func (m *Metrics) IncrementBridgeFailures(direction string) {
	m.BridgeFailuresTotal.WithLabelValues(direction).Inc()
}

func (m *Metrics) IncrementDivergenceRisk() {
	m.DivergenceRiskTotal.Inc()
}

func (m *Metrics) IncrementPersistenceFailures() {
	m.PersistenceFailures.Inc()
}
