package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	GuardDecisions  *prometheus.CounterVec
	Logins          *prometheus.CounterVec
	Logouts         prometheus.Counter
	ScoresComputed  *prometheus.CounterVec
	SessionsActive  prometheus.Gauge
	EndpointLatency *prometheus.HistogramVec
	RateLimits      *prometheus.CounterVec
	CircuitOpen     *prometheus.GaugeVec
}

// New creates and registers all metrics on reg. Pass prometheus.NewRegistry()
// in tests so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GuardDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sgr_guard_decisions_total",
			Help: "Route guard outcomes per protected screen",
		}, []string{"outcome", "screen"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sgr_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		Logouts: f.NewCounter(prometheus.CounterOpts{
			Name: "sgr_logouts_total",
			Help: "Completed logouts",
		}),
		ScoresComputed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sgr_risk_scores_total",
			Help: "Risk scores computed, by resulting severity",
		}, []string{"severity"}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "sgr_session_contexts",
			Help: "Session contexts held in memory",
		}),
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sgr_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sgr_rate_limit_checks_total",
			Help: "Rate limit checks by scope and outcome",
		}, []string{"scope", "outcome"}),
		CircuitOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sgr_circuit_open",
			Help: "1 while the named circuit breaker is open",
		}, []string{"name"}),
	}
}

func (m *Metrics) ObserveGuardDecision(outcome, screen string) {
	m.GuardDecisions.WithLabelValues(outcome, screen).Inc()
}

func (m *Metrics) IncrementLogin(result string) {
	m.Logins.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementLogout() {
	m.Logouts.Inc()
}

// ObserveScore counts a computed score. Unscored inputs carry no severity
// and are not counted.
func (m *Metrics) ObserveScore(severity string) {
	if severity == "" {
		return
	}
	m.ScoresComputed.WithLabelValues(severity).Inc()
}

func (m *Metrics) SetSessionContexts(n int) {
	m.SessionsActive.Set(float64(n))
}

func (m *Metrics) ObserveEndpointLatency(method, route string, seconds float64) {
	m.EndpointLatency.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) ObserveRateLimit(scope, outcome string) {
	m.RateLimits.WithLabelValues(scope, outcome).Inc()
}

func (m *Metrics) SetCircuitOpen(name string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.CircuitOpen.WithLabelValues(name).Set(v)
}
