package interceptor

import "github.com/prometheus/client_golang/prometheus"

// Outcome is the terminal state a request reached in the pipeline.
type Outcome string

const (
	OutcomeSucceeded        Outcome = "succeeded"
	OutcomeFailedOther      Outcome = "failed_other"
	OutcomeFailedAuth       Outcome = "failed_auth"
	OutcomeNetworkError     Outcome = "network_error"
	OutcomeRetriedSucceeded Outcome = "retried_succeeded"
	OutcomeRetriedFailed    Outcome = "retried_failed"
	OutcomeRefreshFailed    Outcome = "refresh_failed"
	OutcomeLoggedOut        Outcome = "logged_out"
)

type Metrics struct {
	requests *prometheus.CounterVec
}

// NewMetrics registers the pipeline counters with reg. A nil reg creates
// unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scope",
			Subsystem: "interceptor",
			Name:      "requests_total",
			Help:      "Outgoing API requests by pipeline outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests)
	}
	return m
}

func (m *Metrics) observe(outcome Outcome) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(outcome)).Inc()
}

// Requests exposes the counter for tests and dashboards.
func (m *Metrics) Requests() *prometheus.CounterVec {
	return m.requests
}
