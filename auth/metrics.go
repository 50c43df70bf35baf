package auth

import "github.com/prometheus/client_golang/prometheus"

const (
	refreshSucceeded = "succeeded"
	refreshFailed    = "failed"
	refreshMissing   = "missing_credential"
)

// Metrics counts token refreshes by result. Only the caller that starts a
// shared refresh is counted, so the total is the number of server calls.
type Metrics struct {
	refreshes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scope",
			Subsystem: "auth",
			Name:      "refresh_total",
			Help:      "Token refresh attempts by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.refreshes)
	}
	return m
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) Refreshes() *prometheus.CounterVec {
	return m.refreshes
}
