package ctfd

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records outbound request counts and latencies per operation.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics registers the client collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctfd_console",
			Name:      "server_requests_total",
			Help:      "Requests sent to the CTF server by operation and outcome.",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ctfd_console",
			Name:      "server_request_duration_seconds",
			Help:      "Latency of requests sent to the CTF server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.requests, m.latency)
	return m
}

func (m *Metrics) observe(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, OutcomeOf(err).String()).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
