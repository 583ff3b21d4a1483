package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Gateway records outbound remote API calls per action and outcome.
type Gateway struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewGateway creates the collectors and registers them on reg when it is non-nil.
func NewGateway(reg prometheus.Registerer) *Gateway {
	m := &Gateway{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Total number of remote API requests",
			},
			[]string{"action", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_request_duration_seconds",
				Help:    "Duration of remote API requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"action"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Duration)
	}
	return m
}

// Observe records one finished request. A nil receiver is a no-op.
func (m *Gateway) Observe(action, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(action, outcome).Inc()
	m.Duration.WithLabelValues(action).Observe(d.Seconds())
}
