// Package telemetry wires client invocations into prometheus and
// opentelemetry.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// InvocationMetrics implements client.Observer
type InvocationMetrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewInvocationMetrics registers the collectors on reg, nil means the default
// registerer.
func NewInvocationMetrics(reg prometheus.Registerer) *InvocationMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &InvocationMetrics{
		invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudconnect_invocations_total",
			Help: "Actions invoked, by outcome",
		}, []string{"service", "action", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloudconnect_invocation_duration_seconds",
			Help:    "Time from encoding an action to its decoded result",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"service", "action"}),
	}
}

func (m *InvocationMetrics) ObserveInvocation(service, actionName, outcome string, duration time.Duration) {
	m.invocations.WithLabelValues(service, actionName, outcome).Inc()
	m.duration.WithLabelValues(service, actionName).Observe(duration.Seconds())
}
