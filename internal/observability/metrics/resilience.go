package metrics

import "github.com/prometheus/client_golang/prometheus"

// resilienceCollectors implement resilience.Observer for model, reranker and
// queue calls.
type resilienceCollectors struct {
	service string

	retriesTotal *prometheus.CounterVec
	breakerOpen  *prometheus.GaugeVec
}

func newResilienceCollectors(service string, registry *prometheus.Registry) *resilienceCollectors {
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Retried upstream calls by operation.",
		},
		[]string{"service", "operation"},
	)
	breakerOpen := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "circuit_open",
			Help:      "1 while the operation's circuit breaker is open, 0.5 half-open, 0 closed.",
		},
		[]string{"service", "operation"},
	)
	registry.MustRegister(retriesTotal, breakerOpen)
	return &resilienceCollectors{service: service, retriesTotal: retriesTotal, breakerOpen: breakerOpen}
}

func (c *resilienceCollectors) ObserveRetry(operation string) {
	c.retriesTotal.WithLabelValues(c.service, operation).Inc()
}

func (c *resilienceCollectors) ObserveBreakerState(operation, state string) {
	value := 0.0
	switch state {
	case "open":
		value = 1
	case "half-open":
		value = 0.5
	}
	c.breakerOpen.WithLabelValues(c.service, operation).Set(value)
}
