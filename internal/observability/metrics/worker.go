package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks rebuild requests consumed from the queue.
type WorkerMetrics struct {
	*knowledgeBaseCollectors
	*resilienceCollectors

	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "rebuild_requests_total",
			Help:      "Total rebuild requests handled by status.",
		},
		[]string{"service", "status"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "rebuild_in_flight",
			Help:      "Number of rebuild requests being handled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(requestsTotal, requestInFlight)

	return &WorkerMetrics{
		knowledgeBaseCollectors: newKnowledgeBaseCollectors(service, registry),
		resilienceCollectors:    newResilienceCollectors(service, registry),
		registry:                registry,
		requestsTotal:           requestsTotal,
		requestInFlight:         requestInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRebuild() {
	m.requestInFlight.Inc()
}

func (m *WorkerMetrics) FinishRebuild(service string, err error) {
	m.requestInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.requestsTotal.WithLabelValues(service, status).Inc()
}
