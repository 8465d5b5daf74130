package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hybrid_rag"

// knowledgeBaseCollectors are shared by every process that builds or serves
// a knowledge base.
type knowledgeBaseCollectors struct {
	service string

	chunks        prometheus.Gauge
	buildsTotal   *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
}

func newKnowledgeBaseCollectors(service string, registry *prometheus.Registry) *knowledgeBaseCollectors {
	chunks := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "kb",
		Name:        "chunks",
		Help:        "Number of chunks in the active knowledge base snapshot.",
		ConstLabels: prometheus.Labels{"service": service},
	})
	buildsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kb",
			Name:      "builds_total",
			Help:      "Total knowledge base builds by trigger and status.",
		},
		[]string{"service", "trigger", "status"},
	)
	buildDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "kb",
			Name:      "build_duration_seconds",
			Help:      "Knowledge base build duration in seconds.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"service", "trigger"},
	)
	registry.MustRegister(chunks, buildsTotal, buildDuration)
	return &knowledgeBaseCollectors{
		service:       service,
		chunks:        chunks,
		buildsTotal:   buildsTotal,
		buildDuration: buildDuration,
	}
}

func (c *knowledgeBaseCollectors) ObserveKnowledgeBaseBuild(trigger string, chunks int, duration time.Duration, err error) {
	if trigger == "" {
		trigger = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.buildsTotal.WithLabelValues(c.service, trigger, status).Inc()
	c.buildDuration.WithLabelValues(c.service, trigger).Observe(duration.Seconds())
	if err == nil {
		c.chunks.Set(float64(chunks))
	}
}

func (c *knowledgeBaseCollectors) SetKnowledgeBaseChunks(chunks int) {
	c.chunks.Set(float64(chunks))
}
