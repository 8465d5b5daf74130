package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	*knowledgeBaseCollectors
	*resilienceCollectors

	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ragRequestsTotal     *prometheus.CounterVec
	ragRetrievalHitTotal *prometheus.CounterVec
	ragNoContextTotal    *prometheus.CounterVec
	ragRetrievedPassages *prometheus.HistogramVec
	ragDuration          *prometheus.HistogramVec
	ragLanguageTotal     *prometheus.CounterVec
	rejectedTotal        *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	ragRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "requests_total",
			Help:      "Total successful RAG requests.",
		},
		[]string{"service", "endpoint"},
	)
	ragRetrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "retrieval_hit_total",
			Help:      "Total RAG requests with at least one reranked passage.",
		},
		[]string{"service", "endpoint"},
	)
	ragNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total RAG requests answered without any passage.",
		},
		[]string{"service", "endpoint"},
	)
	ragRetrievedPassages := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "retrieved_passages",
			Help:      "Distribution of reranked passages per successful RAG request.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 8, 13},
		},
		[]string{"service", "endpoint"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "RAG execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	ragLanguageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "language_requests_total",
			Help:      "Total answered questions by detected language.",
		},
		[]string{"service", "language"},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected by traffic control.",
		},
		[]string{"service", "reason"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		ragRequestsTotal,
		ragRetrievalHitTotal,
		ragNoContextTotal,
		ragRetrievedPassages,
		ragDuration,
		ragLanguageTotal,
		rejectedTotal,
	)

	return &HTTPServerMetrics{
		knowledgeBaseCollectors: newKnowledgeBaseCollectors(service, registry),
		resilienceCollectors:    newResilienceCollectors(service, registry),
		registry:                registry,
		requestTotal:            requestTotal,
		requestDuration:         requestDuration,
		requestInFlight:         requestInFlight,
		ragRequestsTotal:        ragRequestsTotal,
		ragRetrievalHitTotal:    ragRetrievalHitTotal,
		ragNoContextTotal:       ragNoContextTotal,
		ragRetrievedPassages:    ragRetrievedPassages,
		ragDuration:             ragDuration,
		ragLanguageTotal:        ragLanguageTotal,
		rejectedTotal:           rejectedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps the path label bounded.
func normalizePath(path string) string {
	switch path {
	case "/generate", "/status", "/healthz", "/metrics", "/v1/search", "/v1/admin/rebuild", "/v1/documents":
		return path
	default:
		return "other"
	}
}

func (m *HTTPServerMetrics) RecordRAGObservation(service, endpoint string, passageCount int, duration time.Duration) {
	m.ragRequestsTotal.WithLabelValues(service, endpoint).Inc()
	m.ragRetrievedPassages.WithLabelValues(service, endpoint).Observe(float64(passageCount))
	m.ragDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())

	if passageCount > 0 {
		m.ragRetrievalHitTotal.WithLabelValues(service, endpoint).Inc()
		return
	}
	m.ragNoContextTotal.WithLabelValues(service, endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordLanguage(service, language string) {
	if language == "" {
		language = "unknown"
	}
	m.ragLanguageTotal.WithLabelValues(service, language).Inc()
}

func (m *HTTPServerMetrics) RecordRejected(service, reason string) {
	m.rejectedTotal.WithLabelValues(service, reason).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
