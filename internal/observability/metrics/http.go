package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersTotal      *prometheus.CounterVec
	answerDuration    *prometheus.HistogramVec
	retrievalHitTotal *prometheus.CounterVec
	noContextTotal    *prometheus.CounterVec
	ingestedDocsTotal *prometheus.CounterVec
	ingestedChunks    *prometheus.HistogramVec
	ingestFailedTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hfa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hfa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hfa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hfa",
			Subsystem: "chat",
			Name:      "answers_total",
			Help:      "Total answers produced by pipeline route.",
		},
		[]string{"service", "route"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hfa",
			Subsystem: "chat",
			Name:      "answer_duration_seconds",
			Help:      "Answer pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "route"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hfa",
			Subsystem: "chat",
			Name:      "retrieval_hit_total",
			Help:      "Total answers backed by at least one retrieved source.",
		},
		[]string{"service"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hfa",
			Subsystem: "chat",
			Name:      "no_context_total",
			Help:      "Total admin answers generated without retrieved sources.",
		},
		[]string{"service"},
	)
	ingestedDocsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hfa",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Total documents ingested successfully.",
		},
		[]string{"service"},
	)
	ingestedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hfa",
			Subsystem: "ingest",
			Name:      "chunks",
			Help:      "Distribution of chunks produced per ingested document.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"service"},
	)
	ingestFailedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hfa",
			Subsystem: "ingest",
			Name:      "failures_total",
			Help:      "Total document ingestions that ended in a failed status.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		answerDuration,
		retrievalHitTotal,
		noContextTotal,
		ingestedDocsTotal,
		ingestedChunks,
		ingestFailedTotal,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		answersTotal:      answersTotal,
		answerDuration:    answerDuration,
		retrievalHitTotal: retrievalHitTotal,
		noContextTotal:    noContextTotal,
		ingestedDocsTotal: ingestedDocsTotal,
		ingestedChunks:    ingestedChunks,
		ingestFailedTotal: ingestFailedTotal,
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

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/documents/"):
		return "/documents/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordAnswer(service, route string, sourceCount int, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	m.answersTotal.WithLabelValues(service, route).Inc()
	m.answerDuration.WithLabelValues(service, route).Observe(duration.Seconds())

	if sourceCount > 0 {
		m.retrievalHitTotal.WithLabelValues(service).Inc()
	} else if route == "admin" {
		m.noContextTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordIngestion(service string, chunkCount int) {
	m.ingestedDocsTotal.WithLabelValues(service).Inc()
	m.ingestedChunks.WithLabelValues(service).Observe(float64(chunkCount))
}

func (m *HTTPServerMetrics) RecordIngestionFailure(service string) {
	m.ingestFailedTotal.WithLabelValues(service).Inc()
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
