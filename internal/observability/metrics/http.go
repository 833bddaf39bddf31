package metrics

import (
	"bufio"
	"fmt"
	"net"
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

	uploadsTotal        *prometheus.CounterVec
	confirmationsTotal  *prometheus.CounterVec
	validationsTotal    *prometheus.CounterVec
	mappingRunsTotal    *prometheus.CounterVec
	mappingBatchSize    *prometheus.HistogramVec
	itemConfidence      *prometheus.HistogramVec
	reviewFlaggedTotal  *prometheus.CounterVec
	lexiconUpdatesTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pgc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pgc",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgc",
			Subsystem: "documents",
			Name:      "uploads_total",
			Help:      "Total accepted document uploads.",
		},
		[]string{"service", "mime_type"},
	)
	confirmationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgc",
			Subsystem: "documents",
			Name:      "confirmations_total",
			Help:      "Total item confirmations by outcome.",
		},
		[]string{"service", "outcome"},
	)
	validationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgc",
			Subsystem: "documents",
			Name:      "validations_total",
			Help:      "Total documents fully validated.",
		},
		[]string{"service"},
	)
	mappingRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgc",
			Subsystem: "mapping",
			Name:      "runs_total",
			Help:      "Total budget mapping runs by status.",
		},
		[]string{"service", "status"},
	)
	mappingBatchSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pgc",
			Subsystem: "mapping",
			Name:      "batch_size",
			Help:      "Distribution of mapped items per budget mapping run.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
		},
		[]string{"service"},
	)
	itemConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pgc",
			Subsystem: "classifier",
			Name:      "item_confidence",
			Help:      "Distribution of suggestion confidence per classified item.",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"service", "kind"},
	)
	reviewFlaggedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgc",
			Subsystem: "classifier",
			Name:      "review_flagged_total",
			Help:      "Total items flagged for manual review.",
		},
		[]string{"service", "kind"},
	)
	lexiconUpdatesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgc",
			Subsystem: "classifier",
			Name:      "lexicon_updates_total",
			Help:      "Total learning-signal lexicon updates.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsTotal,
		confirmationsTotal,
		validationsTotal,
		mappingRunsTotal,
		mappingBatchSize,
		itemConfidence,
		reviewFlaggedTotal,
		lexiconUpdatesTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		uploadsTotal:        uploadsTotal,
		confirmationsTotal:  confirmationsTotal,
		validationsTotal:    validationsTotal,
		mappingRunsTotal:    mappingRunsTotal,
		mappingBatchSize:    mappingBatchSize,
		itemConfidence:      itemConfidence,
		reviewFlaggedTotal:  reviewFlaggedTotal,
		lexiconUpdatesTotal: lexiconUpdatesTotal,
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
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/budgets/"):
		return "/v1/budgets/{budget_id}"
	case strings.HasPrefix(path, "/v1/mappings/"):
		return "/v1/mappings/{mapping_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordUpload(service, mimeType string) {
	if mimeType == "" {
		mimeType = "unknown"
	}
	m.uploadsTotal.WithLabelValues(service, mimeType).Inc()
}

func (m *HTTPServerMetrics) RecordConfirmation(service, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.confirmationsTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordValidation(service string) {
	m.validationsTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordMappingRun(service, status string, batchSize int) {
	if status == "" {
		status = "unknown"
	}
	m.mappingRunsTotal.WithLabelValues(service, status).Inc()
	if batchSize > 0 {
		m.mappingBatchSize.WithLabelValues(service).Observe(float64(batchSize))
	}
}

func (m *HTTPServerMetrics) RecordItemSuggestion(service, kind string, confidence int, requiresReview bool) {
	if kind == "" {
		kind = "unknown"
	}
	m.itemConfidence.WithLabelValues(service, kind).Observe(float64(confidence))
	if requiresReview {
		m.reviewFlaggedTotal.WithLabelValues(service, kind).Inc()
	}
}

func (m *HTTPServerMetrics) RecordLexiconUpdate(service string) {
	m.lexiconUpdatesTotal.WithLabelValues(service).Inc()
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
