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

	lookupsTotal          *prometheus.CounterVec
	cacheHitsTotal        *prometheus.CounterVec
	providerAttemptsTotal *prometheus.CounterVec
	cascadeDuration       *prometheus.HistogramVec
	cascadeAttempts       *prometheus.HistogramVec
	llmRequestsTotal      *prometheus.CounterVec
	historyRecordsTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pon",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pon",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pon",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	lookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pon",
			Subsystem: "lookup",
			Name:      "requests_total",
			Help:      "Total product lookups by input path and outcome.",
		},
		[]string{"service", "path", "outcome"},
	)
	cacheHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pon",
			Subsystem: "lookup",
			Name:      "cache_hits_total",
			Help:      "Total lookups served from the product cache.",
		},
		[]string{"service"},
	)
	providerAttemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pon",
			Subsystem: "cascade",
			Name:      "provider_attempts_total",
			Help:      "Total provider attempts by outcome.",
		},
		[]string{"service", "provider", "outcome"},
	)
	cascadeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pon",
			Subsystem: "cascade",
			Name:      "duration_seconds",
			Help:      "Cascade walk duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "path"},
	)
	cascadeAttempts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pon",
			Subsystem: "cascade",
			Name:      "attempts_per_lookup",
			Help:      "Distribution of provider attempts before the cascade settled.",
			Buckets:   []float64{1, 2, 3, 5, 8, 11, 14, 17},
		},
		[]string{"service"},
	)
	llmRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pon",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total model calls by operation and status.",
		},
		[]string{"service", "operation", "status"},
	)
	historyRecordsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pon",
			Subsystem: "history",
			Name:      "records_total",
			Help:      "Total search history records appended.",
		},
		[]string{"service", "found"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		lookupsTotal,
		cacheHitsTotal,
		providerAttemptsTotal,
		cascadeDuration,
		cascadeAttempts,
		llmRequestsTotal,
		historyRecordsTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		lookupsTotal:          lookupsTotal,
		cacheHitsTotal:        cacheHitsTotal,
		providerAttemptsTotal: providerAttemptsTotal,
		cascadeDuration:       cascadeDuration,
		cascadeAttempts:       cascadeAttempts,
		llmRequestsTotal:      llmRequestsTotal,
		historyRecordsTotal:   historyRecordsTotal,
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
	case strings.HasSuffix(path, "/analysis"):
		return "/api/products/{barcode}/analysis"
	case strings.HasSuffix(path, "/glycemic"):
		return "/api/products/{barcode}/glycemic"
	case strings.HasPrefix(path, "/api/products/"):
		return "/api/products/{barcode}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordLookup(service, path, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.lookupsTotal.WithLabelValues(service, path, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordCacheHit(service string) {
	m.cacheHitsTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordProviderAttempt(service, provider, outcome string) {
	m.providerAttemptsTotal.WithLabelValues(service, provider, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordCascade(service, path string, attempts int, duration time.Duration) {
	m.cascadeDuration.WithLabelValues(service, path).Observe(duration.Seconds())
	if attempts > 0 {
		m.cascadeAttempts.WithLabelValues(service).Observe(float64(attempts))
	}
}

func (m *HTTPServerMetrics) RecordLLMRequest(service, operation, status string) {
	if operation == "" {
		operation = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.llmRequestsTotal.WithLabelValues(service, operation, status).Inc()
}

func (m *HTTPServerMetrics) RecordHistoryRecord(service string, found bool) {
	m.historyRecordsTotal.WithLabelValues(service, strconv.FormatBool(found)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
