package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	backfillTotal    *prometheus.CounterVec
	backfillDuration *prometheus.HistogramVec
	backfillInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	backfillTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pon",
			Subsystem: "worker",
			Name:      "glycemic_backfill_total",
			Help:      "Total glycemic backfill runs by status.",
		},
		[]string{"service", "status"},
	)
	backfillDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pon",
			Subsystem: "worker",
			Name:      "glycemic_backfill_duration_seconds",
			Help:      "Glycemic backfill duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	backfillInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pon",
			Subsystem: "worker",
			Name:      "glycemic_backfill_in_flight",
			Help:      "Number of in-flight backfill tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(backfillTotal, backfillDuration, backfillInFlight)

	return &WorkerMetrics{
		registry:         registry,
		backfillTotal:    backfillTotal,
		backfillDuration: backfillDuration,
		backfillInFlight: backfillInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartBackfill() {
	m.backfillInFlight.Inc()
}

// FinishBackfill records a completed run. "skipped" covers products that
// needed no backfill.
func (m *WorkerMetrics) FinishBackfill(service, status string, duration time.Duration) {
	m.backfillInFlight.Dec()
	if status == "" {
		status = "unknown"
	}
	m.backfillTotal.WithLabelValues(service, status).Inc()
	m.backfillDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}
