// Package metrics provides the Prometheus-backed implementation of the
// pipeline's metrics collection port.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"peermark/internal/ports"
)

// PrometheusMetrics implements ports.MetricsCollector for transcription
// runs: request latency, token spend, cache effectiveness and per-run gauges.
type PrometheusMetrics struct {
	requestsTotal  *prometheus.CounterVec
	tokensTotal    *prometheus.CounterVec
	sheetsTotal    *prometheus.CounterVec
	latencySeconds *prometheus.HistogramVec
	histograms     *prometheus.HistogramVec
	gauges         *prometheus.GaugeVec
}

// NewPrometheusMetrics registers the run metrics in the given registry, or
// in the default global registry when reg is nil.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transcription_requests_total",
				Help: "Transcription service requests by provider, model and status.",
			},
			[]string{"provider", "model", "status"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transcription_tokens_total",
				Help: "Tokens consumed by transcription requests.",
			},
			[]string{"provider", "model", "token_type"},
		),
		sheetsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheets_processed_total",
				Help: "Score sheets processed by outcome (transcribed, cached, failed, skipped).",
			},
			[]string{"outcome"},
		),
		latencySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_operation_duration_seconds",
				Help:    "Execution time of pipeline operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		histograms: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_observations",
				Help:    "General pipeline value distributions (latency, sizes).",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 12),
			},
			[]string{"metric", "provider", "model", "status"},
		),
		gauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pipeline_run_state",
				Help: "Current per-run gauge values (students, coverage, grades emitted).",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency records the execution time of a pipeline operation.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.latencySeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter increments the counter matching the metric name; unknown
// names land on the sheet outcome counter keyed by the metric itself.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "transcription_requests_total":
		pm.requestsTotal.WithLabelValues(
			labels["provider"], labels["model"], labels["status"],
		).Add(value)
	case "transcription_tokens_total":
		pm.tokensTotal.WithLabelValues(
			labels["provider"], labels["model"], labels["token_type"],
		).Add(value)
	case "sheets_processed_total":
		pm.sheetsTotal.WithLabelValues(labels["outcome"]).Add(value)
	default:
		pm.sheetsTotal.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge sets a per-run gauge value.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.gauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram records a value distribution observation.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	pm.histograms.WithLabelValues(
		metric, labels["provider"], labels["model"], labels["status"],
	).Observe(value)
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
