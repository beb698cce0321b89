// Package middleware provides cross-cutting infrastructure for the
// orchestration layer, currently the Prometheus metrics collector.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Jakedoes1111/BrandBible-sub001/internal/ports"
)

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements ports.MetricsCollector using Prometheus.
// It tracks request latency and outcomes, token consumption, cache
// effectiveness, and queue depth for the model-request pipeline.
type PrometheusMetrics struct {
	requestLatency *prometheus.HistogramVec
	requestCounter *prometheus.CounterVec
	tokenCounter   *prometheus.CounterVec
	eventCounter   *prometheus.CounterVec
	stateGauges    *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// all metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		requestLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "model_request_duration_seconds",
				Help:    "Latency of model requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "status"},
		),
		requestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_requests_total",
				Help: "Total number of model requests by outcome.",
			},
			[]string{"model", "status"},
		),
		tokenCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_tokens_total",
				Help: "Total tokens consumed across all model requests.",
			},
			[]string{"model", "token_type"},
		),
		eventCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_events_total",
				Help: "Orchestration events: cache hits/misses, queueing, fallbacks.",
			},
			[]string{"event"},
		),
		stateGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orchestrator_state",
				Help: "Current orchestrator state values such as queue depth.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency records request latency labeled by model and status.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.requestLatency.WithLabelValues(label(labels, "model"), label(labels, "status")).
		Observe(duration.Seconds())
}

// RecordCounter routes counter metrics to their Prometheus vectors.
// Metrics without a model label are treated as orchestration events.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "model_requests_total":
		pm.requestCounter.WithLabelValues(label(labels, "model"), label(labels, "status")).Add(value)
	case "model_tokens_total":
		pm.tokenCounter.WithLabelValues(label(labels, "model"), label(labels, "token_type")).Add(value)
	default:
		pm.eventCounter.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge sets a state gauge such as queue depth.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.stateGauges.WithLabelValues(metric).Set(value)
}

func label(labels map[string]string, key string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return "unknown"
}
