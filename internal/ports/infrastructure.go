// Package ports defines the interfaces that connect the orchestration core
// to the rest of the application. Implementations live in the infrastructure
// layer; callers depend only on these contracts.
package ports

import (
	"context"
	"time"
)

// GenerationClient is the surface the rest of the product uses to reach
// generative models. It hides rate limiting, retries, caching, and model
// fallback behind a small set of operations.
type GenerationClient interface {
	// Complete sends a prompt to the named model and returns the response text.
	Complete(ctx context.Context, model, prompt string, options map[string]any) (string, error)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like cache hits/misses, errors, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like queue depth, active
	// requests, etc.
	RecordGauge(metric string, value float64, labels map[string]string)
}
