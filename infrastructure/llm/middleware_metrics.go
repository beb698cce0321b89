package llm

import (
	"context"
	"errors"
	"time"

	"github.com/Jakedoes1111/BrandBible-sub001/internal/ports"
)

// metricsCaller collects per-request metrics: latency, outcome counts, and
// token usage, labeled by model and failure kind.
type metricsCaller struct {
	next      ModelCaller
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that records request metrics through
// the given collector. A nil collector disables recording but keeps the
// chain intact.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next ModelCaller) ModelCaller {
		return &metricsCaller{next: next, collector: collector}
	}
}

// DoRequest executes the request while recording latency, status, and token
// counts.
func (m *metricsCaller) DoRequest(ctx context.Context, model string, payload Payload) (*Response, error) {
	start := time.Now()
	resp, err := m.next.DoRequest(ctx, model, payload)

	if m.collector == nil {
		return resp, err
	}

	labels := map[string]string{
		"model":  model,
		"status": "success",
	}
	if err != nil {
		labels["status"] = statusLabel(err)
	}

	m.collector.RecordLatency("model_request", time.Since(start), labels)
	m.collector.RecordCounter("model_requests_total", 1, labels)

	if err == nil && resp != nil {
		labels["token_type"] = "input"
		m.collector.RecordCounter("model_tokens_total", float64(resp.TokensIn), labels)

		labels["token_type"] = "output"
		m.collector.RecordCounter("model_tokens_total", float64(resp.TokensOut), labels)
	}

	return resp, err
}

func statusLabel(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind.String()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout.String()
	}
	return "error"
}
