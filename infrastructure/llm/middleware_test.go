package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// recordingCollector captures metric observations for assertions.
type recordingCollector struct {
	mu        sync.Mutex
	latencies map[string]int
	counters  map[string]float64
	gauges    map[string]float64
	labels    map[string]map[string]string
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{
		latencies: make(map[string]int),
		counters:  make(map[string]float64),
		gauges:    make(map[string]float64),
		labels:    make(map[string]map[string]string),
	}
}

func (c *recordingCollector) RecordLatency(metric string, d time.Duration, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latencies[metric]++
	c.remember(metric, labels)
}

func (c *recordingCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[metric] += value
	c.remember(metric, labels)
}

func (c *recordingCollector) RecordGauge(metric string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[metric] = value
	c.remember(metric, labels)
}

func (c *recordingCollector) remember(metric string, labels map[string]string) {
	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	c.labels[metric] = copied
}

func (c *recordingCollector) counter(metric string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[metric]
}

func TestChain_AppliesMiddlewareInOrder(t *testing.T) {
	// Given middleware that tag the payload as they pass it down
	var order []string
	tag := func(name string) Middleware {
		return func(next ModelCaller) ModelCaller {
			return ModelCallerFunc(func(ctx context.Context, model string, payload Payload) (*Response, error) {
				order = append(order, name)
				return next.DoRequest(ctx, model, payload)
			})
		}
	}

	base := ModelCallerFunc(func(ctx context.Context, model string, payload Payload) (*Response, error) {
		order = append(order, "base")
		return &Response{Text: "ok"}, nil
	})

	// When chaining outer then inner
	caller := Chain(base, tag("outer"), tag("inner"))
	_, err := caller.DoRequest(context.Background(), "m", Payload{})

	// Then the first middleware listed is the outermost
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "base"}, order)
}

func TestMetricsMiddleware_RecordsSuccess(t *testing.T) {
	// Given a metrics-wrapped caller
	collector := newRecordingCollector()
	caller := MetricsMiddleware(collector)(NewMockCaller())

	// When a request succeeds
	_, err := caller.DoRequest(context.Background(), "gpt-4o", Payload{Prompt: "hi"})
	require.NoError(t, err)

	// Then latency, outcome, and token metrics are recorded
	assert.Equal(t, 1, collector.latencies["model_request"])
	assert.Equal(t, float64(1), collector.counter("model_requests_total"))
	assert.Equal(t, float64(30), collector.counter("model_tokens_total"), "input and output tokens accumulate")
	assert.Equal(t, "gpt-4o", collector.labels["model_request"]["model"])
}

func TestMetricsMiddleware_LabelsFailuresByKind(t *testing.T) {
	// Given a caller that rate-limits everything
	collector := newRecordingCollector()
	mock := NewMockCaller()
	mock.Err = &RequestError{Kind: KindRateLimited, Status: 429}
	caller := MetricsMiddleware(collector)(mock)

	// When a request fails
	_, err := caller.DoRequest(context.Background(), "gpt-4o", Payload{Prompt: "hi"})
	require.Error(t, err)

	// Then the outcome label carries the failure kind and no tokens count
	assert.Equal(t, "rate_limited", collector.labels["model_requests_total"]["status"])
	assert.Zero(t, collector.counter("model_tokens_total"))
}

func TestMetricsMiddleware_NilCollectorIsTransparent(t *testing.T) {
	caller := MetricsMiddleware(nil)(NewMockCaller())

	resp, err := caller.DoRequest(context.Background(), "gpt-4o", Payload{Prompt: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "test response", resp.Text)
}

func TestPacingMiddleware_AllowsBurstThenWaits(t *testing.T) {
	// Given a pace of 1000/s with a burst of 2, permits refill every 1ms
	caller := PacingMiddleware(rate.Limit(1000), 2)(NewMockCaller())

	// When firing three requests back to back
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := caller.DoRequest(context.Background(), "m", Payload{})
		require.NoError(t, err)
	}

	// Then all pass, the third after a short wait for a token
	assert.Less(t, time.Since(start), time.Second)
}

func TestPacingMiddleware_HonorsCancellation(t *testing.T) {
	// Given an exhausted bucket that refills very slowly
	caller := PacingMiddleware(rate.Limit(0.001), 1)(NewMockCaller())
	_, err := caller.DoRequest(context.Background(), "m", Payload{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// When a second request waits on the bucket
	_, err = caller.DoRequest(ctx, "m", Payload{})

	// Then the wait respects the caller's deadline
	assert.Error(t, err)
}
