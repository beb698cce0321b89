package llm

import (
	"context"
	"sync"
	"time"
)

// MockCaller provides a configurable ModelCaller for testing. It allows
// precise control over response behavior, timing, and error conditions,
// including per-model scripting for fallback-chain tests.
type MockCaller struct {
	mu sync.Mutex

	// Response configuration
	Response      *Response
	Err           error
	ResponseDelay time.Duration

	// FailUntilAttempt fails the first N calls, then succeeds.
	FailUntilAttempt int

	// ModelErrs scripts a fixed error per model name, overriding Err.
	ModelErrs map[string]error

	// Tracking
	CallCount   int
	ModelsSeen  []string
	LastPayload Payload
}

// NewMockCaller creates a mock with default successful behavior.
func NewMockCaller() *MockCaller {
	return &MockCaller{
		Response: &Response{Text: "test response", TokensIn: 10, TokensOut: 20},
	}
}

// DoRequest implements ModelCaller with the configured behavior.
func (m *MockCaller) DoRequest(ctx context.Context, model string, payload Payload) (*Response, error) {
	m.mu.Lock()
	m.CallCount++
	m.ModelsSeen = append(m.ModelsSeen, model)
	m.LastPayload = payload
	callCount := m.CallCount
	delay := m.ResponseDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.ModelErrs[model]; ok && err != nil {
		return nil, err
	}
	if m.FailUntilAttempt > 0 && callCount <= m.FailUntilAttempt {
		if m.Err != nil {
			return nil, m.Err
		}
		return nil, &RequestError{Kind: KindServerError, Model: model, Status: 500, Message: "simulated failure"}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	resp := *m.Response
	if resp.Model == "" {
		resp.Model = model
	}
	return &resp, nil
}

// GetCallCount returns the number of calls made so far.
func (m *MockCaller) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// GetModelsSeen returns the models called so far, in order.
func (m *MockCaller) GetModelsSeen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ModelsSeen))
	copy(out, m.ModelsSeen)
	return out
}
