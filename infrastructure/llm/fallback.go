package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// GenerationRequest describes one task-level generation call, routed through
// the model registry with automatic fallback.
type GenerationRequest struct {
	// Task selects the default model binding.
	Task TaskKind

	// Payload is the content sent to whichever model ends up serving.
	Payload Payload

	// PreferredModel overrides the task's primary when it names a known,
	// capability-matching model.
	PreferredModel string

	// RequireStructuredOutput filters out models that cannot emit JSON.
	RequireStructuredOutput bool

	// CacheResponse stores a successful response keyed by task, model, and
	// payload content.
	CacheResponse bool

	// CacheTTL overrides the cache default for this response.
	CacheTTL time.Duration
}

// GenerationResult reports a successful generation plus the routing trail.
type GenerationResult struct {
	Response *Response

	// ModelUsed is the model that finally served the request.
	ModelUsed string

	// FallbacksAttempted lists every model that failed with an
	// availability-class error before ModelUsed succeeded, in order.
	FallbacksAttempted []string
}

// FallbackExhaustedError aggregates a fully failed fallback chain: every
// model attempted and the last underlying failure.
type FallbackExhaustedError struct {
	Task      TaskKind
	Attempted []string
	LastErr   error
}

// Error names every attempted model so operators can see the whole trail.
func (e *FallbackExhaustedError) Error() string {
	return fmt.Sprintf("all models failed for task %q (attempted: %s): %v",
		e.Task, strings.Join(e.Attempted, ", "), e.LastErr)
}

// Unwrap returns the last underlying error.
func (e *FallbackExhaustedError) Unwrap() error { return e.LastErr }

// Generate resolves a model for the request's task and attempts it through
// the full pipeline, walking the fallback chain on availability failures.
// Unknown fallback names are skipped without raising; non-availability
// errors abort immediately. The fallback graph may contain cycles, so total
// attempts are bounded by the registry size rather than by any traversal
// assumption.
func (s *Service) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	requirements := Requirements{StructuredOutput: req.RequireStructuredOutput}

	primary, err := s.registry.ResolvePrimaryModel(req.Task, req.PreferredModel, requirements)
	if err != nil {
		return nil, err
	}

	candidates := []string{primary}
	if override := s.registry.TaskFallbacks(req.Task); override != nil {
		candidates = append(candidates, override...)
	} else {
		candidates = append(candidates, s.registry.ResolveFallbacks(primary)...)
	}

	maxAttempts := s.registry.Size()
	attempted := make([]string, 0, len(candidates))
	var lastErr error

	for _, model := range candidates {
		if len(attempted) >= maxAttempts {
			break
		}

		descriptor, known := s.registry.Lookup(model)
		if !known {
			// Configuration may name models this deployment doesn't carry;
			// treat them as unavailable rather than failing the request.
			continue
		}
		if req.RequireStructuredOutput && !descriptor.Capabilities.StructuredOutput {
			continue
		}

		cfg := RequestConfig{Timeout: s.timeout}
		if req.CacheResponse {
			cfg.Cache = true
			cfg.CacheKey = CacheKey(req.Task, model, req.Payload)
			cfg.CacheTTL = req.CacheTTL
		}

		value, err := s.Do(ctx, s.callOp(model, req.Payload), cfg)
		if err == nil {
			resp, ok := value.(*Response)
			if !ok {
				return nil, fmt.Errorf("model %q returned unexpected result type %T", model, value)
			}
			return &GenerationResult{
				Response:           resp,
				ModelUsed:          model,
				FallbacksAttempted: attempted,
			}, nil
		}

		lastErr = err
		if !IsModelUnavailable(err) {
			return nil, err
		}
		attempted = append(attempted, model)
		s.count("model_fallbacks_total")
	}

	if lastErr == nil {
		// Every candidate was filtered out before being attempted, so this
		// is a requirements mismatch, not an availability failure.
		return nil, &RequestError{
			Kind:    KindClientError,
			Model:   primary,
			Message: fmt.Sprintf("no model for task %q meets the request requirements", req.Task),
		}
	}
	return nil, &FallbackExhaustedError{Task: req.Task, Attempted: attempted, LastErr: lastErr}
}

// callOp binds a model and payload into a pipeline operation.
func (s *Service) callOp(model string, payload Payload) Operation {
	return func(ctx context.Context) (any, error) {
		resp, err := s.caller.DoRequest(ctx, model, payload)
		if err != nil {
			return nil, err
		}
		return resp, nil
	}
}
