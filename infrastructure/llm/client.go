// Package llm implements the model-request orchestration layer for the
// brand-content pipeline: reliable invocation of hosted generative models
// under rate limits, quota errors, and transient failures.
//
// The package wraps provider-specific callers (OpenAI, Anthropic, Google)
// behind a common ModelCaller interface and composes cross-cutting concerns
// through a middleware pattern. Admission control, retries, timeouts,
// response caching, model fallback, and bounded-concurrency batches are
// provided by the Service type.
//
// Architecture:
//   - ModelCaller abstracts a single provider request
//   - Middleware composes pacing, metrics, and tracing around any caller
//   - ProviderRouter dispatches each model name to its provider
//   - Service owns the rate limiter, request queue, response cache, and
//     model registry, and exposes the orchestration API
//
// Basic usage:
//
//	svc, err := llm.BuildService(ctx, llm.DefaultConfig(), metrics)
//	result, err := svc.Generate(ctx, llm.GenerationRequest{
//	    Task:    llm.TaskBulkContent,
//	    Payload: llm.Payload{Prompt: "Write three taglines for a coffee brand"},
//	})
package llm

import (
	"context"
)

// Payload carries the logical content of a single generation request.
// It is deliberately provider-agnostic; provider callers translate it
// into their SDK's request shape.
type Payload struct {
	// Prompt is the user-facing content sent to the model.
	Prompt string

	// System optionally steers model behavior for the whole request.
	System string

	// Options holds provider-tunable parameters such as temperature,
	// max_tokens, or response_format. Unknown keys are passed through.
	Options map[string]any
}

// Response is the normalized result of a model call.
type Response struct {
	// Text is the generated content.
	Text string

	// Model records which model actually produced the response.
	Model string

	// TokensIn and TokensOut report usage when the provider supplies it,
	// or an estimate otherwise.
	TokensIn  int
	TokensOut int
}

// ModelCaller is the minimal interface a generative backend must implement.
// The model is chosen per call so a single caller can serve every model a
// provider hosts, which is what the fallback router relies on.
type ModelCaller interface {
	DoRequest(ctx context.Context, model string, payload Payload) (*Response, error)
}

// ModelCallerFunc adapts a plain function to the ModelCaller interface.
type ModelCallerFunc func(ctx context.Context, model string, payload Payload) (*Response, error)

// DoRequest invokes the function.
func (f ModelCallerFunc) DoRequest(ctx context.Context, model string, payload Payload) (*Response, error) {
	return f(ctx, model, payload)
}

// Middleware wraps a ModelCaller to add cross-cutting functionality such as
// pacing, metrics collection, or tracing without modifying provider logic.
type Middleware func(ModelCaller) ModelCaller

// Chain applies middleware to a caller in reverse order so the first
// middleware listed is the outermost wrapper.
func Chain(caller ModelCaller, middleware ...Middleware) ModelCaller {
	for i := len(middleware) - 1; i >= 0; i-- {
		caller = middleware[i](caller)
	}
	return caller
}

// Operation is a deferred unit of work run through the orchestration
// pipeline. Implementations must honor context cancellation; every
// suspension point in the pipeline threads the context through.
type Operation func(ctx context.Context) (any, error)
