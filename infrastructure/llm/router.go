package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/Jakedoes1111/BrandBible-sub001/internal/ports"
)

// ProviderRouter dispatches each model name to the caller for its provider,
// using the registry's descriptors. Unknown models surface as
// model-unavailable errors so the fallback chain can move on.
type ProviderRouter struct {
	registry *ModelRegistry
	callers  map[string]ModelCaller
}

// NewProviderRouter creates a router over the given provider callers, keyed
// by provider name ("openai", "anthropic", "google").
func NewProviderRouter(registry *ModelRegistry, callers map[string]ModelCaller) *ProviderRouter {
	return &ProviderRouter{registry: registry, callers: callers}
}

// DoRequest routes the call to the provider hosting the model.
func (r *ProviderRouter) DoRequest(ctx context.Context, model string, payload Payload) (*Response, error) {
	descriptor, ok := r.registry.Lookup(model)
	if !ok {
		return nil, r.registry.UnknownModelError(model)
	}

	caller, ok := r.callers[descriptor.Provider]
	if !ok {
		return nil, &RequestError{
			Kind:    KindModelUnavailable,
			Model:   model,
			Message: fmt.Sprintf("no caller configured for provider %q", descriptor.Provider),
		}
	}

	return caller.DoRequest(ctx, model, payload)
}

// BuildService assembles a fully wired Service from a deployment config:
// provider callers for every provider with credentials in the environment,
// the router, and the middleware chain. Providers without credentials are
// skipped; their models simply classify as unavailable at call time.
func BuildService(ctx context.Context, cfg Config, metrics ports.MetricsCollector, middleware ...Middleware) (*Service, error) {
	registry, err := cfg.BuildRegistry()
	if err != nil {
		return nil, err
	}

	callers := make(map[string]ModelCaller, len(cfg.Providers))
	for provider, pc := range cfg.Providers {
		apiKey := os.Getenv(pc.EnvVar)
		if apiKey == "" {
			continue
		}

		var caller ModelCaller
		switch provider {
		case "openai":
			caller, err = NewOpenAICaller(apiKey, pc.BaseURL)
		case "anthropic":
			caller, err = NewAnthropicCaller(apiKey, pc.BaseURL)
		case "google":
			caller, err = NewGoogleCaller(ctx, apiKey)
		default:
			return nil, fmt.Errorf("unknown provider %q in config", provider)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s caller: %w", provider, err)
		}
		callers[provider] = caller
	}

	chain := append([]Middleware{
		MetricsMiddleware(metrics),
		TracingMiddleware(tracerName),
	}, middleware...)
	caller := Chain(NewProviderRouter(registry, callers), chain...)

	svcCfg := cfg.ServiceConfig()
	svcCfg.Caller = caller
	svcCfg.Registry = registry
	svcCfg.Metrics = metrics
	return NewService(svcCfg), nil
}
