package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies spans emitted by the default middleware chain.
const tracerName = "brandgate/llm"

// tracedCaller wraps each request in an OpenTelemetry span for debugging
// and latency analysis across the pipeline.
type tracedCaller struct {
	next   ModelCaller
	tracer trace.Tracer
}

// TracingMiddleware creates middleware that records a span per model
// request under the given service name.
func TracingMiddleware(serviceName string) Middleware {
	tracer := otel.Tracer(serviceName)

	return func(next ModelCaller) ModelCaller {
		return &tracedCaller{next: next, tracer: tracer}
	}
}

// DoRequest executes the request inside a span annotated with the model,
// prompt length, and token usage.
func (t *tracedCaller) DoRequest(ctx context.Context, model string, payload Payload) (*Response, error) {
	ctx, span := t.tracer.Start(ctx, "llm.request",
		trace.WithAttributes(
			attribute.String("llm.model", model),
			attribute.Int("llm.prompt.length", len(payload.Prompt)),
		),
	)
	defer span.End()

	resp, err := t.next.DoRequest(ctx, model, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}

	span.SetAttributes(
		attribute.Int("llm.tokens.input", resp.TokensIn),
		attribute.Int("llm.tokens.output", resp.TokensOut),
	)
	return resp, nil
}
