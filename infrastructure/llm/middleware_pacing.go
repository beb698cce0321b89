package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// pacedCaller smooths request bursts with a token bucket. This sits in
// front of the sliding-window limiter: the windows enforce the per-minute
// and per-hour budgets while the bucket spreads admitted calls out so a
// drained queue does not slam the provider.
type pacedCaller struct {
	next    ModelCaller
	limiter *rate.Limiter
}

// PacingMiddleware creates middleware that paces requests with a token
// bucket. The limit parameter sets sustained requests per second; burst
// allows temporary spikes above it.
func PacingMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next ModelCaller) ModelCaller {
		return &pacedCaller{next: next, limiter: limiter}
	}
}

// DoRequest blocks until a token is available, then forwards the request.
func (p *pacedCaller) DoRequest(ctx context.Context, model string, payload Payload) (*Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("pacing: %w", err)
	}
	return p.next.DoRequest(ctx, model, payload)
}
