package llm

import (
	"context"
	"fmt"
	"time"
)

// DefaultRequestTimeout bounds a single attempt when the caller does not
// supply a deadline.
const DefaultRequestTimeout = 60 * time.Second

type outcome struct {
	value any
	err   error
}

// WithTimeout races op against a deadline. The operation receives a context
// that is canceled when the deadline fires, so well-behaved operations stop
// their work; the race still settles on time even if the operation ignores
// the context. A timeout surfaces as a RequestError of KindTimeout carrying
// the configured duration.
func WithTimeout(ctx context.Context, timeout time.Duration, op Operation) (any, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		value, err := op(tctx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-tctx.Done():
		if ctx.Err() != nil {
			// The parent was canceled, not the deadline.
			return nil, ctx.Err()
		}
		return nil, &RequestError{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("operation timed out after %s", timeout),
			Err:     tctx.Err(),
		}
	}
}

// WrapTimeout returns an Operation that enforces the deadline on every
// invocation. Combined with ExecuteWithRetry this gives each attempt a
// fresh deadline.
func WrapTimeout(op Operation, timeout time.Duration) Operation {
	return func(ctx context.Context) (any, error) {
		return WithTimeout(ctx, timeout, op)
	}
}
