package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeout_SucceedsWithinDeadline(t *testing.T) {
	// Given an operation that resolves quickly
	op := func(ctx context.Context) (any, error) {
		return "done", nil
	}

	// When running under a generous timeout
	value, err := WithTimeout(context.Background(), time.Second, op)

	// Then the value comes back untouched
	require.NoError(t, err)
	assert.Equal(t, "done", value)
}

func TestWithTimeout_RejectsHungOperation(t *testing.T) {
	// Given an operation that never resolves on its own
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	op := func(ctx context.Context) (any, error) {
		<-release
		return nil, ctx.Err()
	}

	// When running with a 100ms timeout
	start := time.Now()
	_, err := WithTimeout(context.Background(), 100*time.Millisecond, op)
	elapsed := time.Since(start)

	// Then a timeout error surfaces near the deadline
	require.Error(t, err)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, KindTimeout, reqErr.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 500*time.Millisecond, "the guard must not wait for the operation")
}

func TestWithTimeout_AbandonsBlockedOperation(t *testing.T) {
	// Given an operation that ignores its context entirely
	release := make(chan struct{})
	op := func(ctx context.Context) (any, error) {
		<-release
		return "late", nil
	}
	t.Cleanup(func() { close(release) })

	// When running with a short timeout
	_, err := WithTimeout(context.Background(), 50*time.Millisecond, op)

	// Then the caller is released even though the goroutine is still blocked
	require.Error(t, err)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, KindTimeout, reqErr.Kind)
}

func TestWithTimeout_ParentCancellationWins(t *testing.T) {
	// Given a caller that gives up before the timeout fires
	ctx, cancel := context.WithCancel(context.Background())
	op := func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	// When running with a long timeout
	_, err := WithTimeout(ctx, 10*time.Second, op)

	// Then the parent's cancellation is reported, not a timeout
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	var reqErr *RequestError
	assert.False(t, errors.As(err, &reqErr) && reqErr.Kind == KindTimeout,
		"caller cancellation must not be reported as a timeout")
}

func TestWithTimeout_OperationErrorPassesThrough(t *testing.T) {
	// Given an operation that fails on its own
	opErr := errors.New("upstream exploded")
	op := func(ctx context.Context) (any, error) {
		return nil, opErr
	}

	// When running under a timeout
	_, err := WithTimeout(context.Background(), time.Second, op)

	// Then the operation's error propagates unchanged
	assert.Same(t, opErr, err)
}

func TestWrapTimeout_AppliesFreshDeadlinePerCall(t *testing.T) {
	// Given a wrapped operation that hangs on the first call only
	calls := 0
	op := func(ctx context.Context) (any, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return "recovered", nil
	}
	wrapped := WrapTimeout(op, 50*time.Millisecond)

	// When invoking twice, as a retry loop would
	_, first := wrapped(context.Background())
	value, second := wrapped(context.Background())

	// Then the first call times out and the second gets a full budget
	require.Error(t, first)
	require.NoError(t, second)
	assert.Equal(t, "recovered", value)
}
