package llm

import (
	"context"
	"sync"
	"time"
)

// DefaultQueuePollInterval is how long the drain loop waits before
// re-checking the rate limiter after a denial.
const DefaultQueuePollInterval = 1 * time.Second

type queueResult struct {
	value any
	err   error
}

type queuedOp struct {
	ctx    context.Context
	run    Operation
	result chan queueResult
}

// RequestQueue is a FIFO buffer of deferred operations, drained
// opportunistically as the rate limiter permits. Operations execute in
// strict enqueue order, one at a time; a single drain goroutine runs at a
// time, guarded by a flag, so enqueuing during a drain never spawns a
// second loop.
type RequestQueue struct {
	mu       sync.Mutex
	ops      []*queuedOp
	draining bool

	limiter *SlidingWindowLimiter
	poll    time.Duration

	// onDepth observes the buffer depth after every append and pop. It is
	// called under the queue lock, so it sees consistent depths; keep it
	// cheap.
	onDepth func(depth int)
}

// NewRequestQueue creates a queue gated by limiter. A non-positive poll
// interval falls back to DefaultQueuePollInterval.
func NewRequestQueue(limiter *SlidingWindowLimiter, poll time.Duration) *RequestQueue {
	if poll <= 0 {
		poll = DefaultQueuePollInterval
	}
	return &RequestQueue{limiter: limiter, poll: poll}
}

// Enqueue appends op to the buffer and blocks until it eventually executes,
// returning its result. If ctx is done before the operation runs, Enqueue
// returns the context error; the queued work itself is not removed and will
// still execute when its turn comes. Abandonment does not cancel queued
// work.
func (q *RequestQueue) Enqueue(ctx context.Context, op Operation) (any, error) {
	item := &queuedOp{
		ctx:    ctx,
		run:    op,
		result: make(chan queueResult, 1),
	}

	q.mu.Lock()
	q.ops = append(q.ops, item)
	if q.onDepth != nil {
		q.onDepth(len(q.ops))
	}
	if !q.draining {
		q.draining = true
		go q.drain()
	}
	q.mu.Unlock()

	select {
	case r := <-item.result:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports the number of operations waiting to execute.
func (q *RequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// drain processes the queue head by head: wait for the limiter to admit a
// call, record it, execute, deliver, repeat. The loop exits and clears the
// draining flag once the buffer is empty.
func (q *RequestQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.ops) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		head := q.ops[0]
		q.mu.Unlock()

		for !q.limiter.TryAcquire() {
			time.Sleep(q.poll)
		}

		q.mu.Lock()
		q.ops = q.ops[1:]
		if q.onDepth != nil {
			q.onDepth(len(q.ops))
		}
		q.mu.Unlock()

		value, err := head.run(head.ctx)
		head.result <- queueResult{value: value, err: err}
	}
}
