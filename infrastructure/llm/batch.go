package llm

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency caps in-flight operations when the caller passes
// a non-positive concurrency.
const DefaultBatchConcurrency = 3

// BatchResult records the settlement of one batch operation. Results are
// returned in input order; a failed operation carries its error here
// instead of aborting its siblings.
type BatchResult struct {
	Value any
	Err   error
}

// ProgressFunc is invoked after every settlement with the number of
// completed operations and the batch total.
type ProgressFunc func(completed, total int)

// RunBatch executes the operations with at most concurrency in flight at
// any instant; as soon as one settles the next queued operation starts.
// Every operation passes through the full request pipeline. The returned
// slice is index-aligned with ops.
func (s *Service) RunBatch(ctx context.Context, ops []Operation, concurrency int) []BatchResult {
	return s.RunBatchWithProgress(ctx, ops, nil, concurrency)
}

// RunBatchWithProgress is RunBatch plus a progress callback. The callback
// is serialized, so it may touch shared state without its own locking.
func (s *Service) RunBatchWithProgress(
	ctx context.Context,
	ops []Operation,
	onProgress ProgressFunc,
	concurrency int,
) []BatchResult {
	if concurrency < 1 {
		concurrency = DefaultBatchConcurrency
	}

	results := make([]BatchResult, len(ops))
	total := len(ops)

	var completed atomic.Int64
	var progressMu sync.Mutex

	// A plain errgroup (no shared context) keeps one operation's failure
	// from canceling its siblings; failures land in the result slice.
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, op := range ops {
		g.Go(func() error {
			value, err := s.Do(ctx, op, RequestConfig{})
			results[i] = BatchResult{Value: value, Err: err}

			if onProgress != nil {
				done := int(completed.Add(1))
				progressMu.Lock()
				onProgress(done, total)
				progressMu.Unlock()
			}
			return nil
		})
	}

	// Goroutines never return errors; Wait only fences completion.
	_ = g.Wait()
	return results
}
