package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the default number of concurrent workers
const DefaultConcurrency = 4

// BulkResult represents the outcome of a single bulk operation
type BulkResult[T any] struct {
	Index int
	Input string
	Data  T
	Error error
}

// runBulkOperation executes operation for every input with bounded
// parallelism. Results come back in input order; a failure never cancels
// the remaining work.
func runBulkOperation[T any](
	ctx context.Context,
	inputs []string,
	concurrency int64,
	progress bool,
	errOut io.Writer,
	operation func(ctx context.Context, index int, input string) (T, error),
) []BulkResult[T] {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if errOut == nil {
		errOut = io.Discard
	}

	sem := semaphore.NewWeighted(concurrency)
	var mu sync.Mutex
	results := make([]BulkResult[T], len(inputs))
	total := len(inputs)
	var done int64

	g, ctx := errgroup.WithContext(ctx)
	for i, input := range inputs {
		results[i] = BulkResult[T]{Index: i, Input: input}
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i].Error = err
				return nil
			}
			defer sem.Release(1)

			data, err := operation(ctx, i, input)
			results[i].Data = data
			results[i].Error = err

			if progress && total > 0 {
				current := atomic.AddInt64(&done, 1)
				mu.Lock()
				_, _ = fmt.Fprintf(errOut, "\rProcessed %d/%d", current, total)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if progress && total > 0 {
		_, _ = fmt.Fprintf(errOut, "\rProcessed %d/%d\n", atomic.LoadInt64(&done), total)
	}
	return results
}

// countResults returns success and failure counts from bulk results
func countResults[T any](results []BulkResult[T]) (success, failure int) {
	for _, r := range results {
		if r.Error == nil {
			success++
		} else {
			failure++
		}
	}
	return
}
