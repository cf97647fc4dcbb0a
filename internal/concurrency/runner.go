// Package concurrency provides the bounded worker pool used for fan-out work
// such as multi-query fetches and coverage refreshes.
package concurrency

import (
	"context"
	"sync"
)

// Runner runs tasks with bounded parallelism.
type Runner struct {
	workers int
}

func NewRunner(workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{workers: workers}
}

// ForEach calls fn for every index in [0, n) using at most the configured
// number of goroutines. It stops scheduling new work once ctx is canceled
// and returns ctx.Err() in that case; per-task errors are fn's concern.
func (r *Runner) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	if n <= 0 {
		return nil
	}

	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(ctx, i)
		}(i)
	}

	wg.Wait()
	return ctx.Err()
}
