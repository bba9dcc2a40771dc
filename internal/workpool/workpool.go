// Package workpool runs independent per-item tasks on a bounded set of
// goroutines. Cancellation is observed between items only: a task that has
// started always runs to completion.
package workpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ForEach calls fn(i) for every i in [0, n) using at most workers goroutines.
// Items not yet started when ctx is cancelled are skipped and ctx.Err() is
// returned after every running task has finished. fn must write its result
// into a per-index slot; ForEach imposes no completion order.
func ForEach(ctx context.Context, n, workers int, fn func(i int)) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}
