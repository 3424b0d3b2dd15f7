// Package scheduler implements the bounded fetch sweep: a FIFO queue of work
// items drained by at most K concurrent executors. One call to Sweep is one
// sweep, seeding to full drain.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
)

// Sweep runs fn for every item with at most limit concurrent invocations,
// admitting the next queued item as an in-flight one settles. It blocks until
// the queue is drained and all executors have returned.
//
// An fn error never aborts the sweep or other in-flight executors — один
// недоступный поток не должен останавливать остальные. The number of failed
// invocations is returned. Context cancellation stops further admission;
// executors already running drain naturally.
func Sweep[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) error) int {
	if len(items) == 0 {
		return 0
	}
	if limit < 1 {
		limit = 1
	}
	if limit > len(items) {
		limit = len(items)
	}

	queue := make(chan T, len(items))
	for _, it := range items {
		queue <- it
	}
	close(queue)

	var failed atomic.Int64
	var wg sync.WaitGroup
	wg.Add(limit)

	for i := 0; i < limit; i++ {
		go func() {
			defer wg.Done()
			for item := range queue {
				if ctx.Err() != nil {
					return
				}
				if err := fn(ctx, item); err != nil {
					failed.Add(1)
				}
			}
		}()
	}

	wg.Wait()
	return int(failed.Load())
}

// Guard enforces the no-overlapping-sweeps rule: a new sweep may begin only
// after the previous one has fully drained, so total concurrency stays K
// system-wide rather than K per tick.
type Guard struct {
	busy atomic.Bool
}

// TryAcquire reports whether a new sweep may start. The caller must Release
// once the sweep drains.
func (g *Guard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release marks the sweep as drained.
func (g *Guard) Release() {
	g.busy.Store(false)
}
