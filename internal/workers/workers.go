package workers

import (
	"context"
	"runtime"
	"sync"
)

// Count returns the number of workers for a task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// A positive override (PROCESS_WORKERS) wins over the computed value.
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// The limit caps the result; use 0 for no limit.
func Count(override int, multiplier float64, limit int) int {
	workers := override
	if workers <= 0 {
		workers = int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	}

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForMixed returns the worker count for per-item media processing:
// decode/encode is CPU-bound, upload and hashing are I/O-bound.
func ForMixed(override, limit int) int {
	return Count(override, 1.5, limit)
}

// ForEach calls fn for every item using at most n goroutines and waits for
// all of them. Once ctx is done no further items are started; items already
// running are left to observe ctx themselves. It returns ctx.Err() if the
// context ended before every item was started.
func ForEach[T any](ctx context.Context, n int, items []T, fn func(ctx context.Context, index int, item T)) error {
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < n; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(ctx, i, items[i])
			}
		}()
	}

	var err error
feed:
	for i := range items {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err == nil {
		err = ctx.Err()
	}
	return err
}
