/*
Package workers sizes and runs the bounded worker pool used for per-item media
processing.

When running in a container the number of usable CPUs may be limited by cgroup
constraints. runtime.NumCPU() still reports the host's CPUs, while GOMAXPROCS
(Go 1.19+) follows the container limit, so Count is derived from GOMAXPROCS:

	n := workers.ForMixed(cfg.Workers, 16) // PROCESS_WORKERS, or 1.5 per CPU, max 16

ForEach fans items out to n goroutines and returns once all of them finished:

	err := workers.ForEach(ctx, n, files, func(ctx context.Context, i int, f SourceFile) {
	    results[i] = process(ctx, f)
	})

Writing to results[i] from the callback is safe because every index is handled
by exactly one goroutine; the caller reads results only after ForEach returns.
*/
package workers
