// Package memory keeps the indexer inside its container memory limit.
//
// [Configure] derives GOMEMLIMIT from the container limit (MEMORY_LIMIT,
// usually injected through the Kubernetes Downward API) and MEMORY_RATIO.
// An explicit GOMEMLIMIT always wins.
//
// GOMEMLIMIT only governs the Go heap. Decoding a 50 megapixel JPEG or
// handing a large WebP to libvips allocates outside it, so [Monitor] adds
// backpressure on top: transcode workers call [Monitor.Wait] before each
// decode and are held while heap usage sits above the critical mark.
//
//	memory.Configure(cfg.MemoryLimit, cfg.MemoryRatio)
//	mon := memory.NewMonitor(memory.DefaultConfig())
//	mon.Start(ctx)
//
//	// in a worker
//	if err := mon.Wait(ctx); err != nil {
//	    return err
//	}
//
// Ratios of 0.75 to 0.85 suit most deployments; go lower when libvips is
// enabled and images are large.
package memory
