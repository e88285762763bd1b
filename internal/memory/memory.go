package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"ccc-photos/internal/logging"
	"ccc-photos/internal/metrics"
)

// Config holds monitor thresholds.
type Config struct {
	// LimitBytes is the reference limit. Zero means use GOMEMLIMIT.
	LimitBytes int64

	// HighWaterMark is the usage ratio below which a paused monitor resumes.
	HighWaterMark float64

	// CriticalWaterMark is the usage ratio at which transcoding pauses.
	CriticalWaterMark float64

	CheckInterval time.Duration
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     2 * time.Second,
	}
}

// Monitor samples heap usage and holds back transcode workers while usage
// is critical. A Monitor with no limit never pauses.
type Monitor struct {
	config Config
	limit  int64
	read   func() uint64

	mu        sync.Mutex
	paused    bool
	resumeCh  chan struct{}
	startOnce sync.Once
}

// NewMonitor creates a monitor. It does nothing until Start.
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
		}
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultConfig().CheckInterval
	}

	if limit == 0 {
		logging.Debug("Memory monitor: no limit configured, backpressure disabled")
	} else {
		logging.Info("Memory monitor: pausing transcodes above %.0f%% of %s",
			config.CriticalWaterMark*100, FormatBytes(limit))
	}

	return &Monitor{
		config:   config,
		limit:    limit,
		read:     heapAlloc,
		resumeCh: make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start samples memory until ctx is done. Calling it more than once is a
// no-op.
func (m *Monitor) Start(ctx context.Context) {
	if m.limit == 0 {
		return
	}
	m.startOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(m.config.CheckInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					m.check()
				case <-ctx.Done():
					m.resume()
					return
				}
			}
		}()
	})
}

func (m *Monitor) check() {
	alloc := m.read()
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	switch {
	case usage >= m.config.CriticalWaterMark && !m.paused:
		logging.Warn("Memory critical (%.1f%% of limit), pausing transcodes", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryPausesTotal.Inc()
		m.mu.Unlock()
		runtime.GC()
		return
	case usage < m.config.HighWaterMark && m.paused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming transcodes", usage*100)
		m.mu.Unlock()
		m.resume()
		return
	}
	m.mu.Unlock()
}

func (m *Monitor) resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.paused {
		return
	}
	m.paused = false
	metrics.MemoryPaused.Set(0)
	close(m.resumeCh)
	m.resumeCh = make(chan struct{})
}

// Wait blocks while the monitor is paused. It returns ctx.Err() if ctx ends
// first.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.Lock()
	if !m.paused {
		m.mu.Unlock()
		return ctx.Err()
	}
	ch := m.resumeCh
	m.mu.Unlock()

	select {
	case <-ch:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
