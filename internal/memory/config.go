package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"ccc-photos/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit handed to the Go
// heap. The rest covers libvips allocations, decoded image buffers held by
// cgo and goroutine stacks.
const DefaultMemoryRatio = 0.80

// Limit describes how GOMEMLIMIT was set.
type Limit struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT" or "none"
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// Configure sets GOMEMLIMIT to ratio*containerLimit. An explicit GOMEMLIMIT
// environment variable wins and is only reported. A zero containerLimit
// leaves the runtime alone. Call it before the first large allocation.
func Configure(containerLimit int64, ratio float64) Limit {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		res := Limit{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			res.Configured = true
			res.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return res
	}

	if containerLimit <= 0 {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT left at the runtime default")
		return Limit{Source: "none"}
	}

	if ratio <= 0 || ratio > 1 {
		logging.Warn("MEMORY_RATIO %.2f out of range (0.0-1.0], using %.2f", ratio, DefaultMemoryRatio)
		ratio = DefaultMemoryRatio
	}

	goMemLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		FormatBytes(goMemLimit), ratio*100, FormatBytes(containerLimit))

	return Limit{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: containerLimit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

// FormatBytes renders b with a binary unit suffix.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
