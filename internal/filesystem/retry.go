package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"ccc-photos/internal/logging"
)

// VolumeResolver maps file paths to known volume names for metric labeling
// using longest-prefix matching on absolute paths.
type VolumeResolver struct {
	mounts []volumeMount // longest path first
}

type volumeMount struct {
	path string // absolute, with trailing separator
	name string
}

// NewVolumeResolver creates a resolver from a map of volume name → directory.
//
//	NewVolumeResolver(map[string]string{
//	    "source": "/photos",
//	    "data":   "/var/lib/ccc-photos",
//	})
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, path := range volumes {
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		mounts = append(mounts, volumeMount{path: withSeparator(absPath), name: name})
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})

	return &VolumeResolver{mounts: mounts}
}

// Resolve returns the volume name for a path, or "unknown".
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return "unknown"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "unknown"
	}
	absPath = withSeparator(absPath)

	for _, m := range vr.mounts {
		if strings.HasPrefix(absPath, m.path) {
			return m.name
		}
	}
	return "unknown"
}

func withSeparator(p string) string {
	if strings.HasSuffix(p, string(filepath.Separator)) {
		return p
	}
	return p + string(filepath.Separator)
}

var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the package-level volume resolver.
// Call this once at startup after loading configuration.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// VolumeResolver overrides the package-level resolver for this operation.
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c RetryConfig) resolveVolume(path string) string {
	if c.VolumeResolver != nil {
		return c.VolumeResolver.Resolve(path)
	}
	return defaultResolver.Resolve(path)
}

// IsStaleError reports whether err is an NFS stale file handle (ESTALE).
func IsStaleError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// retry runs fn until it succeeds, fails with a non-ESTALE error, or the
// retry budget is spent. Backoff doubles up to MaxBackoff.
func retry(op, path string, config RetryConfig, fn func() error) error {
	volume := config.resolveVolume(path)
	obs := observe()
	backoff := config.InitialBackoff

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 0 {
				logging.Info("%s succeeded on retry %d for %s", op, attempt, path)
				obs.ObserveRetrySuccess(op, volume)
			}
			return nil
		}

		if !IsStaleError(lastErr) {
			return lastErr
		}
		obs.ObserveStaleError(op, volume)

		if attempt < config.MaxRetries {
			obs.ObserveRetryAttempt(op, volume)
			logging.Debug("%s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("%s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	obs.ObserveRetryFailure(op, volume)
	return lastErr
}

// StatWithRetry performs os.Stat, retrying on stale file handles.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := retry("stat", path, config, func() error {
		var err error
		info, err = os.Stat(path)
		return err
	})
	return info, err
}

// OpenWithRetry performs os.Open, retrying on stale file handles.
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	var f *os.File
	err := retry("open", path, config, func() error {
		var err error
		f, err = os.Open(path)
		return err
	})
	return f, err
}

// ReadFileWithRetry performs os.ReadFile, retrying on stale file handles.
func ReadFileWithRetry(path string, config RetryConfig) ([]byte, error) {
	var data []byte
	err := retry("read", path, config, func() error {
		var err error
		data, err = os.ReadFile(path)
		return err
	})
	return data, err
}
