package transcode

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"ccc-photos/internal/logging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsLogSettings maps the application log level onto a libvips level and a
// handler that forwards libvips messages to our logger.
func vipsLogSettings(appLevel logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	switch appLevel {
	case logging.LevelDebug:
		return vips.LogLevelInfo, func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	case logging.LevelInfo:
		return vips.LogLevelWarning, func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	case logging.LevelWarn:
		return vips.LogLevelError, func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelError {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	case logging.LevelError:
		return vips.LogLevelCritical, func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelCritical {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	default:
		return vips.LogLevelWarning, func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelError {
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	}
}

// InitVips initializes the libvips library.
// This should be called once at startup, before any WebP transcoding.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Logging must be configured before Startup() so early messages respect LOG_LEVEL
	level, handler := vipsLogSettings(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources.
// govips cannot be restarted once shut down.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// transcodeWebP re-encodes a WebP image with libvips: orientation applied,
// downscaled to maxWidth, exported at quality.
func transcodeWebP(src, dst string, maxWidth, quality int) (width, height int, size int64, err error) {
	ref, err := vips.LoadImageFromFile(src, vips.NewImportParams())
	if err != nil {
		return 0, 0, 0, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return 0, 0, 0, fmt.Errorf("vips autorotate failed: %w", err)
	}

	if maxWidth > 0 && ref.Width() > maxWidth {
		scale := float64(maxWidth) / float64(ref.Width())
		logging.Debug("Vips downscaling %s from %dx%d (scale %.3f)",
			filepath.Base(src), ref.Width(), ref.Height(), scale)
		if err := ref.Resize(scale, vips.KernelLanczos3); err != nil {
			return 0, 0, 0, fmt.Errorf("vips resize failed: %w", err)
		}
	}

	params := vips.NewWebpExportParams()
	params.Quality = quality
	buf, _, err := ref.ExportWebp(params)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("vips export failed: %w", err)
	}

	if err := os.WriteFile(dst, buf, 0o644); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return ref.Width(), ref.Height(), int64(len(buf)), nil
}
