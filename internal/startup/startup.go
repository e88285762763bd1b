package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"ccc-photos/internal/catalog"
	"ccc-photos/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// LogSection prints a section header.
func LogSection(title string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("%s", title)
	logging.Info("------------------------------------------------------------")
}

// LogDatabaseInit logs cache database initialization
func LogDatabaseInit(path string, duration time.Duration) {
	LogSection("CACHE DATABASE INITIALIZATION")
	logging.Info("  Path: %s", path)
	logging.Info("  [OK] Cache database initialized in %v", duration)
}

// LogVipsInit logs libvips availability
func LogVipsInit(enabled bool, err error) {
	LogSection("IMAGE PROCESSING")
	switch {
	case !enabled:
		logging.Info("  libvips disabled (VIPS_ENABLED=false)")
		logging.Info("  WebP images will be stored unchanged")
	case err != nil:
		logging.Warn("  libvips initialization failed: %v", err)
		logging.Warn("  WebP images will be stored unchanged")
	default:
		logging.Info("  [OK] libvips available for WebP")
	}
	logging.Info("  JPEG/PNG: imaging (pure Go)")
}

// LogStorageInit logs the blob storage target
func LogStorageInit(url string) {
	LogSection("STORAGE")
	logging.Info("  [OK] Bucket opened: %s", url)
}

// LogGeocoderInit logs reverse geocoding setup
func LogGeocoderInit(enabled bool, url string, delay time.Duration) {
	LogSection("REVERSE GEOCODING")
	if !enabled {
		logging.Info("  Geocoding disabled, groups are named by coordinates")
		return
	}
	logging.Info("  Service: %s", url)
	logging.Info("  Pacing:  one request per %v", delay)
}

// LogCatalogState logs what is already on disk before a run starts.
func LogCatalogState(path string) {
	LogSection("CATALOG")
	s, err := catalog.Peek(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Info("  No catalog yet at %s", path)
		} else {
			logging.Warn("  Cannot summarize catalog %s: %v", path, err)
		}
		return
	}
	logging.Info("  Version:      %d", s.Version)
	logging.Info("  Last updated: %s", s.LastUpdated.Format(time.RFC1123))
	logging.Info("  Items:        %d (%d not processed)", s.Photos, s.Failed)
	logging.Info("  Groups:       %d", s.Groups)
}

// LogShutdownInitiated logs a signal-triggered cancellation
func LogShutdownInitiated(signal string) {
	LogSection(fmt.Sprintf("SHUTDOWN INITIATED (received %s)", signal))
	logging.Warn("  Run cancelled, the catalog will not be saved")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
   ___ ___ ___        _         _
  / __/ __/ __|  _ __| |_  ___ | |_ ___ ___
 | (_| (_| (__  | '_ \ ' \/ _ \|  _/ _ (_-<
  \___\___\___| | .__/_||_\___/ \__\___/__/
                |_|
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func checkSourceDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	if logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			fileCount := 0
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
	}
	return nil
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
