package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"ccc-photos/internal/logging"
)

// MinGeocodeDelay is the floor for GEOCODE_DELAY.
const MinGeocodeDelay = time.Second

// Config holds all application configuration
type Config struct {
	SourceDir     string `yaml:"source_dir" env:"SOURCE_DIR" env-default:"/photos"`
	DataDir       string `yaml:"data_dir" env:"DATA_DIR" env-default:"/data"`
	CatalogPath   string `yaml:"catalog_path" env:"CATALOG_PATH"`
	StagingDir    string `yaml:"staging_dir" env:"STAGING_DIR"`
	HashCachePath string `yaml:"hash_cache_path" env:"HASH_CACHE_PATH"`

	StorageURL    string `yaml:"storage_url" env:"STORAGE_URL"`
	PublicBaseURL string `yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
	UploadTimeout time.Duration `yaml:"upload_timeout" env:"UPLOAD_TIMEOUT" env-default:"60s"`

	MaxWidth    int  `yaml:"max_width" env:"MAX_WIDTH" env-default:"2048"`
	Quality     int  `yaml:"quality" env:"QUALITY" env-default:"82"`
	VipsEnabled bool `yaml:"vips_enabled" env:"VIPS_ENABLED" env-default:"true"`

	ClusterRadiusMiles float64 `yaml:"cluster_radius_miles" env:"CLUSTER_RADIUS_MILES" env-default:"0.5"`

	GeocodeEnabled   bool          `yaml:"geocode_enabled" env:"GEOCODE_ENABLED" env-default:"true"`
	GeocodeURL       string        `yaml:"geocode_url" env:"GEOCODE_URL" env-default:"https://nominatim.openstreetmap.org/reverse"`
	GeocodeUserAgent string        `yaml:"geocode_user_agent" env:"GEOCODE_USER_AGENT" env-default:"ccc-photos/1.0"`
	GeocodeDelay     time.Duration `yaml:"geocode_delay" env:"GEOCODE_DELAY" env-default:"2s"`
	GeocodeTimeout   time.Duration `yaml:"geocode_timeout" env:"GEOCODE_TIMEOUT" env-default:"10s"`

	ProcessWorkers  int    `yaml:"process_workers" env:"PROCESS_WORKERS" env-default:"0"`
	MetricsTextfile string `yaml:"metrics_textfile" env:"METRICS_TEXTFILE"`

	MemoryLimit int64   `yaml:"memory_limit" env:"MEMORY_LIMIT" env-default:"0"`
	MemoryRatio float64 `yaml:"memory_ratio" env:"MEMORY_RATIO" env-default:"0.8"`
}

// Load reads configuration from CONFIG_FILE (when set) and the environment,
// fills derived defaults and validates the result. It does not log.
func Load() (*Config, error) {
	cfg := &Config{}

	var err error
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve makes directories absolute and derives the paths that default
// to locations under DATA_DIR.
func (c *Config) resolve() error {
	var err error
	if c.SourceDir, err = filepath.Abs(c.SourceDir); err != nil {
		return fmt.Errorf("failed to resolve source directory path: %w", err)
	}
	if c.DataDir, err = filepath.Abs(c.DataDir); err != nil {
		return fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if c.CatalogPath == "" {
		c.CatalogPath = filepath.Join(c.DataDir, "manifest.json")
	}
	if c.StagingDir == "" {
		c.StagingDir = filepath.Join(c.DataDir, "staging")
	}
	if c.HashCachePath == "" {
		c.HashCachePath = filepath.Join(c.DataDir, "cache.db")
	}
	if c.StorageURL == "" {
		c.StorageURL = "file://" + filepath.ToSlash(filepath.Join(c.DataDir, "media")) + "?create_dir=true"
	}

	if c.GeocodeDelay < MinGeocodeDelay {
		logging.Warn("GEOCODE_DELAY %v is below the %v minimum, using %v", c.GeocodeDelay, MinGeocodeDelay, MinGeocodeDelay)
		c.GeocodeDelay = MinGeocodeDelay
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxWidth <= 0 {
		errs = append(errs, fmt.Errorf("MAX_WIDTH must be positive, got %d", c.MaxWidth))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, fmt.Errorf("QUALITY must be between 1 and 100, got %d", c.Quality))
	}
	if c.ClusterRadiusMiles <= 0 {
		errs = append(errs, fmt.Errorf("CLUSTER_RADIUS_MILES must be positive, got %v", c.ClusterRadiusMiles))
	}
	if c.UploadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("UPLOAD_TIMEOUT must be positive, got %v", c.UploadTimeout))
	}
	if c.GeocodeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("GEOCODE_TIMEOUT must be positive, got %v", c.GeocodeTimeout))
	}
	if c.ProcessWorkers < 0 {
		errs = append(errs, fmt.Errorf("PROCESS_WORKERS must not be negative, got %d", c.ProcessWorkers))
	}
	if c.MemoryLimit < 0 {
		errs = append(errs, fmt.Errorf("MEMORY_LIMIT must not be negative, got %d", c.MemoryLimit))
	}
	if c.MemoryRatio <= 0 || c.MemoryRatio > 1 {
		errs = append(errs, fmt.Errorf("MEMORY_RATIO must be in (0, 1], got %v", c.MemoryRatio))
	}
	if c.GeocodeEnabled && c.GeocodeURL == "" {
		errs = append(errs, errors.New("GEOCODE_URL is required when geocoding is enabled"))
	}
	return errors.Join(errs...)
}

// LoadConfig prints the banner, loads configuration and prepares the
// directories the run needs. The source directory must exist; the data and
// staging directories are created and must be writable.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		logging.Info("  CONFIG_FILE:          %s", path)
	}
	logging.Info("  SOURCE_DIR:           %s", cfg.SourceDir)
	logging.Info("  DATA_DIR:             %s", cfg.DataDir)
	logging.Info("  CATALOG_PATH:         %s", cfg.CatalogPath)
	logging.Info("  STAGING_DIR:          %s", cfg.StagingDir)
	logging.Info("  HASH_CACHE_PATH:      %s", cfg.HashCachePath)
	logging.Info("  STORAGE_URL:          %s", cfg.StorageURL)
	logging.Info("  PUBLIC_BASE_URL:      %s", orNone(cfg.PublicBaseURL))
	logging.Info("  UPLOAD_TIMEOUT:       %v", cfg.UploadTimeout)
	logging.Info("  MAX_WIDTH:            %d", cfg.MaxWidth)
	logging.Info("  QUALITY:              %d", cfg.Quality)
	logging.Info("  VIPS_ENABLED:         %v", cfg.VipsEnabled)
	logging.Info("  CLUSTER_RADIUS_MILES: %v", cfg.ClusterRadiusMiles)
	logging.Info("  GEOCODE_ENABLED:      %v", cfg.GeocodeEnabled)
	logging.Info("  GEOCODE_URL:          %s", cfg.GeocodeURL)
	logging.Info("  GEOCODE_DELAY:        %v", cfg.GeocodeDelay)
	logging.Info("  GEOCODE_TIMEOUT:      %v", cfg.GeocodeTimeout)
	logging.Info("  PROCESS_WORKERS:      %s", workersString(cfg.ProcessWorkers))
	logging.Info("  METRICS_TEXTFILE:     %s", orNone(cfg.MetricsTextfile))
	if cfg.MemoryLimit > 0 {
		logging.Info("  MEMORY_LIMIT:         %d (ratio %.2f)", cfg.MemoryLimit, cfg.MemoryRatio)
	}
	logging.Info("  LOG_LEVEL:            %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := checkSourceDirectory(cfg.SourceDir); err != nil {
		return nil, fmt.Errorf("source directory error: %w", err)
	}
	logging.Info("  [OK] Source directory is readable")

	for _, dir := range []struct{ path, name string }{
		{cfg.DataDir, "data"},
		{filepath.Dir(cfg.CatalogPath), "catalog"},
		{cfg.StagingDir, "staging"},
	} {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		if err := testWriteAccess(dir.path); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
	}
	logging.Info("  [OK] Data directories are writable")

	return cfg, nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func workersString(n int) string {
	if n == 0 {
		return "auto"
	}
	return fmt.Sprintf("%d", n)
}
