// Package startup handles configuration loading and the banner-style
// lifecycle logging of an ingestion run.
//
// # Configuration
//
// Configuration is read with cleanenv from the environment, or from the
// YAML file named by CONFIG_FILE with the environment overriding it. See
// [Config] for every variable and its default. Paths left empty default to
// locations under DATA_DIR:
//
//   - CATALOG_PATH: DATA_DIR/manifest.json
//   - STAGING_DIR: DATA_DIR/staging
//   - HASH_CACHE_PATH: DATA_DIR/cache.db
//   - STORAGE_URL: file://DATA_DIR/media
//
// GEOCODE_DELAY is never allowed below one second.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Example Usage
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//	startup.LogCatalogState(config.CatalogPath)
package startup
