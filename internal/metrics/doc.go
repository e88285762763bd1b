// Package metrics provides Prometheus instrumentation for the ingestion pipeline.
//
// All metrics are prefixed with "ccc_photos_". The pipeline is a batch job, so
// instead of serving /metrics the collectors are exported once per run with
// WriteTextfile into a directory watched by node_exporter's textfile collector
// (METRICS_TEXTFILE).
//
// # Metric Categories
//
//   - Run: RunsTotal, RunDuration, LastRunTimestamp, FilesScanned
//   - Items: ItemsTotal (kind × status), StageDuration, UploadBytesTotal, HashCacheLookups
//   - Catalog: CatalogItems, CatalogGroups, CatalogVersion, OrphansPrunedTotal
//   - Geocoding: GeocodeRequestsTotal, GeocodeDuration, GeocodeWaitDuration
//   - Database: DBQueryTotal, DBQueryDuration
//   - Filesystem: retry attempts/successes/failures and ESTALE counts per volume
//
// InitializeMetrics should be called once at startup so every label
// combination is present in the first export.
package metrics
