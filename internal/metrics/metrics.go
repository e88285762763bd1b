package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run metrics
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccc_photos_runs_total",
			Help: "Total number of ingestion runs by outcome",
		},
		[]string{"status"}, // "success", "error", "cancelled"
	)

	RunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ccc_photos_last_run_duration_seconds",
			Help: "Duration of the last ingestion run in seconds",
		},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ccc_photos_last_run_timestamp",
			Help: "Unix timestamp of the last completed ingestion run",
		},
	)

	FilesScanned = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ccc_photos_files_scanned",
			Help: "Number of media files found by the last source scan",
		},
	)
)

// Item processing metrics
var (
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccc_photos_items_total",
			Help: "Total number of media items handled by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ccc_photos_stage_duration_seconds",
			Help:    "Per-item processing stage duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ccc_photos_upload_bytes_total",
			Help: "Total bytes written to blob storage",
		},
	)

	HashCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccc_photos_hash_cache_lookups_total",
			Help: "Content hash cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)
)

// Catalog metrics
var (
	CatalogItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ccc_photos_catalog_items",
			Help: "Number of media items in the catalog after the last run",
		},
	)

	CatalogGroups = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ccc_photos_catalog_groups",
			Help: "Number of location groups in the catalog after the last run",
		},
	)

	CatalogVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ccc_photos_catalog_version",
			Help: "Version counter of the last saved catalog",
		},
	)

	OrphansPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ccc_photos_orphans_pruned_total",
			Help: "Total number of catalog items removed because their source disappeared",
		},
	)
)

// Geocoding metrics
var (
	GeocodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccc_photos_geocode_requests_total",
			Help: "Reverse geocoding lookups by outcome",
		},
		[]string{"status"}, // "success", "error", "fallback", "cache_hit"
	)

	GeocodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ccc_photos_geocode_duration_seconds",
			Help:    "Reverse geocoding request duration in seconds, excluding rate-limit waits",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	GeocodeWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ccc_photos_geocode_wait_duration_seconds",
			Help:    "Time spent waiting on the geocoding rate limiter",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccc_photos_db_queries_total",
			Help: "Total number of cache database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ccc_photos_db_query_duration_seconds",
			Help:    "Cache database query duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ccc_photos_memory_usage_ratio",
			Help: "Go heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ccc_photos_memory_paused",
			Help: "1 while transcoding is paused for memory pressure",
		},
	)

	MemoryPausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ccc_photos_memory_pauses_total",
			Help: "Number of times transcoding was paused for memory pressure",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccc_photos_filesystem_retry_attempts_total",
			Help: "Filesystem operations retried after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccc_photos_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccc_photos_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccc_photos_filesystem_stale_errors_total",
			Help: "ESTALE errors observed on filesystem operations",
		},
		[]string{"operation", "volume"},
	)
)

// WriteTextfile writes every registered metric to path in the Prometheus
// text format, for node_exporter's textfile collector. The write is atomic.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
