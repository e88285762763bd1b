package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is present in the first export even if a run touches nothing.
func InitializeMetrics() {
	for _, status := range []string{"success", "error", "cancelled"} {
		RunsTotal.WithLabelValues(status)
	}

	for _, kind := range []string{"image", "video"} {
		for _, status := range []string{"processed", "duplicate", "failed", "unchanged"} {
			ItemsTotal.WithLabelValues(kind, status)
		}
	}

	for _, stage := range []string{"fingerprint", "metadata", "transcode", "upload", "cluster", "save"} {
		StageDuration.WithLabelValues(stage)
	}

	for _, result := range []string{"hit", "miss"} {
		HashCacheLookups.WithLabelValues(result)
	}

	for _, status := range []string{"success", "error", "fallback", "cache_hit"} {
		GeocodeRequestsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"initialize_schema", "get_file_hash", "put_file_hash",
		"prune_file_hashes", "get_place_name", "put_place_name"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, op := range []string{"stat", "open", "read"} {
		for _, vol := range []string{"source", "data", "unknown"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}
}
