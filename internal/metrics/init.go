package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, action := range []string{"direct", "remux", "transcode"} {
		DeliveryDecisionsTotal.WithLabelValues(action)
	}

	for _, mode := range []string{"direct", "cached", "pipe", "rejected"} {
		DeliveryResponsesTotal.WithLabelValues(mode)
	}

	for _, kind := range []string{"remux", "transcode", "segment"} {
		for _, status := range []string{"success", "failed", "canceled"} {
			TranscoderJobsTotal.WithLabelValues(kind, status)
		}
		TranscoderJobDuration.WithLabelValues(kind)
		TranscoderProcessesRunning.WithLabelValues(kind)
		TranscoderBytesStreamed.WithLabelValues(kind)
		CacheLookupsTotal.WithLabelValues(kind, "hit")
		CacheLookupsTotal.WithLabelValues(kind, "miss")
	}

	for _, reason := range []string{"process_failed", "canceled", "write_error", "sweep"} {
		CacheDiscardsTotal.WithLabelValues(reason)
	}

	// --- Filesystem retry metrics (per retry-operation × volume) ---
	for _, op := range []string{"stat", "open"} {
		for _, vol := range []string{"media", "cache", "database", "unknown"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, op := range []string{"get_media", "check_access", "validate_session", "upsert_media"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
