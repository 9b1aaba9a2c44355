// Package metrics provides Prometheus instrumentation for the media library
// server. All metrics are prefixed with "media_library_".
//
// # Metric Categories
//
// HTTP: request counts, durations and in-flight requests, recorded by the
// middleware package.
//
// Delivery: how playback requests were classified (direct, remux,
// transcode) and how they were answered (direct file, cached artifact,
// live pipe, rejected because the transcode queue was full).
//
// Transcoder: external process runs by kind and outcome, run time, the
// number of processes alive right now, and bytes produced.
//
// Queue: transcode slots in use against the configured limit, admission
// wait time, and rejections.
//
// Cache: hit/miss per variant kind, promotions of finished fills,
// discarded partial fills by reason, and the on-disk size gauges that the
// Collector refreshes in the background.
//
// Filesystem: NFS stale-handle retry counters, fed through the
// filesystem.Observer implemented in observer.go.
//
// Call InitializeMetrics once at startup so every label combination is
// exported from the first scrape.
package metrics
