// Package startup handles configuration loading and startup/shutdown
// logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - MEDIA_DIR: Path to media directory (default: /media)
//   - CACHE_DIR: Cache root; transcodes go under $CACHE_DIR/transcoded (default: /cache)
//   - DATABASE_DIR: Path to database directory (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - FFMPEG_PATH, FFPROBE_PATH: External tool binaries (default: ffmpeg, ffprobe)
//   - TRANSCODE_MAX_CONCURRENT: Transcode slots, or "auto" for one per 4 CPUs (default: 1)
//   - TRANSCODE_QUEUE_WAIT: Total time a request waits for a slot (default: 2s)
//   - TRANSCODE_QUEUE_POLL: Interval between slot checks (default: 250ms)
//   - HLS_SEGMENT_SECONDS: HLS segment length (default: 6)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_SEGMENTS: Log HLS segment requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// The database directory must be writable. If the transcode cache is not,
// remux and transcode are disabled and only direct play works.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
