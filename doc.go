// Media Library serves a multi-user media collection to web browsers,
// deciding per file whether to send the original bytes, rewrap the streams
// into a browser-native container, or re-encode them.
//
// # Application Lifecycle
//
//  1. Configuration Loading: Reads environment variables and validates directories
//  2. Database Initialization: Opens the SQLite catalog, users and sessions
//  3. Cache Sweep: Removes partial transcode files left by a previous run
//  4. Component Initialization:
//     - Admission queue bounding concurrent transcodes
//     - FFmpeg pipeline streaming output while filling the cache
//     - Metrics collector sampling the cache size
//  5. HTTP Server Setup: Routes, authentication, metrics, logging and compression
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM, kills ffmpeg process groups
//
// # Delivery
//
// Every media request is authorized against the caller's library grants
// before the source file is touched. Direct play and cached artifacts
// support byte ranges (206/416). Remux and transcode output is piped to the
// client as ffmpeg produces it, without Content-Length or range support,
// and is written to the cache at the same time. A cache entry becomes
// visible only after ffmpeg exits cleanly.
//
// Transcodes wait up to TRANSCODE_QUEUE_WAIT for a slot. A request that
// still has none gets 503 with Retry-After. Remux is cheap and never queues.
//
// HLS playlists are generated for transcode renditions; each segment is
// encoded on demand and cached separately.
//
// # HTTP Server
//
//  1. Main Server (default port 8080):
//     - /media/{id}/file, /media/{id}/qualities, /media/{id}/stream/...
//     - /api/auth/login, /api/auth/logout, /api/auth/check
//     - /api/transcode/status, /api/transcode/clear (admin)
//     - /health, /healthz, /livez, /readyz, /version
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Environment Variables
//
//   - MEDIA_DIR: Root directory containing media files
//   - CACHE_DIR: Directory for transcoded artifacts (transcoded/ below it)
//   - DATABASE_DIR: Directory for the SQLite database
//   - PORT: Main HTTP server port (default: 8080)
//   - METRICS_PORT: Metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable metrics server (default: true)
//   - FFMPEG_PATH, FFPROBE_PATH: Binaries (default: from PATH)
//   - TRANSCODE_MAX_CONCURRENT: Slot count or "auto" (default: 1)
//   - TRANSCODE_QUEUE_WAIT: Admission wait (default: 2s)
//   - TRANSCODE_QUEUE_POLL: Admission poll interval (default: 250ms)
//   - HLS_SEGMENT_SECONDS: Target segment length (default: 6)
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//
// Users, libraries and catalog entries are managed with cmd/mlctl.
//
// # Build Requirements
//
// CGO is required for SQLite. FFmpeg and ffprobe must be installed for
// remux, transcode and probing; without a writable cache only direct play
// is available.
package main
