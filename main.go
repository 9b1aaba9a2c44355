package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-library/internal/cache"
	"media-library/internal/database"
	"media-library/internal/filesystem"
	"media-library/internal/handlers"
	"media-library/internal/logging"
	"media-library/internal/memory"
	"media-library/internal/metrics"
	"media-library/internal/middleware"
	"media-library/internal/queue"
	"media-library/internal/startup"
	"media-library/internal/transcoder"
)

const (
	sessionCleanupInterval = time.Hour
	cacheMetricsInterval   = time.Minute
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"media":    config.MediaDir,
		"cache":    config.CacheDir,
		"database": config.DatabaseDir,
	}))
	metrics.InitializeMetrics()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	go cleanSessions(ctx, db)

	// The cache only exists when its directory is writable.
	var mgr *cache.Manager
	swept := 0
	if config.TranscodingEnabled {
		mgr, err = cache.New(config.TranscodeDir)
		if err != nil {
			logging.Error("Transcode cache unavailable, disabling transcoding: %v", err)
			config.TranscodingEnabled = false
		} else {
			swept = sweepCache(ctx, mgr, db)
		}
	}
	startup.LogTranscoderInit(config, swept)

	q := queue.New(config.MaxConcurrent, config.QueueWait, config.QueuePoll)
	pipeline := transcoder.New(transcoder.Config{
		FFmpegPath: config.FFmpegPath,
		Cache:      mgr,
		Enabled:    config.TranscodingEnabled,
	})

	var collector *metrics.Collector
	if mgr != nil {
		collector = metrics.NewCollector(mgr, cacheMetricsInterval)
		collector.Start()
	}

	h := handlers.New(db, pipeline, q, handlers.Options{
		SegmentSeconds: config.SegmentSeconds,
		RetryAfter:     config.QueueWait,
	})

	router := h.Router()
	startup.LogHTTPRoutes(router, config)

	// Outermost first: compression, logging, metrics, auth.
	var handler http.Handler = h.AuthMiddleware(router)
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogSegments = config.LogSegments
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Streams run as long as the media; TimeoutWriter guards stalls.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", handlers.MetricsHandler())
		metricsMux.HandleFunc("/health", h.LivenessCheck)
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, pipeline, collector, stop)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

// sweepCache removes partial files left by a previous run and records when
// that happened.
func sweepCache(ctx context.Context, mgr *cache.Manager, db *database.Database) int {
	if last, err := db.GetLastCacheSweep(ctx); err == nil && !last.IsZero() {
		logging.Debug("Previous cache sweep at %s", last.Format(time.RFC3339))
	}

	swept, err := mgr.SweepPartials()
	if err != nil {
		logging.Warn("Cache sweep incomplete: %v", err)
	}
	if err := db.SetLastCacheSweep(ctx, time.Now()); err != nil {
		logging.Warn("Failed to record cache sweep: %v", err)
	}
	return swept
}

func cleanSessions(ctx context.Context, db *database.Database) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.CleanExpiredSessions(ctx)
			if err != nil {
				logging.Warn("Session cleanup failed: %v", err)
			} else if n > 0 {
				logging.Debug("Removed %d expired sessions", n)
			}
		}
	}
}

func handleShutdown(srv, metricsSrv *http.Server, pipeline *transcoder.Pipeline, collector *metrics.Collector, stop context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Killing transcode processes")
	pipeline.Cleanup()
	startup.LogShutdownStepComplete("Transcode processes stopped")

	if collector != nil {
		collector.Stop()
	}
	stop()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
