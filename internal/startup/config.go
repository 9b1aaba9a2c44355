package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"media-library/internal/logging"
	"media-library/internal/workers"
)

// Config holds all application configuration
type Config struct {
	MediaDir        string
	CacheDir        string
	DatabaseDir     string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogSegments     bool
	LogHealthChecks bool

	FFmpegPath     string
	FFprobePath    string
	MaxConcurrent  int
	QueueWait      time.Duration
	QueuePoll      time.Duration
	SegmentSeconds int

	// Derived paths
	DatabasePath string
	TranscodeDir string

	// Remux and transcode need a writable cache; direct play does not.
	TranscodingEnabled bool
}

const (
	// maxConcurrentCap bounds TRANSCODE_MAX_CONCURRENT, including "auto".
	maxConcurrentCap      = 16
	defaultSegmentSeconds = 6
)

// LoadConfig reads the environment, validates it, and prepares the
// database and cache directories. Only an unusable database directory is
// fatal.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	section("CONFIGURATION")

	limit := getEnv("TRANSCODE_MAX_CONCURRENT", "1")
	config := &Config{
		MediaDir:        getEnv("MEDIA_DIR", "/media"),
		CacheDir:        getEnv("CACHE_DIR", "/cache"),
		DatabaseDir:     getEnv("DATABASE_DIR", "/database"),
		Port:            getEnv("PORT", "8080"),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		LogSegments:     getEnvBool("LOG_SEGMENTS", false),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),
		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:     getEnv("FFPROBE_PATH", "ffprobe"),
		QueueWait:       getEnvDuration("TRANSCODE_QUEUE_WAIT", 2*time.Second),
		QueuePoll:       getEnvDuration("TRANSCODE_QUEUE_POLL", 250*time.Millisecond),
		SegmentSeconds:  getEnvInt("HLS_SEGMENT_SECONDS", defaultSegmentSeconds),
	}
	config.validate(limit)

	for _, s := range config.settings(limit) {
		logging.Info("  %-25s %v", s.name+":", s.value)
	}

	section("DIRECTORY SETUP")
	if err := config.prepareDirs(); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    Direct play: ENABLED")
	logging.Info("    Transcoding: %s", enabledString(config.TranscodingEnabled))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// validate replaces out-of-range values with safe ones.
func (c *Config) validate(limit string) {
	n, ok := workers.ParseLimit(limit, maxConcurrentCap)
	if !ok {
		logging.Warn("  Invalid TRANSCODE_MAX_CONCURRENT %q, using default: 1", limit)
		n = 1
	}
	c.MaxConcurrent = n

	if c.QueuePoll > c.QueueWait {
		logging.Warn("  TRANSCODE_QUEUE_POLL exceeds TRANSCODE_QUEUE_WAIT, clamping to %v", c.QueueWait)
		c.QueuePoll = c.QueueWait
	}
	if c.SegmentSeconds < 1 {
		logging.Warn("  Invalid HLS_SEGMENT_SECONDS %d, using default: %d", c.SegmentSeconds, defaultSegmentSeconds)
		c.SegmentSeconds = defaultSegmentSeconds
	}
}

type setting struct {
	name  string
	value any
}

func (c *Config) settings(limit string) []setting {
	return []setting{
		{"MEDIA_DIR", c.MediaDir},
		{"CACHE_DIR", c.CacheDir},
		{"DATABASE_DIR", c.DatabaseDir},
		{"PORT", c.Port},
		{"METRICS_PORT", c.MetricsPort},
		{"METRICS_ENABLED", c.MetricsEnabled},
		{"FFMPEG_PATH", c.FFmpegPath},
		{"FFPROBE_PATH", c.FFprobePath},
		{"TRANSCODE_MAX_CONCURRENT", fmt.Sprintf("%d (%s)", c.MaxConcurrent, limit)},
		{"TRANSCODE_QUEUE_WAIT", c.QueueWait},
		{"TRANSCODE_QUEUE_POLL", c.QueuePoll},
		{"HLS_SEGMENT_SECONDS", c.SegmentSeconds},
		{"LOG_SEGMENTS", c.LogSegments},
		{"LOG_HEALTH_CHECKS", c.LogHealthChecks},
		{"LOG_LEVEL", logging.GetLevel()},
	}
}

// prepareDirs resolves the configured directories and decides whether
// transcoding can run.
func (c *Config) prepareDirs() error {
	for _, dir := range []struct {
		name string
		path *string
	}{
		{"media", &c.MediaDir},
		{"cache", &c.CacheDir},
		{"database", &c.DatabaseDir},
	} {
		abs, err := filepath.Abs(*dir.path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s directory path: %w", dir.name, err)
		}
		*dir.path = abs
		logging.Info("  %-9s %s", dir.name+":", abs)
	}

	c.DatabasePath = filepath.Join(c.DatabaseDir, "media.db")
	c.TranscodeDir = filepath.Join(c.CacheDir, "transcoded")

	if info, err := os.Stat(c.MediaDir); err != nil || !info.IsDir() {
		logging.Warn("  Media directory %s is not a readable directory", c.MediaDir)
	}

	if err := os.MkdirAll(c.DatabaseDir, 0o755); err != nil {
		return fmt.Errorf("database directory error: %w", err)
	}
	if err := testWriteAccess(c.DatabaseDir); err != nil {
		return fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	c.TranscodingEnabled = setupOptionalDir(c.TranscodeDir, "transcoding")
	return nil
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory, %s disabled: %v", name, name, err)
		return false
	}
	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable, %s disabled: %v", name, name, err)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
