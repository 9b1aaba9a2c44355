package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel represents the severity of a log message
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelTags = [...]string{
	LevelDebug: "[DEBUG] ",
	LevelInfo:  "[INFO] ",
	LevelWarn:  "[WARN] ",
	LevelError: "[ERROR] ",
}

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(levelFromEnv()))
}

// levelFromEnv reads DEBUG, which wins when truthy, then LOG_LEVEL.
func levelFromEnv() LogLevel {
	switch strings.ToLower(os.Getenv("DEBUG")) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}
	return ParseLevel(os.Getenv("LOG_LEVEL"))
}

// ParseLevel converts a level name into a LogLevel. Unknown names map to LevelInfo.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetLevel overrides the level derived from the environment.
func SetLevel(level LogLevel) {
	currentLevel.Store(int32(level))
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func logf(level LogLevel, component, format string, args ...interface{}) {
	if GetLevel() > level {
		return
	}
	log.Print(levelTags[level] + component + fmt.Sprintf(format, args...))
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) { logf(LevelDebug, "", format, args...) }

// Info logs an info message
func Info(format string, args ...interface{}) { logf(LevelInfo, "", format, args...) }

// Warn logs a warning message
func Warn(format string, args ...interface{}) { logf(LevelWarn, "", format, args...) }

// Error logs an error message
func Error(format string, args ...interface{}) { logf(LevelError, "", format, args...) }

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

// Logger tags every message with a component name, e.g. "[INFO] [pipeline] ...".
type Logger struct {
	component string
}

// For returns a Logger for the named component.
func For(component string) Logger {
	return Logger{component: "[" + component + "] "}
}

func (l Logger) Debug(format string, args ...interface{}) {
	logf(LevelDebug, l.component, format, args...)
}

func (l Logger) Info(format string, args ...interface{}) {
	logf(LevelInfo, l.component, format, args...)
}

func (l Logger) Warn(format string, args ...interface{}) {
	logf(LevelWarn, l.component, format, args...)
}

func (l Logger) Error(format string, args ...interface{}) {
	logf(LevelError, l.component, format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	if l >= LevelDebug && l <= LevelError {
		return strings.ToLower(strings.Trim(levelTags[l], "[] "))
	}
	return fmt.Sprintf("unknown(%d)", l)
}
