package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// w3cFields is the #Fields directive for the lines written by Logger.
// x-ttfb is milliseconds until the status line was sent, which for piped
// streams is roughly the ffmpeg startup time.
const w3cFields = "#Fields: date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken x-ttfb x-stream-mode cs(Range) cs(User-Agent)"

// accessRecord captures what the access log needs from a response.
type accessRecord struct {
	http.ResponseWriter
	start       time.Time
	status      int
	bytes       int64
	firstByte   time.Duration
	wroteHeader bool
}

func newAccessRecord(w http.ResponseWriter, start time.Time) *accessRecord {
	return &accessRecord{ResponseWriter: w, start: start, status: http.StatusOK}
}

func (a *accessRecord) WriteHeader(code int) {
	if a.wroteHeader {
		return
	}
	a.wroteHeader = true
	a.status = code
	a.firstByte = time.Since(a.start)
	a.ResponseWriter.WriteHeader(code)
}

func (a *accessRecord) Write(b []byte) (int, error) {
	if !a.wroteHeader {
		a.WriteHeader(http.StatusOK)
	}
	n, err := a.ResponseWriter.Write(b)
	a.bytes += int64(n)
	return n, err
}

func (a *accessRecord) Flush() {
	if f, ok := a.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (a *accessRecord) Unwrap() http.ResponseWriter {
	return a.ResponseWriter
}

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	SkipPaths       []string
	LogSegments     bool
	LogHealthChecks bool
}

// DefaultLoggingConfig logs everything except HLS segments.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{LogHealthChecks: true}
}

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// Logger returns HTTP access log middleware writing W3C Extended Log
// Format lines through the standard logger.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	var header sync.Once

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			rec := newAccessRecord(w, time.Now())
			next.ServeHTTP(rec, r)

			header.Do(func() { log.Println(w3cFields) })
			//nolint:gosec // G706: every request-controlled field goes through w3cField.
			log.Println(formatAccess(r, rec, time.Now().UTC()))
		})
	}
}

// formatAccess renders one access log line.
func formatAccess(r *http.Request, rec *accessRecord, now time.Time) string {
	return fmt.Sprintf("%s %s %s %s %s %d %d %d %d %s %s %s",
		now.Format("2006-01-02 15:04:05"),
		w3cField(getClientIP(r)),
		w3cField(r.Method),
		w3cField(r.URL.Path),
		w3cField(r.URL.RawQuery),
		rec.status,
		rec.bytes,
		time.Since(rec.start).Milliseconds(),
		rec.firstByte.Milliseconds(),
		w3cField(rec.Header().Get("X-Stream-Mode")),
		w3cField(r.Header.Get("Range")),
		w3cField(r.Header.Get("User-Agent")),
	)
}

// w3cField makes a request-controlled value safe for one log field.
// Control characters that could forge lines or drive a terminal are
// removed, empty values become "-", and values containing spaces or
// quotes are quoted with doubled inner quotes.
func w3cField(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)

	if s == "" {
		return "-"
	}
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, skip := range config.SkipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	if !config.LogHealthChecks && healthCheckPaths[path] {
		return true
	}
	if !config.LogSegments && isSegmentPath(path) {
		return true
	}
	return false
}

// isSegmentPath matches /media/{id}/stream/{quality}/{n}.ts.
func isSegmentPath(path string) bool {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) != 5 || parts[0] != "media" || parts[2] != "stream" {
		return false
	}
	base, ok := strings.CutSuffix(parts[4], ".ts")
	return ok && isDigits(base)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
