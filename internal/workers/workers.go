package workers

import (
	"runtime"
	"strconv"
	"strings"
)

// cpusPerTranscode is how many CPUs one libx264 job is allowed to saturate
// before another job is admitted.
const cpusPerTranscode = 4

// Count returns a worker count of multiplier × GOMAXPROCS, at least 1 and
// at most limit (0 means no limit). GOMAXPROCS follows container CPU
// limits since Go 1.19.
func Count(multiplier float64, limit int) int {
	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForTranscode returns the number of concurrent transcodes the host can
// sustain: one per four CPUs, never fewer than one.
func ForTranscode(limit int) int {
	return Count(1.0/cpusPerTranscode, limit)
}

// ParseLimit interprets a concurrency setting. "auto" (or empty) sizes from
// the CPU count; a positive integer is used as is. ok is false for any
// other value.
func ParseLimit(value string, limit int) (n int, ok bool) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" || value == "auto" {
		return ForTranscode(limit), true
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, false
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n, true
}
