package memory

import (
	"math"
	"runtime"
	"runtime/debug"

	"github.com/dustin/go-humanize"
)

// Snapshot is the Go heap usage against the soft memory limit.
type Snapshot struct {
	HeapAlloc uint64  `json:"heapAlloc"`
	Heap      string  `json:"heap"`
	Limit     int64   `json:"limit,omitempty"`
	Usage     float64 `json:"usage,omitempty"` // HeapAlloc / Limit
}

// Sample reads the current heap size. Limit is 0 when no GOMEMLIMIT is
// in effect.
func Sample() Snapshot {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	s := Snapshot{
		HeapAlloc: stats.HeapAlloc,
		Heap:      humanize.IBytes(stats.HeapAlloc),
	}
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
		s.Limit = limit
		s.Usage = float64(stats.HeapAlloc) / float64(limit)
	}
	return s
}
