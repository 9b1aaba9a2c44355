package memory

import (
	"math"
	"runtime/debug"
	"testing"
)

// restoreLimit puts back the process-wide memory limit after a test.
func restoreLimit(t *testing.T) {
	t.Helper()
	prev := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })
}

func TestConfigureFromEnv_NoLimit(t *testing.T) {
	restoreLimit(t)
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "")

	res := ConfigureFromEnv()
	if res.Configured || res.Source != "none" {
		t.Errorf("result = %+v, want unconfigured", res)
	}
}

func TestConfigureFromEnv_MemoryLimit(t *testing.T) {
	restoreLimit(t)
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "1073741824")
	t.Setenv("MEMORY_RATIO", "0.25")

	res := ConfigureFromEnv()
	if !res.Configured || res.Source != "MEMORY_LIMIT" {
		t.Fatalf("result = %+v", res)
	}
	if res.GoMemLimit != 268435456 {
		t.Errorf("GoMemLimit = %d, want 256MiB", res.GoMemLimit)
	}
	if got := debug.SetMemoryLimit(-1); got != 268435456 {
		t.Errorf("runtime limit = %d, want 256MiB", got)
	}
}

func TestConfigureFromEnv_InvalidLimit(t *testing.T) {
	restoreLimit(t)
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "lots")

	if res := ConfigureFromEnv(); res.Configured {
		t.Errorf("invalid MEMORY_LIMIT should not configure, got %+v", res)
	}
}

func TestParseRatio(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", DefaultMemoryRatio},
		{"0.75", 0.75},
		{"1", 1},
		{"0", DefaultMemoryRatio},
		{"1.5", DefaultMemoryRatio},
		{"half", DefaultMemoryRatio},
	}
	for _, tt := range tests {
		if got := parseRatio(tt.in); got != tt.want {
			t.Errorf("parseRatio(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSample(t *testing.T) {
	restoreLimit(t)

	debug.SetMemoryLimit(math.MaxInt64)
	s := Sample()
	if s.HeapAlloc == 0 || s.Heap == "" {
		t.Errorf("snapshot = %+v, want heap usage", s)
	}
	if s.Limit != 0 || s.Usage != 0 {
		t.Errorf("no limit set, got limit=%d usage=%v", s.Limit, s.Usage)
	}

	debug.SetMemoryLimit(1 << 40)
	s = Sample()
	if s.Limit != 1<<40 || s.Usage <= 0 {
		t.Errorf("with limit: %+v", s)
	}
}
