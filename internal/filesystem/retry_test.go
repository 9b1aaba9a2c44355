package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

type recordingObserver struct {
	mu      sync.Mutex
	events  map[Event]int
	volumes []string
}

func (o *recordingObserver) ObserveEvent(_, volume string, e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events[e]++
	o.volumes = append(o.volumes, volume)
}

func (o *recordingObserver) ObserveDuration(string, string, float64) {}

func (o *recordingObserver) count(e Event) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.events[e]
}

func useObserver(t *testing.T) *recordingObserver {
	t.Helper()
	obs := &recordingObserver{events: make(map[Event]int)}
	prev := defaultObserver
	SetObserver(obs)
	t.Cleanup(func() { SetObserver(prev) })
	return obs
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.VolumeResolver != nil {
		t.Error("VolumeResolver should be nil by default")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"ESTALE error", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "open", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT error", syscall.ENOENT, false},
		{"generic error", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"media":    "/media",
		"cache":    "/cache",
		"database": "/database",
		"nested":   "/media/library/special",
	})

	tests := []struct {
		path string
		want string
	}{
		{"/media/movies/a.mkv", "media"},
		{"/media", "media"},
		{"/cache/transcoded/ab/cd/1/remux.mp4", "cache"},
		{"/database/media.db", "database"},
		{"/media/library/special/x.mp4", "nested"},
		{"/mediaother/x.mp4", "unknown"},
		{"/media/../cache/x.ts", "cache"},
		{"/tmp/x", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_NilResolver(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/media/x"); got != "unknown" {
		t.Errorf("nil resolver Resolve = %q, want unknown", got)
	}
}

func TestRetryConfig_ResolveVolume(t *testing.T) {
	prev := defaultResolver
	t.Cleanup(func() { SetDefaultVolumeResolver(prev) })

	SetDefaultVolumeResolver(NewVolumeResolver(map[string]string{"media": "/media"}))

	config := DefaultRetryConfig()
	if got := config.resolveVolume("/media/a.mp4"); got != "media" {
		t.Errorf("default resolver: got %q, want media", got)
	}

	config.VolumeResolver = NewVolumeResolver(map[string]string{"cache": "/media"})
	if got := config.resolveVolume("/media/a.mp4"); got != "cache" {
		t.Errorf("config resolver should win: got %q, want cache", got)
	}
}

func TestStatWithRetry_Success(t *testing.T) {
	obs := useObserver(t)
	path := filepath.Join(t.TempDir(), "movie.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(context.Background(), path, fastRetry())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 4 {
		t.Errorf("Size = %d, want 4", info.Size())
	}
	if obs.count(EventRetry) != 0 || obs.count(EventStale) != 0 {
		t.Errorf("no retries expected, got %v", obs.events)
	}
}

func TestStatWithRetry_NotExistFailsImmediately(t *testing.T) {
	obs := useObserver(t)

	_, err := StatWithRetry(context.Background(), filepath.Join(t.TempDir(), "missing"), fastRetry())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if n := obs.count(EventRetry); n != 0 {
		t.Errorf("non-stale errors must not retry, got %d attempts", n)
	}
}

func TestOpenWithRetry_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.mp4")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenWithRetry(context.Background(), path, fastRetry())
	if err != nil {
		t.Fatalf("OpenWithRetry() error = %v", err)
	}
	defer f.Close()

	buf := make([]byte, 7)
	if _, err := f.Read(buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "content" {
		t.Errorf("read %q, want content", buf)
	}
}

func TestWithRetry_RecoversFromStaleHandle(t *testing.T) {
	obs := useObserver(t)

	calls := 0
	got, err := withRetry(context.Background(), "stat", "/media/a.mp4", fastRetry(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, syscall.ESTALE
		}
		return 7, nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if got != 7 {
		t.Errorf("value = %d, want 7", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if obs.count(EventStale) != 2 || obs.count(EventRetry) != 2 || obs.count(EventRecovered) != 1 {
		t.Errorf("observer events = %v, want 2 stale, 2 retries, 1 recovery", obs.events)
	}
}

func TestWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	obs := useObserver(t)

	calls := 0
	_, err := withRetry(context.Background(), "open", "/media/a.mp4", fastRetry(), func() (int, error) {
		calls++
		return 0, syscall.ESTALE
	})
	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("expected ESTALE, got %v", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4 (1 + 3 retries)", calls)
	}
	if n := obs.count(EventExhausted); n != 1 {
		t.Errorf("exhausted = %d, want 1", n)
	}
	if n := obs.count(EventStale); n != 4 {
		t.Errorf("stale = %d, want 4", n)
	}
}

func TestWithRetry_StopsWhenContextEnds(t *testing.T) {
	obs := useObserver(t)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	config := RetryConfig{MaxRetries: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}
	done := make(chan error, 1)
	go func() {
		_, err := withRetry(ctx, "stat", "/media/a.mp4", config, func() (int, error) {
			calls++
			return 0, syscall.ESTALE
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, syscall.ESTALE) {
			t.Errorf("expected the stale error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("withRetry kept sleeping after cancel")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if n := obs.count(EventExhausted); n != 1 {
		t.Errorf("exhausted = %d, want 1", n)
	}
}
