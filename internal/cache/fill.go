package cache

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"media-library/internal/metrics"
)

var errFillClosed = errors.New("cache fill already closed")

// Fill is an in-progress write of one cache artifact. Bytes go to a temp
// file that becomes visible under the final path only on Commit.
type Fill struct {
	m     *Manager
	key   string
	final string
	tmp   string
	f     *os.File

	once    sync.Once
	err     error
	written int64
	closed  bool
}

// Write appends to the temp file.
func (f *Fill) Write(p []byte) (int, error) {
	if f.closed {
		return 0, errFillClosed
	}
	n, err := f.f.Write(p)
	f.written += int64(n)
	return n, err
}

// Written returns the number of bytes written so far.
func (f *Fill) Written() int64 {
	return f.written
}

// TempPath returns the temp file path.
func (f *Fill) TempPath() string {
	return f.tmp
}

// FinalPath returns the path the artifact is promoted to.
func (f *Fill) FinalPath() string {
	return f.final
}

// Commit flushes the temp file to disk and renames it onto the final path.
// Once Commit or Abort has run, later calls return the first result.
func (f *Fill) Commit() error {
	f.once.Do(func() {
		f.closed = true
		defer f.m.release(f.key)

		if err := f.f.Sync(); err != nil {
			f.f.Close()
			os.Remove(f.tmp)
			f.err = fmt.Errorf("sync temp file: %w", err)
			return
		}
		if err := f.f.Close(); err != nil {
			os.Remove(f.tmp)
			f.err = fmt.Errorf("close temp file: %w", err)
			return
		}
		if err := os.Rename(f.tmp, f.final); err != nil {
			os.Remove(f.tmp)
			f.err = fmt.Errorf("promote cache file: %w", err)
			return
		}
		metrics.CachePromotionsTotal.Inc()
		log.Debug("Promoted %s (%d bytes)", f.final, f.written)
	})
	return f.err
}

// Abort discards the temp file. It is a no-op after Commit.
func (f *Fill) Abort() {
	f.once.Do(func() {
		f.closed = true
		defer f.m.release(f.key)

		f.f.Close()
		if err := os.Remove(f.tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to remove temp file %s: %v", f.tmp, err)
		}
		f.err = errFillClosed
	})
}
