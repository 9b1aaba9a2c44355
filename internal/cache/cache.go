package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"media-library/internal/filesystem"
	"media-library/internal/logging"
	"media-library/internal/metrics"
)

var (
	// ErrNotCached is returned by Open when no completed artifact exists.
	ErrNotCached = errors.New("variant not cached")
	// ErrFillInProgress is returned by Begin when another fill for the same
	// key has not finished yet.
	ErrFillInProgress = errors.New("cache fill already in progress")
	// ErrInvalidVariant is returned for variant names that would escape
	// the media directory.
	ErrInvalidVariant = errors.New("invalid cache variant")
)

const partialSuffix = ".partial"

var log = logging.For("cache")

// Manager stores processed media variants under a root directory sharded by
// a hash of the media id.
type Manager struct {
	root string

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates the cache root if needed and returns a manager for it.
func New(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &Manager{
		root:     root,
		inflight: make(map[string]struct{}),
	}, nil
}

// Root returns the cache root directory.
func (m *Manager) Root() string {
	return m.root
}

// Kind groups variants for metric labels: remux, segment or transcode.
func Kind(variant string) string {
	switch {
	case strings.HasPrefix(variant, "remux"):
		return "remux"
	case strings.HasPrefix(variant, "hls/"):
		return "segment"
	default:
		return "transcode"
	}
}

func extFor(variant string) string {
	switch {
	case strings.HasPrefix(variant, "hls/"):
		return ".ts"
	case strings.HasSuffix(variant, "-webm"):
		return ".webm"
	default:
		return ".mp4"
	}
}

func validVariant(variant string) bool {
	if variant == "" || strings.HasPrefix(variant, "/") || strings.Contains(variant, "\\") {
		return false
	}
	for _, part := range strings.Split(variant, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

// SegmentVariant is the variant key of one HLS segment.
func SegmentVariant(quality string, index int) string {
	return "hls/" + quality + "/" + strconv.Itoa(index)
}

func (m *Manager) mediaDir(mediaID int64) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(mediaID, 10)))
	h := hex.EncodeToString(sum[:2])
	return filepath.Join(m.root, h[:2], h[2:4], strconv.FormatInt(mediaID, 10))
}

// Path returns where the completed artifact for (mediaID, variant) lives,
// whether or not it exists yet.
func (m *Manager) Path(mediaID int64, variant string) string {
	return filepath.Join(m.mediaDir(mediaID), filepath.FromSlash(variant)+extFor(variant))
}

// Has reports whether a completed artifact exists. In-flight fills write to
// a temporary name and are never reported.
func (m *Manager) Has(mediaID int64, variant string) bool {
	if !validVariant(variant) {
		return false
	}
	info, err := filesystem.StatWithRetry(context.Background(), m.Path(mediaID, variant), filesystem.DefaultRetryConfig())
	hit := err == nil && info.Mode().IsRegular()

	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.CacheLookupsTotal.WithLabelValues(Kind(variant), result).Inc()
	return hit
}

// Open opens a completed artifact for range reads. The caller closes the
// returned file.
func (m *Manager) Open(mediaID int64, variant string) (*os.File, os.FileInfo, error) {
	if !validVariant(variant) {
		return nil, nil, ErrInvalidVariant
	}
	path := m.Path(mediaID, variant)
	f, err := filesystem.OpenWithRetry(context.Background(), path, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotCached
		}
		return nil, nil, fmt.Errorf("open cached %s: %w", variant, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat cached %s: %w", variant, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, ErrNotCached
	}
	return f, info, nil
}

func key(mediaID int64, variant string) string {
	return strconv.FormatInt(mediaID, 10) + ":" + variant
}

// Filling reports whether a fill for the key is in progress.
func (m *Manager) Filling(mediaID int64, variant string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inflight[key(mediaID, variant)]
	return ok
}

// Begin starts a fill for (mediaID, variant). Only one fill per key may be
// open at a time; the loser gets ErrFillInProgress.
func (m *Manager) Begin(mediaID int64, variant string) (*Fill, error) {
	if !validVariant(variant) {
		return nil, ErrInvalidVariant
	}
	k := key(mediaID, variant)

	m.mu.Lock()
	if _, busy := m.inflight[k]; busy {
		m.mu.Unlock()
		return nil, ErrFillInProgress
	}
	m.inflight[k] = struct{}{}
	m.mu.Unlock()

	final := m.Path(mediaID, variant)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		m.release(k)
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	tmp := final + "." + uuid.NewString() + partialSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		m.release(k)
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	log.Debug("Fill started for media %d variant %s", mediaID, variant)
	return &Fill{m: m, key: k, final: final, tmp: tmp, f: f}, nil
}

func (m *Manager) release(k string) {
	m.mu.Lock()
	delete(m.inflight, k)
	m.mu.Unlock()
}

// SweepPartials removes temp files left behind by a crash. Files belonging
// to fills that are open in this process are kept.
func (m *Manager) SweepPartials() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, partialSuffix) {
			return nil
		}
		if m.ownsTemp(path) {
			return nil
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			log.Warn("Failed to remove partial file %s: %v", path, rmErr)
			return nil
		}
		removed++
		metrics.CacheDiscardsTotal.WithLabelValues("sweep").Inc()
		return nil
	})
	if removed > 0 {
		log.Info("Removed %d partial cache files", removed)
	}
	return removed, err
}

// ownsTemp must be called with m.mu held.
func (m *Manager) ownsTemp(path string) bool {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 4 {
		return false
	}
	// <hh>/<hh>/<id>/<variant...>.<ext>.<uuid>.partial
	variant := strings.Join(parts[3:], "/")
	if i := strings.LastIndex(variant, "."); i >= 0 {
		variant = variant[:i] // .partial
	}
	if i := strings.LastIndex(variant, "."); i >= 0 {
		variant = variant[:i] // .<uuid>
	}
	if i := strings.LastIndex(variant, "."); i >= 0 {
		variant = variant[:i] // .<ext>
	}
	_, ok := m.inflight[parts[2]+":"+variant]
	return ok
}

// Clear deletes every completed artifact and returns the bytes freed.
// Temp files of in-flight fills are left for their owners.
func (m *Manager) Clear() (int64, error) {
	var freed int64
	var files int

	m.mu.Lock()
	defer m.mu.Unlock()

	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, partialSuffix) && m.ownsTemp(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if err := os.Remove(path); err != nil {
			log.Warn("Failed to remove %s: %v", path, err)
			return nil
		}
		freed += info.Size()
		files++
		return nil
	})

	log.Info("Cleared transcode cache: %d files, %s freed", files, humanize.Bytes(uint64(freed)))
	return freed, err
}

// Stats counts completed artifacts and their total size.
func (m *Manager) Stats() (int, int64, error) {
	var files int
	var size int64

	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, partialSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files++
		size += info.Size()
		return nil
	})
	return files, size, err
}
