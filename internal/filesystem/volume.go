package filesystem

import (
	"path/filepath"
	"sort"
	"strings"
)

// unknownVolume labels paths outside every configured mount.
const unknownVolume = "unknown"

// VolumeResolver names the mount a path lives on, for metric labels.
// The deepest matching mount wins.
type VolumeResolver struct {
	roots []volumeRoot
}

type volumeRoot struct {
	dir  string // cleaned absolute directory
	name string
}

// NewVolumeResolver builds a resolver from volume name to directory, e.g.
// {"media": "/media", "cache": "/cache", "database": "/database"}.
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	roots := make([]volumeRoot, 0, len(volumes))
	for name, dir := range volumes {
		roots = append(roots, volumeRoot{dir: absClean(dir), name: name})
	}
	sort.Slice(roots, func(i, j int) bool {
		if len(roots[i].dir) != len(roots[j].dir) {
			return len(roots[i].dir) > len(roots[j].dir)
		}
		return roots[i].name < roots[j].name
	})
	return &VolumeResolver{roots: roots}
}

// Resolve returns the volume name for path, or "unknown".
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return unknownVolume
	}
	p := absClean(path)
	for _, root := range vr.roots {
		if p == root.dir || strings.HasPrefix(p, root.dir+string(filepath.Separator)) {
			return root.name
		}
	}
	return unknownVolume
}

func absClean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the resolver used when a RetryConfig does
// not carry its own. Call once at startup.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}
