// Package cache computes on-disk bundle cache locations and implements
// the concurrency-safe population protocol shared by all IO descriptor
// backends.
package cache

import (
	"os"
	"path/filepath"

	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

// Roots describes the configured bundle cache search path: zero or more
// read-only fallback roots plus the primary root that receives writes.
type Roots struct {
	Primary   string
	Fallbacks []string
}

// PathsFor returns candidate bundle paths in search order: fallback
// roots first (oldest configured first), then the primary root, then the
// primary root's legacy layout kept for caches written by older
// toolkits. The result is deterministic for a given descriptor so that
// concurrent processes agree on every location.
func (r Roots) PathsFor(family string, segments ...string) []string {
	paths := make([]string, 0, len(r.Fallbacks)+2)
	for _, root := range r.Fallbacks {
		if root == "" {
			continue
		}
		paths = append(paths, bundlePath(root, family, segments))
	}
	if r.Primary != "" {
		paths = append(paths, bundlePath(r.Primary, family, segments))
		paths = append(paths, legacyBundlePath(r.Primary, family, segments))
	}
	return paths
}

// WritePath returns the current-format path under the primary root.
// Downloads always publish here regardless of where reads succeed.
func (r Roots) WritePath(family string, segments ...string) string {
	if r.Primary == "" {
		return ""
	}
	return bundlePath(r.Primary, family, segments)
}

// FirstExisting returns the first candidate path that exists on disk,
// or "" when the bundle is not cached anywhere.
func (r Roots) FirstExisting(family string, segments ...string) string {
	for _, path := range r.PathsFor(family, segments...) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
	}
	return ""
}

// bundlePath builds the current cache layout <root>/<family>/<segments...>.
func bundlePath(root, family string, segments []string) string {
	parts := append([]string{root, family}, segments...)
	return filepath.Join(parts...)
}

// legacyBundlePath builds the pre-cache-root layout that kept bundles
// under an "install" folder.
func legacyBundlePath(root, family string, segments []string) string {
	parts := append([]string{root, "install", family}, segments...)
	return filepath.Join(parts...)
}

// RelativePath returns the cache-relative form of an absolute bundle
// path under root, used as the usage-database key.
func RelativePath(root, bundlePath string) (string, error) {
	if root == "" {
		return "", helpers.ErrCacheRootEmpty
	}
	return filepath.Rel(root, bundlePath)
}
