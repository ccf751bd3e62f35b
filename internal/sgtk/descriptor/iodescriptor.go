package descriptor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/studiopipe/sgtk/internal/sgtk/cache"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

// IODescriptor is the per-source backend capability set. One
// implementation exists per descriptor type; instances are memoized by
// the factory so structurally identical requests share one in-process
// exists-local cache.
type IODescriptor interface {
	// Dict returns a copy of the location dict the backend was built from.
	Dict() Dict
	// ExistsLocal reports whether the payload is in any cache root.
	// Filesystem check only, never network.
	ExistsLocal() bool
	// GetPath returns the resolved local path, or "" when not cached.
	GetPath() string
	// WritePath returns the primary-root destination downloads publish
	// to, or "" for backends that do not cache.
	WritePath() string
	// EnsureLocal downloads the payload iff it is not already cached.
	EnsureLocal(ctx context.Context) error
	// DownloadLocal unconditionally fetches and publishes the payload.
	DownloadLocal(ctx context.Context) error
	// FindLatestVersion queries the source for the newest version
	// matching an optional pattern and returns the corresponding dict.
	FindLatestVersion(ctx context.Context, pattern string) (Dict, error)
	// FindLatestCachedVersion is FindLatestVersion restricted to
	// versions already present in a cache root; ok is false when no
	// cached version satisfies the pattern.
	FindLatestCachedVersion(pattern string) (d Dict, ok bool, err error)
	// Copy recursively copies the payload to dest.
	Copy(dest string) error
	// IsImmutable reports whether the payload is version pinned and
	// owned by its source of truth.
	IsImmutable() bool
}

// ioBase carries the cache-location logic shared by all caching
// backends: ordered root search, path memoization, cached-version
// enumeration, and payload copy.
type ioBase struct {
	dict     Dict
	roots    cache.Roots
	family   string
	segments []string

	mu        sync.Mutex
	foundPath string
}

func newIOBase(d Dict, roots cache.Roots, family string, segments ...string) ioBase {
	return ioBase{dict: d, roots: roots, family: family, segments: segments}
}

// Dict returns a copy of the backing dict.
func (b *ioBase) Dict() Dict {
	return b.dict.Clone()
}

// GetPath returns the first cache location holding the payload, "" when
// absent. The hit is memoized for the backend's lifetime; cache entries
// are only ever created, never removed, while a process holds them.
func (b *ioBase) GetPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.foundPath != "" {
		return b.foundPath
	}
	if len(b.segments) == 0 || b.segments[len(b.segments)-1] == "" {
		return ""
	}
	b.foundPath = b.roots.FirstExisting(b.family, b.segments...)
	return b.foundPath
}

// ExistsLocal reports whether the payload is cached anywhere.
func (b *ioBase) ExistsLocal() bool {
	return b.GetPath() != ""
}

// WritePath returns the publish destination under the primary root.
func (b *ioBase) WritePath() string {
	if len(b.segments) == 0 || b.segments[len(b.segments)-1] == "" {
		return ""
	}
	return b.roots.WritePath(b.family, b.segments...)
}

// Copy copies the cached payload to dest, VCS metadata included.
func (b *ioBase) Copy(dest string) error {
	path := b.GetPath()
	if path == "" {
		return fmt.Errorf("%w: %s", helpers.ErrDescriptorNotCached, CanonicalURI(b.dict))
	}
	return cache.CopyTree(path, dest)
}

// ensureVia implements the idempotent EnsureLocal contract on top of a
// backend's DownloadLocal.
func (b *ioBase) ensureVia(ctx context.Context, download func(context.Context) error) error {
	if b.ExistsLocal() {
		return nil
	}
	return download(ctx)
}

// cachedVersions lists version directories present for this bundle in
// any cache root. Presence of the directory, not its manifest, is what
// counts as cached.
func (b *ioBase) cachedVersions() []string {
	if len(b.segments) == 0 {
		return nil
	}
	prefix := b.segments[:len(b.segments)-1]
	seen := make(map[string]bool)
	var versions []string

	parents := b.roots.PathsFor(b.family, prefix...)
	if len(prefix) == 0 {
		parents = b.roots.PathsFor(b.family)
	}
	for _, parent := range parents {
		entries, err := os.ReadDir(parent)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() || seen[entry.Name()] {
				continue
			}
			seen[entry.Name()] = true
			versions = append(versions, entry.Name())
		}
	}
	return versions
}

// latestCachedVersion picks the newest cached version matching pattern.
func (b *ioBase) latestCachedVersion(pattern string) (string, bool, error) {
	versions := b.cachedVersions()
	if len(versions) == 0 {
		return "", false, nil
	}
	latest, err := LatestVersion(versions, pattern)
	if err != nil {
		// No cached version satisfying the pattern is a normal miss,
		// not an error; a malformed pattern still surfaces.
		if errors.Is(err, helpers.ErrNoVersionMatchesPattern) {
			return "", false, nil
		}
		return "", false, err
	}
	return latest, true, nil
}

// resetFoundPath discards a memoized path; used after a forced download.
func (b *ioBase) resetFoundPath() {
	b.mu.Lock()
	b.foundPath = ""
	b.mu.Unlock()
}

// dirExists reports whether path is an existing directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ensureParent creates the parent directory of path.
func ensureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), helpers.DirMod)
}
