package descriptor

import (
	"context"
	"fmt"

	"github.com/studiopipe/sgtk/internal/sgtk/cache"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
	"github.com/studiopipe/sgtk/internal/sgtk/platform"
)

const manualFamily = "manual"

// resolveLocalPath returns the local directory a path-style dict points
// at: the plain "path" field when present, otherwise the entry of the
// platform path triple matching the running OS. Empty when the dict
// carries no usable path for this platform.
func resolveLocalPath(d Dict) string {
	if path := d[KeyPath]; path != "" {
		return platform.Sanitize(path)
	}
	triple := platform.PathTriple{
		Windows: d[KeyWindowsPath],
		Mac:     d[KeyMacPath],
		Linux:   d[KeyLinuxPath],
	}
	return platform.Sanitize(triple.Current())
}

// pathDescriptor points straight at a directory on disk and bypasses
// the bundle cache entirely. It backs both the "path" and "dev" types;
// dev is the same mechanism under a name that signals work in progress.
type pathDescriptor struct {
	dict      Dict
	localPath string
}

func newPathDescriptor(_ Env, d Dict) (IODescriptor, error) {
	localPath := resolveLocalPath(d)
	if localPath == "" {
		return nil, fmt.Errorf("%w: %s descriptor needs %q or a platform path",
			helpers.ErrDescriptorFieldMissing, d.Type(), KeyPath)
	}
	return &pathDescriptor{dict: d, localPath: localPath}, nil
}

// Dict returns a copy of the backing dict.
func (p *pathDescriptor) Dict() Dict {
	return p.dict.Clone()
}

// ExistsLocal reports whether the target directory exists.
func (p *pathDescriptor) ExistsLocal() bool {
	return dirExists(p.localPath)
}

// GetPath returns the target directory, or "" when it does not exist.
// The check is never memoized: the directory is under user control and
// may appear or vanish at any time.
func (p *pathDescriptor) GetPath() string {
	if !dirExists(p.localPath) {
		return ""
	}
	return p.localPath
}

// WritePath is "" because path descriptors never populate the cache.
func (p *pathDescriptor) WritePath() string {
	return ""
}

// EnsureLocal verifies the directory exists; there is nothing to fetch.
func (p *pathDescriptor) EnsureLocal(context.Context) error {
	if !p.ExistsLocal() {
		return fmt.Errorf("%w: %s", helpers.ErrDescriptorNotCached, p.localPath)
	}
	return nil
}

// DownloadLocal is EnsureLocal: the payload has no remote source.
func (p *pathDescriptor) DownloadLocal(ctx context.Context) error {
	return p.EnsureLocal(ctx)
}

// FindLatestVersion returns the descriptor unchanged; a directory on
// disk has exactly one version, whatever is in it right now.
func (p *pathDescriptor) FindLatestVersion(_ context.Context, pattern string) (Dict, error) {
	if pattern != "" {
		return nil, fmt.Errorf("%w: %s descriptors carry no version history",
			helpers.ErrInvalidVersionPattern, p.dict.Type())
	}
	return p.dict.Clone(), nil
}

// FindLatestCachedVersion reports the directory itself when it exists.
func (p *pathDescriptor) FindLatestCachedVersion(pattern string) (Dict, bool, error) {
	if pattern != "" {
		return nil, false, nil
	}
	if !p.ExistsLocal() {
		return nil, false, nil
	}
	return p.dict.Clone(), true, nil
}

// Copy copies the target directory to dest.
func (p *pathDescriptor) Copy(dest string) error {
	path := p.GetPath()
	if path == "" {
		return fmt.Errorf("%w: %s", helpers.ErrDescriptorNotCached, p.localPath)
	}
	return cache.CopyTree(path, dest)
}

// IsImmutable is false: the directory content changes out of band.
func (p *pathDescriptor) IsImmutable() bool {
	return false
}

// manualDescriptor addresses bundles placed into the cache by hand, for
// sites whose payloads arrive outside any supported transport.
type manualDescriptor struct {
	ioBase
}

func newManualDescriptor(env Env, d Dict) (IODescriptor, error) {
	return &manualDescriptor{
		ioBase: newIOBase(d, env.Roots, manualFamily, d[KeyName], d[KeyVersion]),
	}, nil
}

// EnsureLocal verifies the hand-placed payload is present.
func (m *manualDescriptor) EnsureLocal(context.Context) error {
	if m.ExistsLocal() {
		return nil
	}
	return fmt.Errorf("%w: %s must be placed at %s by hand",
		helpers.ErrDescriptorNotCached, CanonicalURI(m.dict), m.WritePath())
}

// DownloadLocal always fails: manual payloads have no transport.
func (m *manualDescriptor) DownloadLocal(context.Context) error {
	return fmt.Errorf("%w: %s has no download source",
		helpers.ErrDownloadFailed, CanonicalURI(m.dict))
}

// FindLatestVersion is cache-only for manual payloads.
func (m *manualDescriptor) FindLatestVersion(_ context.Context, pattern string) (Dict, error) {
	d, ok, err := m.FindLatestCachedVersion(pattern)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", helpers.ErrNoVersionsFound, CanonicalURI(m.dict))
	}
	return d, nil
}

// FindLatestCachedVersion picks the newest hand-placed version.
func (m *manualDescriptor) FindLatestCachedVersion(pattern string) (Dict, bool, error) {
	latest, ok, err := m.latestCachedVersion(pattern)
	if err != nil || !ok {
		return nil, false, err
	}
	return m.dict.WithVersion(latest), true, nil
}

// IsImmutable is false: nothing stops the payload being replaced.
func (m *manualDescriptor) IsImmutable() bool {
	return false
}
