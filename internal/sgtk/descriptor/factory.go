package descriptor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/studiopipe/sgtk/internal/sgtk/cache"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
	"github.com/studiopipe/sgtk/internal/sgtk/site"
	"github.com/studiopipe/sgtk/internal/sgtk/usage"
)

// Env carries the runtime dependencies handed to every backend
// constructor: the cache search roots and the site connection, which
// may be nil for offline use.
type Env struct {
	Roots cache.Roots
	Site  site.Connection
}

// Constructor builds a backend for one descriptor type.
type Constructor func(env Env, d Dict) (IODescriptor, error)

// Hook lets a site take over cache population for selected bundles,
// e.g. to source payloads from an internal mirror instead of the
// public transport. The destination is a private staging directory;
// publication into the cache stays with the factory.
type Hook interface {
	// CanCacheBundle reports whether the hook wants to populate this
	// bundle itself.
	CanCacheBundle(d *Descriptor) bool
	// PopulateBundleCacheEntry writes the full bundle payload into
	// destination.
	PopulateBundleCacheEntry(ctx context.Context, destination string, d *Descriptor) error
}

// Factory builds Descriptor values and memoizes them per canonical URI
// so that structurally identical requests share one backend and its
// exists-local state.
type Factory struct {
	env      Env
	registry map[string]Constructor

	mu      sync.Mutex
	memo    map[string]*Descriptor
	hook    Hook
	tracker *usage.Tracker
}

// NewFactory builds a factory with the built-in descriptor types
// registered.
func NewFactory(env Env) *Factory {
	return &Factory{
		env: env,
		registry: map[string]Constructor{
			TypeAppStore:       newAppStoreDescriptor,
			TypeGit:            newGitTagDescriptor,
			TypeGitBranch:      newGitBranchDescriptor,
			TypePath:           newPathDescriptor,
			TypeDev:            newPathDescriptor,
			TypeManual:         newManualDescriptor,
			TypePerforceChange: newPerforceChangeDescriptor,
			TypePerforceLabel:  newPerforceLabelDescriptor,
		},
		memo: make(map[string]*Descriptor),
	}
}

// Register adds or replaces the constructor for a descriptor type.
// Registering wipes the memo: existing descriptors of that type would
// otherwise keep serving the old backend.
func (f *Factory) Register(typeName string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registry[typeName] = ctor
	f.memo = make(map[string]*Descriptor)
}

// SetHook installs the cache-population hook.
func (f *Factory) SetHook(hook Hook) {
	f.mu.Lock()
	f.hook = hook
	f.mu.Unlock()
}

// SetUsageTracker installs the tracker that records bundle accesses.
func (f *Factory) SetUsageTracker(tracker *usage.Tracker) {
	f.mu.Lock()
	f.tracker = tracker
	f.mu.Unlock()
}

// CreateDescriptor builds (or returns the memoized) descriptor for a
// location dict.
func (f *Factory) CreateDescriptor(bundleType BundleType, d Dict) (*Descriptor, error) {
	if err := validateDict(d); err != nil {
		return nil, err
	}

	key := bundleType.String() + "|" + CanonicalURI(d)
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.memo[key]; ok {
		return existing, nil
	}

	ctor, ok := f.registry[strings.TrimSpace(d.Type())]
	if !ok {
		return nil, fmt.Errorf("%w: %q", helpers.ErrDescriptorTypeUnknown, d.Type())
	}
	io, err := ctor(f.env, d.Clone())
	if err != nil {
		return nil, err
	}

	desc := &Descriptor{
		factory:    f,
		bundleType: bundleType,
		dict:       d.Clone(),
		io:         io,
	}
	f.memo[key] = desc
	return desc, nil
}

// CreateDescriptorFromURI parses a descriptor URI and builds the
// descriptor for it.
func (f *Factory) CreateDescriptorFromURI(bundleType BundleType, uri string) (*Descriptor, error) {
	d, err := URIToDict(uri)
	if err != nil {
		return nil, err
	}
	return f.CreateDescriptor(bundleType, d)
}

// hookFor returns the hook when it claims this bundle and the bundle
// can be published through the cache.
func (f *Factory) hookFor(d *Descriptor) Hook {
	f.mu.Lock()
	hook := f.hook
	f.mu.Unlock()
	if hook == nil || d.io.WritePath() == "" || !hook.CanCacheBundle(d) {
		return nil
	}
	return hook
}

// trackAccess records a cache hit against the usage database. Tracking
// is best effort: a broken usage database never blocks bundle access.
func (f *Factory) trackAccess(d *Descriptor) {
	f.mu.Lock()
	tracker := f.tracker
	f.mu.Unlock()
	if tracker == nil {
		return
	}
	path := d.io.GetPath()
	if path == "" {
		return
	}
	relPath, err := cache.RelativePath(tracker.Root(), path)
	if err != nil || strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
		return
	}
	_ = tracker.Track(relPath)
}

// Descriptor binds one bundle location to its IO backend. It is the
// value the rest of the system passes around; all methods are safe for
// concurrent use.
type Descriptor struct {
	factory    *Factory
	bundleType BundleType
	dict       Dict
	io         IODescriptor
}

// URI returns the canonical URI for this descriptor.
func (d *Descriptor) URI() string {
	return CanonicalURI(d.dict)
}

// Dict returns a copy of the location dict.
func (d *Descriptor) Dict() Dict {
	return d.dict.Clone()
}

// BundleType returns what kind of bundle this descriptor refers to.
func (d *Descriptor) BundleType() BundleType {
	return d.bundleType
}

// Version returns the pinned version, "" when resolving latest.
func (d *Descriptor) Version() string {
	return d.dict[KeyVersion]
}

// ExistsLocal reports whether the payload is available locally.
func (d *Descriptor) ExistsLocal() bool {
	return d.io.ExistsLocal()
}

// GetPath returns the local payload path, "" when not available.
func (d *Descriptor) GetPath() string {
	return d.io.GetPath()
}

// EnsureLocal makes the payload available locally, downloading it if
// needed, and records the access in the usage database. When a cache
// hook claims the bundle, population goes through the hook instead of
// the backend transport.
func (d *Descriptor) EnsureLocal(ctx context.Context) error {
	if hook := d.factory.hookFor(d); hook != nil {
		if err := d.ensureViaHook(ctx, hook); err != nil {
			return err
		}
		d.factory.trackAccess(d)
		return nil
	}
	if err := d.io.EnsureLocal(ctx); err != nil {
		return err
	}
	d.factory.trackAccess(d)
	return nil
}

func (d *Descriptor) ensureViaHook(ctx context.Context, hook Hook) error {
	if d.io.ExistsLocal() {
		return nil
	}
	err := cache.Populate(d.factory.env.Roots.Primary, d.io.WritePath(), func(staging string) error {
		return hook.PopulateBundleCacheEntry(ctx, staging, d)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", helpers.ErrDownloadFailed, d.URI(), err)
	}
	return nil
}

// DownloadLocal unconditionally fetches the payload.
func (d *Descriptor) DownloadLocal(ctx context.Context) error {
	return d.io.DownloadLocal(ctx)
}

// FindLatestVersion queries the source for the newest version matching
// an optional pattern such as "v1.2.x" and returns its descriptor.
func (d *Descriptor) FindLatestVersion(ctx context.Context, pattern string) (*Descriptor, error) {
	latest, err := d.io.FindLatestVersion(ctx, pattern)
	if err != nil {
		return nil, err
	}
	return d.factory.CreateDescriptor(d.bundleType, latest)
}

// FindLatestCachedVersion is FindLatestVersion restricted to cached
// versions. It returns nil when nothing cached satisfies the pattern.
func (d *Descriptor) FindLatestCachedVersion(pattern string) (*Descriptor, error) {
	latest, ok, err := d.io.FindLatestCachedVersion(pattern)
	if err != nil || !ok {
		return nil, err
	}
	return d.factory.CreateDescriptor(d.bundleType, latest)
}

// Copy copies the local payload to dest.
func (d *Descriptor) Copy(dest string) error {
	return d.io.Copy(dest)
}

// IsImmutable reports whether the payload is pinned and owned by its
// source of truth. Mutable descriptors are re-checked by update logic;
// immutable ones are trusted once cached.
func (d *Descriptor) IsImmutable() bool {
	return d.io.IsImmutable()
}

// Manifest loads the payload's info.yml. The payload must be local.
func (d *Descriptor) Manifest() (*Manifest, error) {
	path := d.GetPath()
	if path == "" {
		return nil, fmt.Errorf("%w: %s", helpers.ErrDescriptorNotCached, d.URI())
	}
	return LoadManifest(path)
}
