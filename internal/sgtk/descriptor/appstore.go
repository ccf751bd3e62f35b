package descriptor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/studiopipe/sgtk/internal/sgtk/archive"
	"github.com/studiopipe/sgtk/internal/sgtk/cache"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

const appStoreFamily = "app_store"

// appStoreDescriptor resolves bundles registered in the central app
// store. Versions are a metadata query against the site; payloads are
// tar.gz attachments extracted into the cache.
type appStoreDescriptor struct {
	ioBase
	env     Env
	name    string
	version string
}

func newAppStoreDescriptor(env Env, d Dict) (IODescriptor, error) {
	name := d[KeyName]
	version := d[KeyVersion]
	return &appStoreDescriptor{
		ioBase:  newIOBase(d, env.Roots, appStoreFamily, name, version),
		env:     env,
		name:    name,
		version: version,
	}, nil
}

// EnsureLocal downloads the bundle iff it is not already cached.
func (a *appStoreDescriptor) EnsureLocal(ctx context.Context) error {
	return a.ensureVia(ctx, a.DownloadLocal)
}

// DownloadLocal fetches the tar.gz payload from the app store and
// publishes it through the staging protocol.
func (a *appStoreDescriptor) DownloadLocal(ctx context.Context) error {
	if a.version == "" {
		return fmt.Errorf("%w: %s", helpers.ErrVersionMissing, CanonicalURI(a.dict))
	}
	if a.env.Site == nil {
		return helpers.ErrSiteConnectionNil
	}

	err := cache.Populate(a.roots.Primary, a.WritePath(), func(staging string) error {
		return a.fetchAndExtract(ctx, staging)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", helpers.ErrDownloadFailed, CanonicalURI(a.dict), err)
	}
	a.resetFoundPath()
	return nil
}

// fetchAndExtract downloads the payload archive into staging and
// unpacks it there, removing the archive afterwards.
func (a *appStoreDescriptor) fetchAndExtract(ctx context.Context, staging string) error {
	archivePath := filepath.Join(staging, ".payload.tar.gz")
	//nolint:gosec // archivePath is inside the private staging directory.
	file, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	if err := a.env.Site.DownloadBundle(ctx, a.name, a.version, file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	if err := archive.ExtractTarGz(archivePath, staging); err != nil {
		return err
	}
	return os.Remove(archivePath)
}

// FindLatestVersion queries registered versions from the site.
func (a *appStoreDescriptor) FindLatestVersion(ctx context.Context, pattern string) (Dict, error) {
	if a.env.Site == nil {
		return nil, helpers.ErrSiteConnectionNil
	}
	versions, err := a.env.Site.BundleVersions(ctx, a.name)
	if err != nil {
		return nil, err
	}
	latest, err := LatestVersion(versions, pattern)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	return a.dict.WithVersion(latest), nil
}

// FindLatestCachedVersion picks the newest cached version.
func (a *appStoreDescriptor) FindLatestCachedVersion(pattern string) (Dict, bool, error) {
	latest, ok, err := a.latestCachedVersion(pattern)
	if err != nil || !ok {
		return nil, false, err
	}
	return a.dict.WithVersion(latest), true, nil
}

// IsImmutable is true: app store releases never change once published.
func (a *appStoreDescriptor) IsImmutable() bool {
	return true
}
