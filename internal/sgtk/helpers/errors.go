package helpers

import "errors"

var (
	// ErrDescriptorURIPrefix indicates a descriptor URI is missing the sgtk prefix.
	ErrDescriptorURIPrefix = errors.New("descriptor uri must start with sgtk:descriptor:")
	// ErrDescriptorTypeEmpty indicates a descriptor has no type token.
	ErrDescriptorTypeEmpty = errors.New("descriptor type is empty")
	// ErrDescriptorTypeUnknown indicates a descriptor type has no registered backend.
	ErrDescriptorTypeUnknown = errors.New("unknown descriptor type")
	// ErrDescriptorFieldMissing indicates a required descriptor field is missing.
	ErrDescriptorFieldMissing = errors.New("missing required descriptor field")
	// ErrDescriptorFieldInvalid indicates a descriptor field value is malformed.
	ErrDescriptorFieldInvalid = errors.New("invalid descriptor field")
	// ErrDescriptorNotCached indicates a descriptor payload is not in any cache root.
	ErrDescriptorNotCached = errors.New("descriptor is not cached locally")

	// ErrVersionMissing indicates a descriptor has no version to resolve.
	ErrVersionMissing = errors.New("descriptor version is missing")
	// ErrNoVersionsFound indicates a backend listed no versions at all.
	ErrNoVersionsFound = errors.New("no versions found")
	// ErrNoVersionMatchesPattern indicates no version satisfies a constraint pattern.
	ErrNoVersionMatchesPattern = errors.New("no version matches constraint pattern")
	// ErrInvalidVersionPattern indicates a constraint pattern is malformed.
	ErrInvalidVersionPattern = errors.New("invalid version constraint pattern")

	// ErrDownloadFailed indicates a bundle download failed.
	ErrDownloadFailed = errors.New("bundle download failed")
	// ErrCacheRootEmpty indicates no primary cache root is configured.
	ErrCacheRootEmpty = errors.New("cache root is empty")
	// ErrBundleNotTracked indicates a bundle has no usage record.
	ErrBundleNotTracked = errors.New("bundle is not tracked")
	// ErrPurgeFoundSymlink indicates a purge was aborted because the bundle contains a symlink.
	ErrPurgeFoundSymlink = errors.New("bundle contains a symlink, refusing to purge")
	// ErrUsageDatabaseClosed indicates the usage database was used after Close.
	ErrUsageDatabaseClosed = errors.New("usage database is closed")

	// ErrConfigQueryConflict indicates both an id and an enumeration query were requested.
	ErrConfigQueryConflict = errors.New("pipeline configuration id and plugin-id enumeration are mutually exclusive")
	// ErrConfigNotFound indicates no pipeline configuration matched the lookup.
	ErrConfigNotFound = errors.New("no pipeline configuration found")
	// ErrNoCompatibleVersion indicates every candidate was excluded by a compatibility gate.
	ErrNoCompatibleVersion = errors.New("no compatible version found")
	// ErrCoreMissing indicates an installed configuration has no core payload.
	ErrCoreMissing = errors.New("installed configuration has no core")

	// ErrSiteConnectionNil indicates a site connection is required but missing.
	ErrSiteConnectionNil = errors.New("site connection is nil")
	// ErrConfigIsNil indicates a nil config was provided.
	ErrConfigIsNil = errors.New("config is nil")
	// ErrManifestMissing indicates a bundle has no info.yml manifest.
	ErrManifestMissing = errors.New("bundle manifest not found")

	// ErrFileIsEmpty indicates a file is empty.
	ErrFileIsEmpty = errors.New("file is empty")
	// ErrArchiveExceedsMaxSize indicates an archive exceeds the maximum total size.
	ErrArchiveExceedsMaxSize = errors.New("archive exceeds maximum total size")
	// ErrArchiveEntryHasNegativeSize indicates an archive entry has a negative size.
	ErrArchiveEntryHasNegativeSize = errors.New("archive entry has negative size")
	// ErrArchiveEntryIsTooLarge indicates an archive entry is too large.
	ErrArchiveEntryIsTooLarge = errors.New("archive entry is too large")
	// ErrArchiveEntryEscapesDestination indicates an archive entry escapes the destination.
	ErrArchiveEntryEscapesDestination = errors.New("archive entry escapes destination")
	// ErrArchiveEntryIsAbsolutePath indicates an archive entry uses an absolute path.
	ErrArchiveEntryIsAbsolutePath = errors.New("archive entry is absolute path")
)
