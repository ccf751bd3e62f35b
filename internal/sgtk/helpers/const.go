package helpers

import "time"

const (
	// DirMod is the default permission for created directories.
	DirMod = 0o755
	// FileMod is the default permission for created files.
	FileMod = 0o644

	// DescriptorURIPrefix is the scheme prefix for descriptor URIs.
	DescriptorURIPrefix = "sgtk:descriptor:"

	// ManifestFile is the bundle manifest filename inside every cached bundle.
	ManifestFile = "info.yml"

	// CacheTmpDir is the staging subfolder of a cache root for in-flight downloads.
	CacheTmpDir = "tmp"

	// UsageDBFile is the bundle-cache usage database filename.
	UsageDBFile = "bundle_usage.db"
	// UsageBucket is the bbolt bucket holding usage records.
	UsageBucket = "usage"

	// ShortHashLen is the abbreviated commit hash length used in cache paths.
	ShortHashLen = 7

	// BackupPlaceholderFile keeps backup roots from being swept by empty-folder cleanup.
	BackupPlaceholderFile = "placeholder"
	// BackupTimestampLayout is the folder-name layout for backup timestamps.
	BackupTimestampLayout = "20060102_150405"

	// FetchDefaultTimeout is the overall HTTP client timeout.
	FetchDefaultTimeout = 30 * time.Second
	// FetchDialContextTimeout is the dial timeout for outbound connections.
	FetchDialContextTimeout = 10 * time.Second
	// FetchDialContextKeepAlive is the TCP keep-alive for dials.
	FetchDialContextKeepAlive = 30 * time.Second
	// FetchForceAttemptHTTP2 enables HTTP/2 attempts when possible.
	FetchForceAttemptHTTP2 = true
	// FetchMaxIdleConns is the maximum number of idle connections.
	FetchMaxIdleConns = 100
	// FetchMaxIdleConnsPerHost limits idle connections per host.
	FetchMaxIdleConnsPerHost = 10
	// FetchIdleConnTimeout is the idle connection timeout.
	FetchIdleConnTimeout = 30 * time.Second
	// FetchTLSHandshakeTimeout is the TLS handshake timeout.
	FetchTLSHandshakeTimeout = 3 * time.Second
	// FetchExpectContinueTimeout is the expect-continue timeout.
	FetchExpectContinueTimeout = 1 * time.Second

	// ArchiveMaxEntrySize caps a single archive entry size during extraction.
	ArchiveMaxEntrySize = int64(512 << 20) // 512 MiB per file
	// ArchiveMaxTotalSize caps total extracted bytes per archive.
	ArchiveMaxTotalSize = int64(4 << 30) // 4 GiB per archive

	// SecondsPerDay converts the purge age threshold from days to seconds.
	SecondsPerDay = 86400
)
