package helpers

import (
	"runtime"

	"github.com/urfave/cli/v2"
)

// CommonFlags defines shared CLI flags for all commands.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "Verbose output",
			EnvVars: []string{"SGTK_VERBOSE"},
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Quiet mode, not working with verbose",
			EnvVars: []string{"SGTK_QUIET"},
		},
		&cli.StringFlag{
			Name:    "cache-root",
			Usage:   "Primary bundle cache root, receives all writes",
			Value:   defaultCacheRoot(),
			EnvVars: []string{"SGTK_CACHE_ROOT"},
		},
		&cli.StringSliceFlag{
			Name:    "fallback-root",
			Usage:   "Read-only fallback cache root, repeatable",
			EnvVars: []string{"SGTK_FALLBACK_ROOTS"},
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to sgtk.cfg file",
			Value:   defaultConfigPath,
			EnvVars: []string{"SGTK_CONFIG"},
		},
	}
}

// SiteFlags defines CLI flags for the app store connection.
func SiteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Usage:   "App store server URL",
			Value:   defaultServerURL,
			EnvVars: []string{"SGTK_SERVER"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Timeout duration",
			Value:   defaultTimeout,
			EnvVars: []string{"SGTK_SERVER_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "Number of concurrent workers",
			Value:   runtime.NumCPU(),
			EnvVars: []string{"SGTK_WORKERS"},
		},
	}
}

// CacheFlags defines CLI flags for the cache command.
func CacheFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "bundle-type",
			Usage: "Bundle type: app, engine, framework, config or core",
			Value: "app",
		},
		&cli.BoolFlag{
			Name:  "latest",
			Usage: "Resolve the latest version instead of the pinned one",
		},
		&cli.StringFlag{
			Name:  "pattern",
			Usage: "Version constraint pattern for --latest, e.g. v1.2.x",
		},
	}
}

// CleanupFlags defines CLI flags for cache garbage collection.
func CleanupFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "since-days",
			Usage:   "Purge bundles not accessed for this many days",
			Value:   defaultSinceDays,
			EnvVars: []string{"SGTK_CLEANUP_SINCE_DAYS"},
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "List what would be purged without deleting anything",
		},
	}
}

// UpdateFlags defines CLI flags for configuration resolution and update.
func UpdateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "plugin-id",
			Usage:   "Plugin id to enumerate configurations for",
			EnvVars: []string{"SGTK_PLUGIN_ID"},
		},
		&cli.IntFlag{
			Name:  "pipeline-config-id",
			Usage: "Pinned pipeline configuration id, excludes --plugin-id",
		},
		&cli.StringFlag{
			Name:  "fallback-config",
			Usage: "Fallback configuration descriptor URI",
		},
		&cli.StringFlag{
			Name:     "target",
			Usage:    "Pipeline configuration root to install into",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "python-version",
			Usage: "Interpreter version the configuration must support",
			Value: defaultInterpreter,
		},
	}
}
