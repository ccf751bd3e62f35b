// Package config builds the runtime settings for CLI commands from
// flags and the optional sgtk.cfg file.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
	"github.com/urfave/cli/v2"
)

// Config holds runtime settings for cache and bootstrap operations.
type Config struct {
	Verbose       bool
	Quiet         bool
	CacheRoot     string
	FallbackRoots []string
	Server        string
	Timeout       time.Duration
	Workers       int

	ConfigPath        string
	FileCacheRootUsed bool
	FileServerUsed    bool
}

// Build assembles Config from CLI flags and sgtk.cfg. Values from the
// file win over flag defaults, matching studio deployments where the
// file is centrally managed.
func Build(c *cli.Context) (*Config, error) {
	cfg := newConfigFromCLI(c)
	applyTimeout(cfg, c)

	fileConfig, filePath, err := loadFileConfigFromCLI(c)
	if err != nil {
		return nil, err
	}
	applyFileConfig(cfg, c, fileConfig, filePath)

	if cfg.CacheRoot == "" {
		return nil, helpers.ErrCacheRootEmpty
	}
	return cfg, nil
}

func newConfigFromCLI(c *cli.Context) *Config {
	cfg := &Config{
		Workers:       c.Int("workers"),
		CacheRoot:     c.String("cache-root"),
		FallbackRoots: c.StringSlice("fallback-root"),
		Server:        c.String("server"),
	}

	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	cfg.Verbose = c.Bool("verbose")
	cfg.Quiet = !cfg.Verbose && c.Bool("quiet")
	return cfg
}

func applyTimeout(cfg *Config, c *cli.Context) {
	cfg.Timeout = c.Duration("timeout")
	cfg.Timeout = max(cfg.Timeout, helpers.FetchDefaultTimeout)
}

func loadFileConfigFromCLI(c *cli.Context) (fileConfig, string, error) {
	cfg, path, err := loadFileConfig(c.String("config"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, "", fmt.Errorf("failed to load sgtk config: %w", err)
	}
	return cfg, path, nil
}

func applyFileConfig(cfg *Config, c *cli.Context, file fileConfig, filePath string) {
	if filePath != "" {
		cfg.ConfigPath = filePath
	}
	if file.Cache.Root != "" {
		cfg.CacheRoot = file.Cache.Root
		cfg.FileCacheRootUsed = true
	} else {
		cfg.CacheRoot = c.String("cache-root")
	}
	if len(file.Cache.FallbackRoots) > 0 {
		cfg.FallbackRoots = file.Cache.FallbackRoots
	}
	if file.Site.Server != "" {
		cfg.Server = file.Site.Server
		cfg.FileServerUsed = true
	} else {
		cfg.Server = c.String("server")
	}
}

// fileCacheConfig maps the [cache] section of sgtk.cfg.
type fileCacheConfig struct {
	Root          string   `toml:"root"`
	FallbackRoots []string `toml:"fallback_roots"`
}

// fileSiteConfig maps the [site] section of sgtk.cfg.
type fileSiteConfig struct {
	Server string `toml:"server"`
}

// fileConfig represents the parsed sgtk.cfg structure.
type fileConfig struct {
	Cache fileCacheConfig `toml:"cache"`
	Site  fileSiteConfig  `toml:"site"`
}

// loadFileConfig loads sgtk.cfg if it exists.
func loadFileConfig(configPath string) (fileConfig, string, error) {
	config := fileConfig{}
	if _, err := os.Stat(configPath); err != nil {
		return config, "", err
	}
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return config, "", fmt.Errorf("failed parse sgtk.cfg: %w", err)
	}
	return config, configPath, nil
}
