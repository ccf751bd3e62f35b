package infra

import (
	"net/http"
	"os"
	"time"

	"github.com/studiopipe/sgtk/internal/sgtk/config"
	"github.com/studiopipe/sgtk/internal/sgtk/output"
)

// Infra holds runtime dependencies such as IO and HTTP clients.
type Infra struct {
	Output  output.Printer
	HTTP    *http.Client
	Now     func() time.Time
	TempDir func() string
}

// New builds Infra with default helpers for time and temp paths.
func New(out output.Printer, httpClient *http.Client) *Infra {
	return &Infra{
		Output:  out,
		HTTP:    httpClient,
		Now:     time.Now,
		TempDir: os.TempDir,
	}
}

// DebugConfig logs which settings were sourced from sgtk.cfg.
func (i *Infra) DebugConfig(cfg *config.Config) {
	if i == nil || i.Output == nil || cfg == nil || cfg.ConfigPath == "" {
		return
	}
	if cfg.FileCacheRootUsed {
		i.Output.Debugf("sgtk.cfg %s: cache.root=%s", cfg.ConfigPath, cfg.CacheRoot)
	}
	if cfg.FileServerUsed {
		i.Output.Debugf("sgtk.cfg %s: site.server=%s", cfg.ConfigPath, cfg.Server)
	}
}
