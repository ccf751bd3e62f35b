package commands

import (
	"io"
	"log"

	"github.com/studiopipe/sgtk/internal/progress"
	"github.com/studiopipe/sgtk/internal/sgtk/cache"
	"github.com/studiopipe/sgtk/internal/sgtk/config"
	"github.com/studiopipe/sgtk/internal/sgtk/descriptor"
	"github.com/studiopipe/sgtk/internal/sgtk/fetch"
	"github.com/studiopipe/sgtk/internal/sgtk/infra"
	"github.com/studiopipe/sgtk/internal/sgtk/site"
	"github.com/studiopipe/sgtk/internal/sgtk/usage"
	"github.com/urfave/cli/v2"
)

// session bundles the runtime objects every command needs: settings,
// printer, infra, the descriptor factory and the usage tracker bound to
// the primary cache root.
type session struct {
	cfg     *config.Config
	printer *progress.Progress
	runtime *infra.Infra
	roots   cache.Roots
	site    site.Connection
	factory *descriptor.Factory
	tracker *usage.Tracker
}

// newSession builds a session from CLI flags and sgtk.cfg.
func newSession(c *cli.Context) (*session, error) {
	cfg, err := config.Build(c)
	if err != nil {
		progress.Errorf("%s", err.Error())
		return nil, err
	}

	p := progress.New(cfg.Verbose, cfg.Quiet)
	if cfg.Verbose {
		log.SetOutput(p)
	} else {
		log.SetOutput(io.Discard)
	}

	runtime := infra.New(p, fetch.New(cfg.Timeout))
	runtime.DebugConfig(cfg)

	roots := cache.Roots{Primary: cfg.CacheRoot, Fallbacks: cfg.FallbackRoots}
	connection := site.NewHTTPConnection(cfg.Server, runtime.HTTP)
	factory := descriptor.NewFactory(descriptor.Env{
		Roots: roots,
		Site:  connection,
	})

	tracker, err := usage.Open(cfg.CacheRoot)
	if err != nil {
		p.Errorf("%s", err.Error())
		p.Close()
		return nil, err
	}
	factory.SetUsageTracker(tracker)

	return &session{
		cfg:     cfg,
		printer: p,
		runtime: runtime,
		roots:   roots,
		site:    connection,
		factory: factory,
		tracker: tracker,
	}, nil
}

// Close releases the session's tracker and printer.
func (s *session) Close() {
	_ = s.tracker.Close()
	s.printer.Close()
}
