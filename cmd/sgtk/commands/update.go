package commands

import (
	"context"

	"github.com/studiopipe/sgtk/cmd/sgtk/helpers"
	"github.com/studiopipe/sgtk/internal/sgtk/bootstrap"
	"github.com/urfave/cli/v2"
)

// Update returns the CLI command that resolves a pipeline configuration
// and installs it into a target root.
func Update() *cli.Command {
	flags := helpers.CommonFlags()
	flags = append(flags, helpers.SiteFlags()...)
	flags = append(flags, helpers.UpdateFlags()...)

	return &cli.Command{
		Name:    "update",
		Aliases: []string{"up"},
		Usage:   "Resolve and install a pipeline configuration",
		Flags:   flags,
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			defer s.Close()
			req := bootstrap.Request{
				PluginID:                c.String("plugin-id"),
				PipelineConfigurationID: c.Int("pipeline-config-id"),
				FallbackDescriptorURI:   c.String("fallback-config"),
			}
			return runUpdate(c.Context, s, req, c.String("target"), c.String("python-version"))
		},
	}
}

// runUpdate resolves the configuration for the request and materializes
// it at the target root behind the backup protocol.
func runUpdate(ctx context.Context, s *session, req bootstrap.Request, target, interpreter string) error {
	version, err := bootstrap.ParseInterpreterVersion(interpreter)
	if err != nil {
		s.printer.Errorf("%s", err.Error())
		return err
	}

	resolver := &bootstrap.Resolver{
		Factory:     s.factory,
		Site:        s.site,
		Interpreter: version,
		Output:      s.printer,
	}
	cfg, err := resolver.Resolve(ctx, req)
	if err != nil {
		s.printer.Errorf("%s", err.Error())
		return err
	}
	s.printer.Printf("resolved configuration %s", cfg.Descriptor.URI())

	writer := bootstrap.NewWriter(target, s.printer)
	if err := writer.UpdateConfiguration(ctx, cfg); err != nil {
		s.printer.Errorf("%s", err.Error())
		return err
	}
	s.printer.Okf("configuration installed at %s", target)
	return nil
}
