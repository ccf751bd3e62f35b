package commands

import (
	"context"
	"fmt"

	"github.com/studiopipe/sgtk/cmd/sgtk/helpers"
	"github.com/studiopipe/sgtk/internal/sgtk/descriptor"
	"github.com/urfave/cli/v2"
)

// Cache returns the CLI command that ensures a bundle is cached locally.
func Cache() *cli.Command {
	flags := helpers.CommonFlags()
	flags = append(flags, helpers.SiteFlags()...)
	flags = append(flags, helpers.CacheFlags()...)

	return &cli.Command{
		Name:      "cache",
		Usage:     "Download a bundle into the local cache",
		ArgsUsage: "<descriptor-uri>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one descriptor uri argument")
			}
			s, err := newSession(c)
			if err != nil {
				return err
			}
			defer s.Close()
			return runCache(c.Context, s, c.Args().First(), c.String("bundle-type"), c.Bool("latest"), c.String("pattern"))
		},
	}
}

// runCache resolves the descriptor, optionally upgrades it to the
// latest matching version, and makes its payload available locally.
func runCache(ctx context.Context, s *session, uri, bundleType string, latest bool, pattern string) error {
	kind, err := descriptor.ParseBundleType(bundleType)
	if err != nil {
		s.printer.Errorf("%s", err.Error())
		return err
	}
	desc, err := s.factory.CreateDescriptorFromURI(kind, uri)
	if err != nil {
		s.printer.Errorf("%s", err.Error())
		return err
	}

	if latest {
		s.printer.Printf("resolving latest version of %s", desc.URI())
		desc, err = desc.FindLatestVersion(ctx, pattern)
		if err != nil {
			s.printer.Errorf("%s", err.Error())
			return err
		}
	}

	s.printer.Printf("caching %s", desc.URI())
	if err := desc.EnsureLocal(ctx); err != nil {
		s.printer.Errorf("%s", err.Error())
		return err
	}
	s.printer.Okf("%s -> %s", desc.URI(), desc.GetPath())
	return nil
}
