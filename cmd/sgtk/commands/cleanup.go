package commands

import (
	"github.com/studiopipe/sgtk/cmd/sgtk/helpers"
	"github.com/urfave/cli/v2"
)

// Cleanup returns the CLI command that purges unused cached bundles.
func Cleanup() *cli.Command {
	flags := helpers.CommonFlags()
	flags = append(flags, helpers.SiteFlags()...)
	flags = append(flags, helpers.CleanupFlags()...)

	return &cli.Command{
		Name:    "cleanup",
		Aliases: []string{"gc"},
		Usage:   "Purge bundles unused for a configured number of days",
		Flags:   flags,
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			defer s.Close()
			return runCleanup(s, c.Int("since-days"), c.Bool("dry-run"))
		},
	}
}

// runCleanup scans for untracked bundles first, then purges everything
// whose last access is older than sinceDays. Newly discovered bundles
// get a fresh first-seen record, so they are never purged on the run
// that discovers them.
func runCleanup(s *session, sinceDays int, dryRun bool) error {
	if err := s.tracker.InitialPopulate(); err != nil {
		s.printer.Errorf("%s", err.Error())
		return err
	}
	unused, err := s.tracker.UnusedBundles(sinceDays)
	if err != nil {
		s.printer.Errorf("%s", err.Error())
		return err
	}
	if len(unused) == 0 {
		s.printer.Okf("no bundles unused for %d days", sinceDays)
		return nil
	}

	purged := 0
	for _, bundle := range unused {
		if dryRun {
			s.printer.PersistentPrintf("would purge %s (last access %s)",
				bundle.Path, bundle.Record.LastAccess.Format("2006-01-02"))
			continue
		}
		s.printer.Printf("purging %s", bundle.Path)
		if err := s.tracker.PurgeBundle(bundle); err != nil {
			// A failed purge stays tracked and is retried next run.
			s.printer.Errorf("skipped %s: %s", bundle.Path, err.Error())
			continue
		}
		purged++
	}
	if dryRun {
		s.printer.Okf("%d bundles would be purged", len(unused))
		return nil
	}
	s.printer.Okf("purged %d of %d unused bundles", purged, len(unused))
	return nil
}
