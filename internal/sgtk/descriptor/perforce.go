package descriptor

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/studiopipe/sgtk/internal/sgtk/cache"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

const perforceFamily = "perforce"

// perforceKind selects changelist- or label-pinned resolution.
type perforceKind int

const (
	perforceChange perforceKind = iota
	perforceLabel
)

// perforceDescriptor resolves bundles from a Perforce depot path,
// pinned either to a changelist number or to a label. Connection
// settings (P4PORT, credentials) come from the p4 client environment;
// timeout and retry policy belong to the p4 client, not this backend.
type perforceDescriptor struct {
	ioBase
	kind      perforceKind
	depotPath string
	revision  string
}

func newPerforceChangeDescriptor(env Env, d Dict) (IODescriptor, error) {
	return newPerforceDescriptor(env, d, perforceChange, d[KeyChangelist])
}

func newPerforceLabelDescriptor(env Env, d Dict) (IODescriptor, error) {
	return newPerforceDescriptor(env, d, perforceLabel, d[KeyLabel])
}

func newPerforceDescriptor(env Env, d Dict, kind perforceKind, revision string) (IODescriptor, error) {
	depotPath := d[KeyPath]
	return &perforceDescriptor{
		ioBase:    newIOBase(d, env.Roots, perforceFamily, helpers.RepoBaseName(depotPath), revision),
		kind:      kind,
		depotPath: depotPath,
		revision:  revision,
	}, nil
}

// EnsureLocal syncs the revision iff it is not already cached.
func (p *perforceDescriptor) EnsureLocal(ctx context.Context) error {
	return p.ensureVia(ctx, p.DownloadLocal)
}

// DownloadLocal prints every depot file at the pinned revision into the
// staging directory. p4 print needs no client workspace, which keeps
// the download independent of local Perforce state.
func (p *perforceDescriptor) DownloadLocal(ctx context.Context) error {
	if p.revision == "" {
		return fmt.Errorf("%w: %s", helpers.ErrVersionMissing, CanonicalURI(p.dict))
	}
	err := cache.Populate(p.roots.Primary, p.WritePath(), func(staging string) error {
		return p.printTree(ctx, staging)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", helpers.ErrDownloadFailed, CanonicalURI(p.dict), err)
	}
	p.resetFoundPath()
	return nil
}

func (p *perforceDescriptor) printTree(ctx context.Context, staging string) error {
	pattern := p.depotPath + "/...@" + p.revision
	out, err := runP4(ctx, "files", "-e", pattern)
	if err != nil {
		return err
	}
	for line := range strings.Lines(out) {
		depotFile := parseDepotFile(line)
		if depotFile == "" {
			continue
		}
		rel := strings.TrimPrefix(depotFile, p.depotPath+"/")
		dest := filepath.Join(staging, filepath.FromSlash(rel))
		if err := ensureParent(dest); err != nil {
			return err
		}
		if _, err := runP4(ctx, "print", "-q", "-o", dest, depotFile+"@"+p.revision); err != nil {
			return err
		}
	}
	return nil
}

// parseDepotFile extracts the depot path from a "p4 files" line such as
// "//depot/tools/app/info.yml#3 - edit change 1234 (text)".
func parseDepotFile(line string) string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return ""
	}
	if idx := strings.Index(trimmed, "#"); idx > 0 {
		return trimmed[:idx]
	}
	return ""
}

// FindLatestVersion queries the depot for the newest changelist or the
// greatest label.
func (p *perforceDescriptor) FindLatestVersion(ctx context.Context, pattern string) (Dict, error) {
	if p.kind == perforceChange {
		return p.latestChange(ctx)
	}
	return p.latestLabel(ctx, pattern)
}

// latestChange returns the highest changelist at or below HEAD.
func (p *perforceDescriptor) latestChange(ctx context.Context) (Dict, error) {
	out, err := runP4(ctx, "changes", "-m1", p.depotPath+"/...")
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(out)
	// "Change 12345 on 2026/01/02 by user@client '...'"
	if len(fields) < 2 || fields[0] != "Change" {
		return nil, fmt.Errorf("%w: %s", helpers.ErrNoVersionsFound, p.depotPath)
	}
	if _, err := strconv.Atoi(fields[1]); err != nil {
		return nil, fmt.Errorf("%w: bad changelist %q", helpers.ErrNoVersionsFound, fields[1])
	}
	d := p.dict.Clone()
	d[KeyChangelist] = fields[1]
	d[KeyVersion] = fields[1]
	return d, nil
}

// latestLabel returns the numerically or alphabetically greatest label.
func (p *perforceDescriptor) latestLabel(ctx context.Context, pattern string) (Dict, error) {
	out, err := runP4(ctx, "labels")
	if err != nil {
		return nil, err
	}
	var labels []string
	for line := range strings.Lines(out) {
		fields := strings.Fields(line)
		// "Label build-102 2026/01/02 'description'"
		if len(fields) >= 2 && fields[0] == "Label" {
			labels = append(labels, fields[1])
		}
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no labels in depot", helpers.ErrNoVersionsFound)
	}
	sort.Strings(labels)
	latest, err := LatestVersion(labels, pattern)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.depotPath, err)
	}
	d := p.dict.Clone()
	d[KeyLabel] = latest
	d[KeyVersion] = latest
	return d, nil
}

// FindLatestCachedVersion picks the newest cached revision.
func (p *perforceDescriptor) FindLatestCachedVersion(pattern string) (Dict, bool, error) {
	latest, ok, err := p.latestCachedVersion(pattern)
	if err != nil || !ok {
		return nil, false, err
	}
	d := p.dict.Clone()
	d[KeyVersion] = latest
	if p.kind == perforceChange {
		d[KeyChangelist] = latest
	} else {
		d[KeyLabel] = latest
	}
	return d, true, nil
}

// IsImmutable: a changelist number can never be rewritten; a label can
// be retargeted after the fact.
func (p *perforceDescriptor) IsImmutable() bool {
	return p.kind == perforceChange
}

// runP4 executes the p4 client and returns its output.
func runP4(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "p4", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("p4 %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
