package descriptor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/studiopipe/sgtk/internal/sgtk/cache"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

const gitFamily = "git"

// gitTagDescriptor resolves bundles from git repositories where each
// version is a tag.
type gitTagDescriptor struct {
	ioBase
	repoPath string
	version  string
}

func newGitTagDescriptor(env Env, d Dict) (IODescriptor, error) {
	repoPath := d[KeyPath]
	version := d[KeyVersion]
	return &gitTagDescriptor{
		ioBase:   newIOBase(d, env.Roots, gitFamily, helpers.RepoBaseName(repoPath), version),
		repoPath: repoPath,
		version:  version,
	}, nil
}

// EnsureLocal clones the tag iff it is not already cached.
func (g *gitTagDescriptor) EnsureLocal(ctx context.Context) error {
	return g.ensureVia(ctx, g.DownloadLocal)
}

// DownloadLocal clones the pinned tag into the cache via staging. The
// clone keeps its .git folder so copies remain valid working copies.
func (g *gitTagDescriptor) DownloadLocal(ctx context.Context) error {
	if g.version == "" {
		return fmt.Errorf("%w: %s", helpers.ErrVersionMissing, CanonicalURI(g.dict))
	}
	err := cache.Populate(g.roots.Primary, g.WritePath(), func(staging string) error {
		_, err := runGit(ctx, "clone", "--depth", "1", "--branch", g.version, g.repoPath, staging)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", helpers.ErrDownloadFailed, CanonicalURI(g.dict), err)
	}
	g.resetFoundPath()
	return nil
}

// FindLatestVersion lists remote tags and picks the newest.
func (g *gitTagDescriptor) FindLatestVersion(ctx context.Context, pattern string) (Dict, error) {
	tags, err := listRemoteTags(ctx, g.repoPath)
	if err != nil {
		return nil, err
	}
	latest, err := LatestVersion(tags, pattern)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.repoPath, err)
	}
	return g.dict.WithVersion(latest), nil
}

// FindLatestCachedVersion picks the newest cached tag.
func (g *gitTagDescriptor) FindLatestCachedVersion(pattern string) (Dict, bool, error) {
	latest, ok, err := g.latestCachedVersion(pattern)
	if err != nil || !ok {
		return nil, false, err
	}
	return g.dict.WithVersion(latest), true, nil
}

// IsImmutable is true: a tag-pinned clone is owned by its source of truth.
func (g *gitTagDescriptor) IsImmutable() bool {
	return true
}

// runGit executes git and returns its combined output.
func runGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// listRemoteTags returns the tag names of a remote repository,
// peeled-ref duplicates removed.
func listRemoteTags(ctx context.Context, repoPath string) ([]string, error) {
	out, err := runGit(ctx, "ls-remote", "--tags", repoPath)
	if err != nil {
		return nil, err
	}
	var tags []string
	for line := range strings.Lines(out) {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		ref := fields[1]
		if strings.HasSuffix(ref, "^{}") {
			continue
		}
		if tag, ok := strings.CutPrefix(ref, "refs/tags/"); ok {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}
