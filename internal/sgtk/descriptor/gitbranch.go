package descriptor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/studiopipe/sgtk/internal/sgtk/cache"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

const gitBranchFamily = "gitbranch"

// gitBranchDescriptor resolves bundles from a git branch. Versions are
// full commit hashes; cache directories use the 7-character short form
// for browsability and fall back to the full hash when a short prefix
// is already claimed by a different commit.
type gitBranchDescriptor struct {
	ioBase
	roots    cache.Roots
	repoPath string
	branch   string
	version  string
}

func newGitBranchDescriptor(env Env, d Dict) (IODescriptor, error) {
	g := &gitBranchDescriptor{
		roots:    env.Roots,
		repoPath: d[KeyPath],
		branch:   d[KeyBranch],
		version:  d[KeyVersion],
	}
	g.ioBase = newIOBase(d, env.Roots, gitBranchFamily,
		helpers.RepoBaseName(g.repoPath), g.versionSegment())
	return g, nil
}

// versionSegment returns the cache directory name for the commit: the
// short hash unless an existing short-hash entry holds a different
// commit, in which case the full hash disambiguates.
func (g *gitBranchDescriptor) versionSegment() string {
	if len(g.version) <= helpers.ShortHashLen {
		return g.version
	}
	short := g.version[:helpers.ShortHashLen]
	repo := helpers.RepoBaseName(g.repoPath)
	for _, candidate := range g.roots.PathsFor(gitBranchFamily, repo, short) {
		if !dirExists(candidate) {
			continue
		}
		commit := readCheckoutCommit(candidate)
		if commit != "" && commit != g.version {
			return g.version
		}
	}
	return short
}

// EnsureLocal clones the commit iff it is not already cached.
func (g *gitBranchDescriptor) EnsureLocal(ctx context.Context) error {
	return g.ensureVia(ctx, g.DownloadLocal)
}

// DownloadLocal clones the branch and checks out the pinned commit.
func (g *gitBranchDescriptor) DownloadLocal(ctx context.Context) error {
	if g.version == "" {
		return fmt.Errorf("%w: %s", helpers.ErrVersionMissing, CanonicalURI(g.dict))
	}
	err := cache.Populate(g.roots.Primary, g.WritePath(), func(staging string) error {
		if _, err := runGit(ctx, "clone", "--branch", g.branch, g.repoPath, staging); err != nil {
			return err
		}
		_, err := runGit(ctx, "-C", staging, "checkout", "--detach", g.version)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", helpers.ErrDownloadFailed, CanonicalURI(g.dict), err)
	}
	g.resetFoundPath()
	return nil
}

// FindLatestVersion resolves the branch head to its full commit hash.
func (g *gitBranchDescriptor) FindLatestVersion(ctx context.Context, pattern string) (Dict, error) {
	if pattern != "" {
		return nil, fmt.Errorf("%w: commit hashes do not match version patterns", helpers.ErrInvalidVersionPattern)
	}
	out, err := runGit(ctx, "ls-remote", g.repoPath, "refs/heads/"+g.branch)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(out)
	if len(fields) < 1 || !helpers.IsCommitHash(fields[0]) {
		return nil, fmt.Errorf("%w: branch %q on %s", helpers.ErrNoVersionsFound, g.branch, g.repoPath)
	}
	return g.dict.WithVersion(fields[0]), nil
}

// FindLatestCachedVersion returns the newest cached commit; hash
// directory names order lexicographically, which is stable if not
// meaningful, so the newest is whichever EnsureLocal touched last when
// exactly one exists, the common case for branch descriptors.
func (g *gitBranchDescriptor) FindLatestCachedVersion(pattern string) (Dict, bool, error) {
	if pattern != "" {
		return nil, false, nil
	}
	latest, ok, err := g.latestCachedVersion("")
	if err != nil || !ok {
		return nil, false, err
	}
	return g.dict.WithVersion(latest), true, nil
}

// IsImmutable is false: the branch moves underneath the descriptor.
func (g *gitBranchDescriptor) IsImmutable() bool {
	return false
}

// readCheckoutCommit returns the commit a working copy has checked
// out, following one level of symbolic ref, or "" when unreadable.
func readCheckoutCommit(workdir string) string {
	head, err := os.ReadFile(filepath.Join(workdir, ".git", "HEAD"))
	if err != nil {
		return ""
	}
	content := strings.TrimSpace(string(head))
	if ref, ok := strings.CutPrefix(content, "ref: "); ok {
		resolved, err := os.ReadFile(filepath.Join(workdir, ".git", filepath.FromSlash(ref)))
		if err != nil {
			return ""
		}
		content = strings.TrimSpace(string(resolved))
	}
	if helpers.IsCommitHash(content) {
		return content
	}
	return ""
}
