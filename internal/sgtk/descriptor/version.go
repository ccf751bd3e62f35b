package descriptor

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

// CompareVersions orders two version strings. Semantic versions compare
// semver-wise (prerelease aware); a commit-hash shaped string always
// outranks any semantic version. The hash rule is a compatibility
// heuristic (a branch build is treated as ahead of any tagged release),
// not a mathematical total order, and two hashes fall back to plain
// string comparison for determinism.
func CompareVersions(a, b string) int {
	semA, okA := parseSemver(a)
	semB, okB := parseSemver(b)
	hashA := !okA && helpers.IsCommitHash(a)
	hashB := !okB && helpers.IsCommitHash(b)

	switch {
	case okA && okB:
		return semA.Compare(semB)
	case hashA && !hashB:
		return 1
	case hashB && !hashA:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// LatestVersion returns the highest version in versions, optionally
// restricted by a glob-like pattern such as "v1.2.x". The pattern only
// ever matches semantic versions.
func LatestVersion(versions []string, pattern string) (string, error) {
	if len(versions) == 0 {
		return "", helpers.ErrNoVersionsFound
	}

	candidates := versions
	if pattern != "" {
		constraint, err := patternConstraint(pattern)
		if err != nil {
			return "", err
		}
		candidates = candidates[:0:0]
		for _, v := range versions {
			parsed, ok := parseSemver(v)
			if !ok {
				continue
			}
			if constraint.Check(parsed) {
				candidates = append(candidates, v)
			}
		}
		if len(candidates) == 0 {
			return "", fmt.Errorf("%w: %q", helpers.ErrNoVersionMatchesPattern, pattern)
		}
	}

	best := candidates[0]
	for _, v := range candidates[1:] {
		if CompareVersions(v, best) > 0 {
			best = v
		}
	}
	return best, nil
}

// patternConstraint translates a "vX.Y.x" style pattern into a semver
// constraint.
func patternConstraint(pattern string) (*semver.Constraints, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(pattern, "v"))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %q", helpers.ErrInvalidVersionPattern, pattern)
	}
	constraint, err := semver.NewConstraint(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", helpers.ErrInvalidVersionPattern, pattern, err)
	}
	return constraint, nil
}

func parseSemver(value string) (*semver.Version, bool) {
	parsed, err := semver.NewVersion(strings.TrimSpace(value))
	if err != nil {
		return nil, false
	}
	return parsed, true
}
