package helpers

import "strings"

// IsCommitHash reports whether value looks like a git commit hash.
// Accepts abbreviated (7+) and full (40) hex forms.
func IsCommitHash(value string) bool {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) < ShortHashLen || len(trimmed) > 40 {
		return false
	}
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// RepoBaseName returns the trailing path segment of a repository path,
// keeping a ".git" suffix when present so cache folders stay recognizable.
func RepoBaseName(repoPath string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(repoPath), "/")
	if idx := strings.LastIndexAny(trimmed, "/\\:"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return trimmed
}

// SplitOrgRepo splits an "organization/repository" pair.
func SplitOrgRepo(value string) (string, string, bool) {
	parts := strings.Split(strings.TrimSpace(value), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
