// Package platform models per-OS path settings for storage roots that
// are shared between workstations running different operating systems.
package platform

import (
	"runtime"
	"strings"
)

// PathTriple holds one path per target platform.
type PathTriple struct {
	Windows string `yaml:"windows_path"`
	Mac     string `yaml:"mac_path"`
	Linux   string `yaml:"linux_path"`
}

// Current returns the path for the running platform.
func (p PathTriple) Current() string {
	switch runtime.GOOS {
	case "windows":
		return p.Windows
	case "darwin":
		return p.Mac
	default:
		return p.Linux
	}
}

// Sanitized returns the triple with every field normalized.
func (p PathTriple) Sanitized() PathTriple {
	return PathTriple{
		Windows: Sanitize(p.Windows),
		Mac:     Sanitize(p.Mac),
		Linux:   Sanitize(p.Linux),
	}
}

// Sanitize collapses duplicate separators and strips the trailing
// separator, keeping drive roots ("C:\") and UNC roots ("\\server")
// intact. It is a pure function and never touches the filesystem.
func Sanitize(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}

	sep := "/"
	unc := strings.HasPrefix(trimmed, `\\`)
	if strings.Contains(trimmed, `\`) {
		sep = `\`
	}

	normalized := collapseSeparators(trimmed, sep, unc)
	normalized = stripTrailingSeparator(normalized, sep)
	return normalized
}

func collapseSeparators(path, sep string, unc bool) string {
	double := sep + sep
	body := path
	prefix := ""
	if unc {
		prefix = double
		body = strings.TrimPrefix(body, double)
	} else if strings.HasPrefix(body, "//") {
		// POSIX treats a leading double slash as implementation defined,
		// but studio mounts use it like a single root.
		body = body[1:]
	}
	for strings.Contains(body, double) {
		body = strings.ReplaceAll(body, double, sep)
	}
	return prefix + body
}

func stripTrailingSeparator(path, sep string) string {
	if len(path) <= 1 {
		return path
	}
	trimmed := strings.TrimRight(path, sep)
	if trimmed == "" {
		return sep
	}
	// "C:" after trimming means the input was a drive root; keep the slash.
	if len(trimmed) == 2 && trimmed[1] == ':' {
		return trimmed + sep
	}
	return trimmed
}
