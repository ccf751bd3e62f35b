package bootstrap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

// InterpreterVersion identifies the interpreter a configuration will
// run under. Only major and minor take part in compatibility checks;
// patch levels never gate anything.
type InterpreterVersion struct {
	Major int
	Minor int
}

// String formats the version as "major.minor".
func (v InterpreterVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Satisfies reports whether this interpreter meets a manifest's
// minimum_python_version field. An empty minimum means no constraint.
// The check is a pure tuple comparison on (major, minor).
func (v InterpreterVersion) Satisfies(minimum string) (bool, error) {
	if strings.TrimSpace(minimum) == "" {
		return true, nil
	}
	required, err := ParseInterpreterVersion(minimum)
	if err != nil {
		return false, err
	}
	if v.Major != required.Major {
		return v.Major > required.Major, nil
	}
	return v.Minor >= required.Minor, nil
}

// ParseInterpreterVersion parses "major[.minor[.patch]]". A missing
// minor means zero; the patch component is accepted and discarded.
func ParseInterpreterVersion(value string) (InterpreterVersion, error) {
	parts := strings.Split(strings.TrimSpace(value), ".")
	if len(parts) == 0 || len(parts) > 3 {
		return InterpreterVersion{}, fmt.Errorf("%w: interpreter version %q", helpers.ErrDescriptorFieldInvalid, value)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return InterpreterVersion{}, fmt.Errorf("%w: interpreter version %q", helpers.ErrDescriptorFieldInvalid, value)
	}
	v := InterpreterVersion{Major: major}
	if len(parts) > 1 {
		minor, err := strconv.Atoi(parts[1])
		if err != nil || minor < 0 {
			return InterpreterVersion{}, fmt.Errorf("%w: interpreter version %q", helpers.ErrDescriptorFieldInvalid, value)
		}
		v.Minor = minor
	}
	if len(parts) == 3 {
		if _, err := strconv.Atoi(parts[2]); err != nil {
			return InterpreterVersion{}, fmt.Errorf("%w: interpreter version %q", helpers.ErrDescriptorFieldInvalid, value)
		}
	}
	return v, nil
}
