// Package descriptor implements the bundle reference model: a value
// type identifying one version of one bundle, a bijective URI codec,
// pluggable IO backends per source type, and the factory that binds a
// reference to a backend with in-process memoization.
package descriptor

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

// Descriptor source types.
const (
	TypeAppStore       = "app_store"
	TypeGit            = "git"
	TypeGitBranch      = "git_branch"
	TypePath           = "path"
	TypeDev            = "dev"
	TypeManual         = "manual"
	TypePerforceChange = "perforce_change"
	TypePerforceLabel  = "perforce_label"
)

// Well-known dict keys.
const (
	KeyType         = "type"
	KeyName         = "name"
	KeyVersion      = "version"
	KeyPath         = "path"
	KeyBranch       = "branch"
	KeyChangelist   = "changelist"
	KeyLabel        = "label"
	KeyOrganization = "organization"
	KeyRepository   = "repository"
	KeyWindowsPath  = "windows_path"
	KeyMacPath      = "mac_path"
	KeyLinuxPath    = "linux_path"
)

// BundleType tags what kind of bundle a descriptor refers to.
type BundleType int

// Bundle type tags.
const (
	App BundleType = iota
	Engine
	Framework
	Config
	Core
)

// String returns the lowercase name of the bundle type.
func (b BundleType) String() string {
	switch b {
	case App:
		return "app"
	case Engine:
		return "engine"
	case Framework:
		return "framework"
	case Config:
		return "config"
	case Core:
		return "core"
	default:
		return fmt.Sprintf("bundle_type(%d)", int(b))
	}
}

// ParseBundleType parses the lowercase name of a bundle type.
func ParseBundleType(name string) (BundleType, error) {
	for _, b := range []BundleType{App, Engine, Framework, Config, Core} {
		if b.String() == name {
			return b, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown bundle type %q", helpers.ErrDescriptorFieldInvalid, name)
}

// Dict is the dictionary form of a descriptor location, including the
// "type" key. It serializes bijectively to a descriptor URI.
type Dict map[string]string

// Type returns the descriptor's source type token.
func (d Dict) Type() string {
	return d[KeyType]
}

// Clone returns an independent copy of the dict.
func (d Dict) Clone() Dict {
	out := make(Dict, len(d))
	maps.Copy(out, d)
	return out
}

// WithVersion returns a copy of the dict with version replaced.
func (d Dict) WithVersion(version string) Dict {
	out := d.Clone()
	out[KeyVersion] = version
	return out
}

// requiredFields lists the fields each built-in type must carry.
// Version is validated separately: it may be omitted only while
// resolving "latest".
var requiredFields = map[string][]string{
	TypeAppStore:       {KeyName},
	TypeGit:            {KeyPath},
	TypeGitBranch:      {KeyPath, KeyBranch},
	TypePath:           nil, // needs path or a platform triple, checked below
	TypeDev:            nil,
	TypeManual:         {KeyName},
	TypePerforceChange: {KeyPath, KeyChangelist},
	TypePerforceLabel:  {KeyPath, KeyLabel},
}

// validateDict checks required fields for the dict's type. Custom
// registered types validate inside their own constructors.
func validateDict(d Dict) error {
	typeName := strings.TrimSpace(d.Type())
	if typeName == "" {
		return helpers.ErrDescriptorTypeEmpty
	}
	fields, known := requiredFields[typeName]
	if !known {
		return nil
	}
	for _, field := range fields {
		if strings.TrimSpace(d[field]) == "" {
			return fmt.Errorf("%w: %s descriptor needs %q", helpers.ErrDescriptorFieldMissing, typeName, field)
		}
	}
	if typeName == TypePath || typeName == TypeDev {
		if resolveLocalPath(d) == "" {
			return fmt.Errorf("%w: %s descriptor needs %q or a platform path", helpers.ErrDescriptorFieldMissing, typeName, KeyPath)
		}
	}
	return nil
}

// sortedKeys returns the dict's keys except "type", sorted, so every
// serialization of the same location is byte identical.
func sortedKeys(d Dict) []string {
	keys := make([]string, 0, len(d))
	for key := range d {
		if key == KeyType {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
