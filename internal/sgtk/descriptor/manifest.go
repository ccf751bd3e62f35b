package descriptor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
	"gopkg.in/yaml.v3"
)

// Manifest is the info.yml carried by every valid cached bundle. All
// fields are optional.
type Manifest struct {
	DisplayName            string         `yaml:"display_name"`
	Description            string         `yaml:"description"`
	MinimumPythonVersion   string         `yaml:"minimum_python_version"`
	RequiresCoreVersion    string         `yaml:"requires_core_version"`
	RequiresShotgunVersion string         `yaml:"requires_shotgun_version"`
	Frameworks             []FrameworkRef `yaml:"frameworks"`
}

// FrameworkRef names a framework dependency in a bundle manifest.
type FrameworkRef struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// LoadManifest reads the info.yml inside bundlePath.
func LoadManifest(bundlePath string) (*Manifest, error) {
	manifestPath := filepath.Join(bundlePath, helpers.ManifestFile)
	//nolint:gosec // manifestPath lives inside a resolved bundle directory.
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", helpers.ErrManifestMissing, manifestPath)
		}
		return nil, err
	}
	var manifest Manifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", manifestPath, err)
	}
	return &manifest, nil
}
