// Package bootstrap decides which pipeline configuration a session runs
// and materializes it on disk. The resolver picks one configuration
// descriptor from the site (or a caller-supplied fallback) with an
// interpreter compatibility gate; the writer installs core and config
// payloads behind a timestamped backup protocol that survives failed
// cleanups.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/studiopipe/sgtk/internal/sgtk/descriptor"
	"gopkg.in/yaml.v3"
)

// coreAPIFile pins the core version a configuration wants to run with.
const coreAPIFile = "core_api.yml"

// Configuration is a resolved pipeline configuration: the descriptor to
// bootstrap plus the core it should run with.
type Configuration struct {
	// Descriptor locates the configuration payload.
	Descriptor *descriptor.Descriptor
	// Core overrides the core version; nil means the caller's ambient
	// core is used.
	Core *descriptor.Descriptor
	// LocalizedCore is true when the configuration pins its own core
	// instead of sharing the studio-wide install.
	LocalizedCore bool
}

// Immutable reports whether the configuration payload is version pinned
// at its source. Mutable configurations (dev, path) are re-read on
// every bootstrap; immutable ones are trusted once cached.
func (c *Configuration) Immutable() bool {
	return c.Descriptor.IsImmutable()
}

// coreAPI is the core_api.yml schema inside a configuration payload.
type coreAPI struct {
	Location map[string]string `yaml:"location"`
}

// newConfiguration builds the Configuration for a locally available
// config descriptor, resolving its optional core pin.
func newConfiguration(factory *descriptor.Factory, desc *descriptor.Descriptor) (*Configuration, error) {
	core, err := resolveCorePin(factory, desc)
	if err != nil {
		return nil, err
	}
	return &Configuration{
		Descriptor:    desc,
		Core:          core,
		LocalizedCore: core != nil,
	}, nil
}

// resolveCorePin reads the configuration's core_api.yml, when present,
// and builds the pinned core descriptor from it.
func resolveCorePin(factory *descriptor.Factory, desc *descriptor.Descriptor) (*descriptor.Descriptor, error) {
	path := desc.GetPath()
	if path == "" {
		return nil, nil
	}
	//nolint:gosec // path is a resolved cache location.
	raw, err := os.ReadFile(filepath.Join(path, coreAPIFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var pin coreAPI
	if err := yaml.Unmarshal(raw, &pin); err != nil {
		return nil, fmt.Errorf("invalid %s in %s: %w", coreAPIFile, path, err)
	}
	if len(pin.Location) == 0 {
		return nil, nil
	}
	return factory.CreateDescriptor(descriptor.Core, descriptor.Dict(pin.Location))
}
