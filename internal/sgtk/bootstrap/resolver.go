package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"

	"github.com/studiopipe/sgtk/internal/sgtk/descriptor"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
	"github.com/studiopipe/sgtk/internal/sgtk/output"
	"github.com/studiopipe/sgtk/internal/sgtk/site"
)

// Request names what a session asks the resolver for. PluginID and
// PipelineConfigurationID are mutually exclusive query modes: enumerate
// by plugin id, or look up one pinned configuration by id.
type Request struct {
	PluginID                string
	PipelineConfigurationID int
	FallbackDescriptorURI   string
}

// Resolver picks the one configuration descriptor a session should
// bootstrap.
type Resolver struct {
	Factory     *descriptor.Factory
	Site        site.Connection
	Interpreter InterpreterVersion
	Output      output.Printer
}

// Resolve determines the configuration for a request: a pinned id wins,
// otherwise the best plugin-id match, otherwise the caller's fallback.
// Candidates whose manifest requires a newer interpreter are skipped in
// favor of the next-best compatible one.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Configuration, error) {
	if req.PipelineConfigurationID != 0 && req.PluginID != "" {
		return nil, fmt.Errorf("%w: id %d and plugin id %q",
			helpers.ErrConfigQueryConflict, req.PipelineConfigurationID, req.PluginID)
	}

	if req.PipelineConfigurationID != 0 {
		return r.resolvePinned(ctx, req.PipelineConfigurationID)
	}
	if req.PluginID != "" {
		cfg, err := r.resolveByPlugin(ctx, req.PluginID)
		if err != nil || cfg != nil {
			return cfg, err
		}
	}
	return r.resolveFallback(ctx, req.FallbackDescriptorURI)
}

// resolvePinned looks up one configuration by id. A pinned candidate
// has no next-best alternative, so an interpreter block is an error.
func (r *Resolver) resolvePinned(ctx context.Context, id int) (*Configuration, error) {
	if r.Site == nil {
		return nil, helpers.ErrSiteConnectionNil
	}
	pc, err := r.Site.GetPipelineConfiguration(ctx, id)
	if err != nil {
		return nil, err
	}
	if pc == nil || pc.DescriptorURI == "" {
		return nil, fmt.Errorf("%w: id %d", helpers.ErrConfigNotFound, id)
	}
	cfg, ok, err := r.tryCandidate(ctx, pc.DescriptorURI)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: configuration %d requires interpreter newer than %s",
			helpers.ErrNoCompatibleVersion, id, r.Interpreter)
	}
	return cfg, nil
}

// resolveByPlugin enumerates matching configurations and returns the
// best compatible one, or nil when nothing on the site matches at all.
func (r *Resolver) resolveByPlugin(ctx context.Context, pluginID string) (*Configuration, error) {
	if r.Site == nil {
		return nil, helpers.ErrSiteConnectionNil
	}
	configurations, err := r.Site.FindPipelineConfigurations(ctx, pluginID)
	if err != nil {
		return nil, err
	}

	candidates := rankCandidates(configurations, pluginID)
	if len(candidates) == 0 {
		return nil, nil
	}
	for _, candidate := range candidates {
		cfg, ok, err := r.tryCandidate(ctx, candidate.DescriptorURI)
		if err != nil {
			return nil, err
		}
		if ok {
			return cfg, nil
		}
		r.debugf("configuration %q skipped: requires interpreter newer than %s", candidate.Name, r.Interpreter)
	}
	return nil, fmt.Errorf("%w: every configuration matching plugin id %q requires an interpreter newer than %s",
		helpers.ErrNoCompatibleVersion, pluginID, r.Interpreter)
}

// resolveFallback bootstraps the caller-supplied base configuration.
// The interpreter gate still applies; there is nothing further to fall
// back to.
func (r *Resolver) resolveFallback(ctx context.Context, fallbackURI string) (*Configuration, error) {
	if fallbackURI == "" {
		return nil, fmt.Errorf("%w: no match and no fallback configured", helpers.ErrConfigNotFound)
	}
	cfg, ok, err := r.tryCandidate(ctx, fallbackURI)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: fallback configuration requires interpreter newer than %s",
			helpers.ErrNoCompatibleVersion, r.Interpreter)
	}
	return cfg, nil
}

// tryCandidate materializes one candidate and applies the interpreter
// gate. ok is false when the candidate is incompatible.
func (r *Resolver) tryCandidate(ctx context.Context, uri string) (*Configuration, bool, error) {
	desc, err := r.Factory.CreateDescriptorFromURI(descriptor.Config, uri)
	if err != nil {
		return nil, false, err
	}
	if err := desc.EnsureLocal(ctx); err != nil {
		return nil, false, err
	}
	ok, err := r.manifestCompatible(desc)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	cfg, err := newConfiguration(r.Factory, desc)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// manifestCompatible applies the interpreter gate to a local payload.
// A missing manifest or an absent minimum field means no constraint.
func (r *Resolver) manifestCompatible(desc *descriptor.Descriptor) (bool, error) {
	manifest, err := desc.Manifest()
	if err != nil {
		if errors.Is(err, helpers.ErrManifestMissing) {
			return true, nil
		}
		return false, err
	}
	return r.Interpreter.Satisfies(manifest.MinimumPythonVersion)
}

func (r *Resolver) debugf(format string, args ...any) {
	if r.Output != nil {
		r.Output.Debugf(format, args...)
	}
}

// rankCandidates filters configurations to those whose plugin-id
// patterns match pluginID and orders them best first: most specific
// pattern, then most recently updated, then lexicographically smallest
// descriptor URI so ties resolve the same way on every run.
func rankCandidates(configurations []site.PipelineConfiguration, pluginID string) []site.PipelineConfiguration {
	type ranked struct {
		pc    site.PipelineConfiguration
		score int
	}
	var matches []ranked
	for _, pc := range configurations {
		if pc.DescriptorURI == "" {
			continue
		}
		score, ok := matchScore(pc.PluginIDs, pluginID)
		if !ok {
			continue
		}
		matches = append(matches, ranked{pc: pc, score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		if !matches[i].pc.UpdatedAt.Equal(matches[j].pc.UpdatedAt) {
			return matches[i].pc.UpdatedAt.After(matches[j].pc.UpdatedAt)
		}
		return matches[i].pc.DescriptorURI < matches[j].pc.DescriptorURI
	})

	out := make([]site.PipelineConfiguration, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.pc)
	}
	return out
}

// matchScore returns the specificity of the best pattern matching
// pluginID: the count of non-wildcard characters, so "basic.maya"
// outranks "basic.*" which outranks "*".
func matchScore(patterns []string, pluginID string) (int, bool) {
	best := -1
	for _, pattern := range patterns {
		matched, err := path.Match(pattern, pluginID)
		if err != nil || !matched {
			continue
		}
		score := 0
		for _, c := range pattern {
			if c != '*' && c != '?' {
				score++
			}
		}
		if score > best {
			best = score
		}
	}
	return best, best >= 0
}

// SelectCompatibleVersion reduces a version candidate list to the
// newest entry the interpreter can run. Candidates carrying an unmet
// minimum are skipped, never raised.
func SelectCompatibleVersion(candidates []VersionCandidate, interp InterpreterVersion) (string, error) {
	sorted := make([]VersionCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return descriptor.CompareVersions(sorted[i].Version, sorted[j].Version) > 0
	})
	for _, candidate := range sorted {
		ok, err := interp.Satisfies(candidate.MinimumPythonVersion)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate.Version, nil
		}
	}
	return "", fmt.Errorf("%w: interpreter %s", helpers.ErrNoCompatibleVersion, interp)
}

// VersionCandidate pairs a version with the interpreter requirement
// from its manifest, "" when the manifest has none.
type VersionCandidate struct {
	Version              string
	MinimumPythonVersion string
}

// ResolveFrameworkUpdate decides whether an installed framework moves
// to the latest available version. An unmet interpreter requirement or
// a latest version that is not actually newer keeps the installed
// version in place; neither outcome is an error.
func ResolveFrameworkUpdate(installed string, latest VersionCandidate, interp InterpreterVersion) (string, error) {
	ok, err := interp.Satisfies(latest.MinimumPythonVersion)
	if err != nil {
		return "", err
	}
	if !ok {
		return installed, nil
	}
	if installed != "" && descriptor.CompareVersions(latest.Version, installed) <= 0 {
		return installed, nil
	}
	return latest.Version, nil
}
