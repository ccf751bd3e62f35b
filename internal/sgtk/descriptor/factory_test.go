package descriptor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/studiopipe/sgtk/internal/sgtk/cache"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
	"github.com/studiopipe/sgtk/internal/sgtk/usage"
)

func testEnv(t *testing.T) Env {
	t.Helper()
	return Env{Roots: cache.Roots{Primary: t.TempDir()}}
}

func writeBundle(t *testing.T, root string, withManifest bool, segments ...string) string {
	t.Helper()
	dir := filepath.Join(append([]string{root}, segments...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if withManifest {
		manifest := filepath.Join(dir, helpers.ManifestFile)
		if err := os.WriteFile(manifest, []byte("display_name: Test Bundle\n"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	return dir
}

func TestCreateDescriptorMemoizes(t *testing.T) {
	t.Parallel()
	factory := NewFactory(testEnv(t))
	d := Dict{KeyType: TypeManual, KeyName: "tk-internal", KeyVersion: "v1.0.0"}

	first, err := factory.CreateDescriptor(App, d)
	if err != nil {
		t.Fatalf("CreateDescriptor error: %v", err)
	}
	second, err := factory.CreateDescriptor(App, d.Clone())
	if err != nil {
		t.Fatalf("CreateDescriptor error: %v", err)
	}
	if first != second {
		t.Fatal("structurally identical requests must share one descriptor")
	}

	// A different bundle type is a different memo entry.
	other, err := factory.CreateDescriptor(Framework, d)
	if err != nil {
		t.Fatalf("CreateDescriptor error: %v", err)
	}
	if other == first {
		t.Fatal("bundle type must be part of the memo key")
	}
}

func TestCreateDescriptorUnknownType(t *testing.T) {
	t.Parallel()
	factory := NewFactory(testEnv(t))
	_, err := factory.CreateDescriptor(App, Dict{KeyType: "teleport", KeyName: "x"})
	if !errors.Is(err, helpers.ErrDescriptorTypeUnknown) {
		t.Fatalf("expected unknown-type error, got %v", err)
	}
}

type stubIO struct {
	ioBase
}

func (s *stubIO) EnsureLocal(context.Context) error   { return nil }
func (s *stubIO) DownloadLocal(context.Context) error { return nil }
func (s *stubIO) FindLatestVersion(context.Context, string) (Dict, error) {
	return s.dict.Clone(), nil
}
func (s *stubIO) FindLatestCachedVersion(string) (Dict, bool, error) { return nil, false, nil }
func (s *stubIO) IsImmutable() bool                                  { return true }

func TestRegisterCustomType(t *testing.T) {
	t.Parallel()
	factory := NewFactory(testEnv(t))
	factory.Register("bitbucket", func(env Env, d Dict) (IODescriptor, error) {
		return &stubIO{ioBase: newIOBase(d, env.Roots, "bitbucket", d[KeyOrganization], d[KeyRepository], d[KeyVersion])}, nil
	})

	desc, err := factory.CreateDescriptorFromURI(App,
		"sgtk:descriptor:bitbucket?organization=studio&repository=tk-x&version=v1.0.0")
	if err != nil {
		t.Fatalf("CreateDescriptorFromURI error: %v", err)
	}
	if !desc.IsImmutable() {
		t.Fatal("custom backend not dispatched")
	}
}

func TestFindLatestCachedVersion(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	writeBundle(t, env.Roots.Primary, true, manualFamily, "tk-internal", "v1.1.1")
	writeBundle(t, env.Roots.Primary, true, manualFamily, "tk-internal", "v1.2.1")
	// Presence of the directory, not the manifest, decides "cached".
	writeBundle(t, env.Roots.Primary, false, manualFamily, "tk-internal", "v1.3.1")

	factory := NewFactory(env)
	desc, err := factory.CreateDescriptor(App, Dict{KeyType: TypeManual, KeyName: "tk-internal", KeyVersion: "v1.0.0"})
	if err != nil {
		t.Fatalf("CreateDescriptor error: %v", err)
	}

	latest, err := desc.FindLatestCachedVersion("")
	if err != nil {
		t.Fatalf("FindLatestCachedVersion error: %v", err)
	}
	if latest == nil || latest.Version() != "v1.3.1" {
		t.Fatalf("got %v, want v1.3.1", latest)
	}

	constrained, err := desc.FindLatestCachedVersion("v1.1.x")
	if err != nil {
		t.Fatalf("FindLatestCachedVersion error: %v", err)
	}
	if constrained == nil || constrained.Version() != "v1.1.1" {
		t.Fatalf("got %v, want v1.1.1", constrained)
	}

	none, err := desc.FindLatestCachedVersion("v2.x.x")
	if err != nil {
		t.Fatalf("FindLatestCachedVersion error: %v", err)
	}
	if none != nil {
		t.Fatalf("got %v, want nil for unmatched pattern", none)
	}
}

type mirrorHook struct {
	claimed int
}

func (h *mirrorHook) CanCacheBundle(*Descriptor) bool { return true }

func (h *mirrorHook) PopulateBundleCacheEntry(_ context.Context, destination string, _ *Descriptor) error {
	h.claimed++
	return os.WriteFile(filepath.Join(destination, helpers.ManifestFile), []byte("display_name: Mirrored\n"), 0o644)
}

func TestEnsureLocalViaHook(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	factory := NewFactory(env)
	hook := &mirrorHook{}
	factory.SetHook(hook)

	// Manual descriptors have no transport, so only the hook can
	// populate this payload.
	desc, err := factory.CreateDescriptor(App, Dict{KeyType: TypeManual, KeyName: "tk-internal", KeyVersion: "v2.0.0"})
	if err != nil {
		t.Fatalf("CreateDescriptor error: %v", err)
	}
	if err := desc.EnsureLocal(context.Background()); err != nil {
		t.Fatalf("EnsureLocal error: %v", err)
	}
	if hook.claimed != 1 {
		t.Fatalf("hook invoked %d times, want 1", hook.claimed)
	}
	if desc.GetPath() == "" {
		t.Fatal("payload not published to the cache")
	}

	// Second ensure is served from the cache.
	if err := desc.EnsureLocal(context.Background()); err != nil {
		t.Fatalf("EnsureLocal error: %v", err)
	}
	if hook.claimed != 1 {
		t.Fatalf("hook invoked %d times after cached ensure, want 1", hook.claimed)
	}
}

func TestEnsureLocalTracksUsage(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	writeBundle(t, env.Roots.Primary, true, manualFamily, "tk-internal", "v1.0.0")

	tracker, err := usage.Open(env.Roots.Primary)
	if err != nil {
		t.Fatalf("usage.Open error: %v", err)
	}
	defer func() {
		_ = tracker.Close()
	}()

	factory := NewFactory(env)
	factory.SetUsageTracker(tracker)
	desc, err := factory.CreateDescriptor(App, Dict{KeyType: TypeManual, KeyName: "tk-internal", KeyVersion: "v1.0.0"})
	if err != nil {
		t.Fatalf("CreateDescriptor error: %v", err)
	}
	if err := desc.EnsureLocal(context.Background()); err != nil {
		t.Fatalf("EnsureLocal error: %v", err)
	}

	relPath := filepath.Join(manualFamily, "tk-internal", "v1.0.0")
	tracked, err := tracker.Tracked(relPath)
	if err != nil {
		t.Fatalf("Tracked error: %v", err)
	}
	if !tracked {
		t.Fatalf("access to %s not recorded", relPath)
	}
}
