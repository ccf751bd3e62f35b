package usage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

func trackBundle(t *testing.T, tracker *Tracker, relPath string) Bundle {
	t.Helper()
	if err := tracker.Track(relPath); err != nil {
		t.Fatalf("Track error: %v", err)
	}
	return Bundle{Path: relPath}
}

func TestPurgeBundleRemovesEverything(t *testing.T) {
	t.Parallel()
	tracker := openTestTracker(t)
	relPath := filepath.Join("app_store", "tk-maya", "v1.0.0")
	dir := writeBundle(t, tracker.Root(), true, "app_store", "tk-maya", "v1.0.0")
	if err := os.MkdirAll(filepath.Join(dir, "python", "hooks"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "python", "hooks", "app.py"), []byte("pass\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	bundle := trackBundle(t, tracker, relPath)

	if err := tracker.PurgeBundle(bundle); err != nil {
		t.Fatalf("PurgeBundle error: %v", err)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("bundle files survived purge: %v", err)
	}
	tracked, err := tracker.Tracked(relPath)
	if err != nil {
		t.Fatalf("Tracked error: %v", err)
	}
	if tracked {
		t.Fatal("usage record survived purge")
	}
	// tk-maya held only this version, so the parent goes too.
	if _, err := os.Stat(filepath.Dir(dir)); !os.IsNotExist(err) {
		t.Fatalf("empty parent dir survived purge: %v", err)
	}
}

func TestPurgeBundleKeepsNonEmptyParent(t *testing.T) {
	t.Parallel()
	tracker := openTestTracker(t)
	writeBundle(t, tracker.Root(), true, "app_store", "tk-maya", "v1.0.0")
	other := writeBundle(t, tracker.Root(), true, "app_store", "tk-maya", "v1.1.0")
	bundle := trackBundle(t, tracker, filepath.Join("app_store", "tk-maya", "v1.0.0"))

	if err := tracker.PurgeBundle(bundle); err != nil {
		t.Fatalf("PurgeBundle error: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("sibling version affected by purge: %v", err)
	}
}

func TestPurgeBundleAbortsOnSymlink(t *testing.T) {
	t.Parallel()
	tracker := openTestTracker(t)
	relPath := filepath.Join("app_store", "tk-maya", "v1.0.0")
	dir := writeBundle(t, tracker.Root(), true, "app_store", "tk-maya", "v1.0.0")

	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "precious.txt"), []byte("keep me"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(dir, "alias")); err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	bundle := trackBundle(t, tracker, relPath)

	err := tracker.PurgeBundle(bundle)
	if !errors.Is(err, helpers.ErrPurgeFoundSymlink) {
		t.Fatalf("PurgeBundle = %v, want symlink abort", err)
	}

	// Nothing deleted, record intact, target untouched.
	if _, err := os.Stat(filepath.Join(dir, helpers.ManifestFile)); err != nil {
		t.Fatalf("bundle files deleted despite abort: %v", err)
	}
	tracked, err := tracker.Tracked(relPath)
	if err != nil {
		t.Fatalf("Tracked error: %v", err)
	}
	if !tracked {
		t.Fatal("usage record lost despite abort")
	}
	if _, err := os.Stat(filepath.Join(outside, "precious.txt")); err != nil {
		t.Fatalf("symlink target touched: %v", err)
	}
}

func TestPurgeBundleRequiresTracking(t *testing.T) {
	t.Parallel()
	tracker := openTestTracker(t)
	writeBundle(t, tracker.Root(), true, "app_store", "tk-maya", "v1.0.0")

	err := tracker.PurgeBundle(Bundle{Path: filepath.Join("app_store", "tk-maya", "v1.0.0")})
	if !errors.Is(err, helpers.ErrBundleNotTracked) {
		t.Fatalf("PurgeBundle = %v, want not-tracked error", err)
	}
}

func TestPurgeBundleDropsStaleRecord(t *testing.T) {
	t.Parallel()
	tracker := openTestTracker(t)
	relPath := filepath.Join("app_store", "tk-gone", "v1.0.0")
	bundle := trackBundle(t, tracker, relPath)

	// Payload already removed by other means; the record is stale.
	if err := tracker.PurgeBundle(bundle); err != nil {
		t.Fatalf("PurgeBundle error: %v", err)
	}
	tracked, err := tracker.Tracked(relPath)
	if err != nil {
		t.Fatalf("Tracked error: %v", err)
	}
	if tracked {
		t.Fatal("stale record survived purge")
	}
}
