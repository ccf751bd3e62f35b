package cache

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func countStaging(t *testing.T, root string) int {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(root, "tmp"))
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatalf("ReadDir: %v", err)
	}
	return len(entries)
}

func TestPopulatePublishesAtomically(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	final := filepath.Join(root, "app_store", "tk-maya", "v1.0.0")

	err := Populate(root, final, func(staging string) error {
		return os.WriteFile(filepath.Join(staging, "info.yml"), []byte("display_name: X\n"), 0o644)
	})
	if err != nil {
		t.Fatalf("Populate error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(final, "info.yml")); err != nil {
		t.Fatalf("published payload missing: %v", err)
	}
	if got := countStaging(t, root); got != 0 {
		t.Fatalf("%d staging dirs left behind, want 0", got)
	}
}

func TestPopulateCleansUpOnWriteError(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	final := filepath.Join(root, "app_store", "tk-maya", "v1.0.0")
	boom := errors.New("network down")

	err := Populate(root, final, func(staging string) error {
		// A partial write must never become visible.
		if err := os.WriteFile(filepath.Join(staging, "half"), []byte("x"), 0o644); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Populate = %v, want wrapped write error", err)
	}

	if _, err := os.Stat(final); !os.IsNotExist(err) {
		t.Fatalf("final path exists after failed write: %v", err)
	}
	if got := countStaging(t, root); got != 0 {
		t.Fatalf("%d staging dirs left behind, want 0", got)
	}
}

func TestPopulateLostRaceKeepsExistingEntry(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	final := filepath.Join(root, "app_store", "tk-maya", "v1.0.0")

	if err := os.MkdirAll(final, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(final, "info.yml"), []byte("display_name: winner\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	err := Populate(root, final, func(staging string) error {
		return os.WriteFile(filepath.Join(staging, "info.yml"), []byte("display_name: loser\n"), 0o644)
	})
	if err != nil {
		t.Fatalf("losing the race must not be an error: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(final, "info.yml"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(raw) != "display_name: winner\n" {
		t.Fatalf("existing entry overwritten: %q", raw)
	}
	if got := countStaging(t, root); got != 0 {
		t.Fatalf("%d staging dirs left behind, want 0", got)
	}
}

func TestPopulateConcurrent(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	final := filepath.Join(root, "app_store", "tk-maya", "v1.0.0")
	const writers = 10

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = Populate(root, final, func(staging string) error {
				// Every writer produces the same payload, as real
				// downloads of one pinned version do.
				payload := filepath.Join(staging, "payload.txt")
				if err := os.WriteFile(payload, []byte("bundle v1.0.0\n"), 0o644); err != nil {
					return err
				}
				return os.WriteFile(filepath.Join(staging, "info.yml"), []byte("display_name: X\n"), 0o644)
			})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d failed: %v", i, err)
		}
	}
	raw, err := os.ReadFile(filepath.Join(final, "payload.txt"))
	if err != nil {
		t.Fatalf("payload missing after race: %v", err)
	}
	if string(raw) != "bundle v1.0.0\n" {
		t.Fatalf("payload corrupted: %q", raw)
	}

	// No duplicate suffixed directories next to the published one.
	entries, err := os.ReadDir(filepath.Dir(final))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one version dir, got %d", len(entries))
	}
	if got := countStaging(t, root); got != 0 {
		t.Fatalf("%d staging dirs left behind, want 0", got)
	}
}

func TestPopulateRequiresRoot(t *testing.T) {
	t.Parallel()
	err := Populate("", "/x/y", func(string) error { return nil })
	if err == nil {
		t.Fatal("empty root must be rejected")
	}
}

func TestCopyTreePreservesSymlinks(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "file.txt"), []byte("data"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.Symlink("file.txt", filepath.Join(src, "link")); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "copy")
	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("CopyTree error: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dst, "file.txt"))
	if err != nil || string(raw) != "data" {
		t.Fatalf("file copy broken: %q, %v", raw, err)
	}
	target, err := os.Readlink(filepath.Join(dst, "link"))
	if err != nil || target != "file.txt" {
		t.Fatalf("symlink not recreated: %q, %v", target, err)
	}
	info, err := os.Stat(filepath.Join(dst, "file.txt"))
	if err != nil || info.Mode().Perm() != 0o600 {
		t.Fatalf("mode not preserved: %v, %v", info, err)
	}
}
