package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

// Populate writes a bundle into finalPath using the stage-then-publish
// protocol: write populates a private staging directory under the cache
// root's tmp folder, and the staging directory is then renamed into
// place in a single atomic step. If another process publishes finalPath
// first, the staging copy is discarded and the existing entry wins.
// A failed write never leaves a partially populated finalPath behind.
func Populate(root, finalPath string, write func(stagingPath string) error) error {
	if root == "" {
		return helpers.ErrCacheRootEmpty
	}

	staging, err := newStagingDir(root)
	if err != nil {
		return err
	}

	if err := write(staging); err != nil {
		_ = os.RemoveAll(staging)
		return err
	}

	return publish(staging, finalPath)
}

// newStagingDir creates a unique staging directory under <root>/tmp.
func newStagingDir(root string) (string, error) {
	tmpRoot := filepath.Join(root, helpers.CacheTmpDir)
	if err := os.MkdirAll(tmpRoot, helpers.DirMod); err != nil {
		return "", fmt.Errorf("failed to create staging root %s: %w", tmpRoot, err)
	}
	staging, err := os.MkdirTemp(tmpRoot, "populate-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging dir: %w", err)
	}
	return staging, nil
}

// publish renames staging into finalPath. Rename atomicity is the only
// cross-process ordering mechanism: a concurrent winner makes the rename
// fail with an existing finalPath, which is treated as success.
func publish(staging, finalPath string) error {
	if err := os.MkdirAll(filepath.Dir(finalPath), helpers.DirMod); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("failed to create parent of %s: %w", finalPath, err)
	}

	err := os.Rename(staging, finalPath)
	if err == nil {
		return nil
	}
	if info, statErr := os.Stat(finalPath); statErr == nil && info.IsDir() {
		// Lost the race; the published entry is authoritative.
		_ = os.RemoveAll(staging)
		return nil
	}
	_ = os.RemoveAll(staging)
	return fmt.Errorf("failed to publish bundle to %s: %w", finalPath, err)
}

// CopyTree recursively copies src into dst, preserving file modes and
// recreating symlinks. Used by descriptor Copy and by the writer's
// cross-device fallback.
func CopyTree(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dst)
	case info.IsDir():
		return copyDir(src, dst, info)
	default:
		return copyFile(src, dst, info)
	}
}

func copyDir(src, dst string, info os.FileInfo) error {
	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := CopyTree(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, info os.FileInfo) error {
	//nolint:gosec // src is a cache-internal path computed by this package's callers.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	//nolint:gosec // dst is a cache-internal path computed by this package's callers.
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// IsNotExist reports whether err means a missing path, tolerating
// wrapped errors from the populate helpers.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
