package usage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

// PurgeBundle deletes a tracked bundle's files and its usage record.
//
// The delete is two-phase: every file and directory under the bundle is
// enumerated up front, the whole list is scanned for symlinks, and only
// then does deletion start. A single symlink anywhere aborts the purge
// untouched, so a cache entry that aliases into another location can
// never cause collateral deletion outside its own tree. The usage
// record is removed only after all filesystem deletion succeeds, which
// keeps a failed purge retryable on a later run.
func (t *Tracker) PurgeBundle(bundle Bundle) error {
	if t == nil || t.db == nil {
		return helpers.ErrUsageDatabaseClosed
	}
	tracked, err := t.Tracked(bundle.Path)
	if err != nil {
		return err
	}
	if !tracked {
		return fmt.Errorf("%w: %s", helpers.ErrBundleNotTracked, bundle.Path)
	}

	absPath := filepath.Join(t.root, bundle.Path)
	entries, err := enumerateTree(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Payload already gone; drop the stale record.
			return t.deleteRecord(bundle.Path)
		}
		return err
	}

	if err := rejectSymlinks(entries); err != nil {
		return err
	}
	if err := deleteEntries(entries); err != nil {
		return err
	}
	if err := t.deleteRecord(bundle.Path); err != nil {
		return err
	}

	// Best effort: drop the now-possibly-empty parent (the version
	// folder's name/org container). Non-empty parents stay.
	_ = os.Remove(filepath.Dir(absPath))
	return nil
}

// treeEntry is one enumerated path with its link-aware file info.
type treeEntry struct {
	path string
	info os.FileInfo
}

// enumerateTree lists every path under root (root included) in
// discovery order, without deleting anything while walking.
func enumerateTree(root string) ([]treeEntry, error) {
	var entries []treeEntry
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		entries = append(entries, treeEntry{path: path, info: info})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// rejectSymlinks fails if any enumerated entry is a symbolic link.
func rejectSymlinks(entries []treeEntry) error {
	for _, entry := range entries {
		// filepath.Walk lstats, so symlinks are visible as such.
		if entry.info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", helpers.ErrPurgeFoundSymlink, entry.path)
		}
	}
	return nil
}

// deleteEntries removes files and then empty directories in strict
// reverse-of-discovery order so children always go before parents.
// Any failure stops the purge immediately; no blind retries.
func deleteEntries(entries []treeEntry) error {
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if _, err := os.Lstat(entry.path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := os.Remove(entry.path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", entry.path, err)
		}
	}
	return nil
}
