package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/studiopipe/sgtk/internal/sgtk/cache"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
	"github.com/studiopipe/sgtk/internal/sgtk/output"
)

// Writer installs a resolved configuration into a pipeline root using
// the backup-then-write protocol: existing core and config payloads are
// moved aside into timestamped backup folders before anything is
// overwritten, and the backups are removed again once the new payload
// is in place. A backup whose cleanup fails stays behind and is retried
// on the next update, so repeated updates never accumulate backups.
//
// The install root is a single-owner resource during an update; the
// protocol assumes no concurrent writer to the same root.
type Writer struct {
	root string
	out  output.Printer
	now  func() time.Time
}

// NewWriter builds a writer for one pipeline configuration root.
func NewWriter(root string, out output.Printer) *Writer {
	return &Writer{root: root, out: out, now: time.Now}
}

// ConfigPath returns the installed configuration payload location.
func (w *Writer) ConfigPath() string {
	return filepath.Join(w.root, "config")
}

// CorePath returns the installed core location.
func (w *Writer) CorePath() string {
	return filepath.Join(w.root, "install", "core")
}

func (w *Writer) configBackupRoot() string {
	return filepath.Join(w.root, "install", "config.backup")
}

func (w *Writer) coreBackupRoot() string {
	return filepath.Join(w.root, "install", "core.backup")
}

// UpdateConfiguration installs cfg into the root. Steps, in order:
// retry deleting backups a previous failed cleanup left behind, move
// existing payloads into fresh timestamped backups, write the new
// payloads, then delete the fresh backups. Cleanup failure is not
// fatal; the configuration is usable either way.
func (w *Writer) UpdateConfiguration(ctx context.Context, cfg *Configuration) error {
	if cfg == nil || cfg.Descriptor == nil {
		return helpers.ErrConfigIsNil
	}

	w.retryStaleBackups(w.configBackupRoot())
	w.retryStaleBackups(w.coreBackupRoot())

	timestamp := w.now().Format(helpers.BackupTimestampLayout)

	configBackup, err := w.backup(w.ConfigPath(), w.configBackupRoot(), timestamp)
	if err != nil {
		return err
	}
	if err := w.writePayload(ctx, cfg.Descriptor, w.ConfigPath()); err != nil {
		return err
	}

	var coreBackup string
	if cfg.Core != nil {
		coreBackup, err = w.backup(w.CorePath(), w.coreBackupRoot(), timestamp)
		if err != nil {
			return err
		}
		if err := w.writePayload(ctx, cfg.Core, w.CorePath()); err != nil {
			return err
		}
	}

	w.cleanupBackup(configBackup)
	w.cleanupBackup(coreBackup)
	return nil
}

// payloadSource is the slice of the descriptor API the writer needs.
type payloadSource interface {
	EnsureLocal(ctx context.Context) error
	Copy(dest string) error
}

// writePayload materializes a descriptor's payload at target.
func (w *Writer) writePayload(ctx context.Context, desc payloadSource, target string) error {
	if err := desc.EnsureLocal(ctx); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), helpers.DirMod); err != nil {
		return err
	}
	return desc.Copy(target)
}

// backup moves target into <backupRoot>/<timestamp>, returning the
// backup path or "" when target did not exist. The backup root always
// keeps a placeholder file so empty-folder sweeps never remove it.
func (w *Writer) backup(target, backupRoot, timestamp string) (string, error) {
	if err := ensurePlaceholder(backupRoot); err != nil {
		return "", err
	}
	if _, err := os.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	dest := filepath.Join(backupRoot, timestamp)
	if err := moveDir(target, dest); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", target, err)
	}
	return dest, nil
}

// cleanupBackup deletes one just-created backup folder. Failure leaves
// the backup for the next update's stale retry and is never fatal.
func (w *Writer) cleanupBackup(backupPath string) {
	if backupPath == "" {
		return
	}
	if err := removeTree(backupPath); err != nil {
		w.debugf("backup %s left in place: %v", backupPath, err)
	}
}

// retryStaleBackups deletes backup folders left behind by earlier
// failed cleanups. Best effort: a folder that still cannot be removed
// stays for the run after this one.
func (w *Writer) retryStaleBackups(backupRoot string) {
	entries, err := os.ReadDir(backupRoot)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		stale := filepath.Join(backupRoot, entry.Name())
		if err := removeTree(stale); err != nil {
			w.debugf("stale backup %s left in place: %v", stale, err)
		}
	}
}

func (w *Writer) debugf(format string, args ...any) {
	if w.out != nil {
		w.out.Debugf(format, args...)
	}
}

// ensurePlaceholder creates the backup root with its placeholder file.
func ensurePlaceholder(backupRoot string) error {
	if err := os.MkdirAll(backupRoot, helpers.DirMod); err != nil {
		return err
	}
	placeholder := filepath.Join(backupRoot, helpers.BackupPlaceholderFile)
	if _, err := os.Stat(placeholder); err == nil {
		return nil
	}
	return os.WriteFile(placeholder, []byte("This file keeps the backup folder from being removed.\n"), helpers.FileMod)
}

// moveDir renames src to dst, falling back to copy-then-delete when
// rename fails, e.g. across filesystems.
func moveDir(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), helpers.DirMod); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := cache.CopyTree(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

// removeTree deletes a directory tree, granting write permission to
// read-only entries first so they do not abort the removal.
func removeTree(root string) error {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.Mode().Perm()&0o200 == 0 {
			_ = os.Chmod(path, info.Mode().Perm()|0o200)
		}
		return nil
	})
	return os.RemoveAll(root)
}
