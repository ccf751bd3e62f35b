// Package archive extracts app-store bundle payloads (tar.gz) with
// path-traversal and size safety checks.
package archive

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

// ExtractTarGz extracts a tar.gz archive into dstDir.
func ExtractTarGz(tarGzFile, dstDir string) error {
	info, err := os.Stat(tarGzFile)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", tarGzFile, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", helpers.ErrFileIsEmpty, tarGzFile)
	}

	//nolint:gosec // tarGzFile is a staged download owned by this process.
	file, err := os.Open(tarGzFile)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	stream, err := pgzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() {
		_ = stream.Close()
	}()

	return extractEntries(tar.NewReader(stream), dstDir)
}

func extractEntries(reader *tar.Reader, dstDir string) error {
	var extracted int64
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading archive: %w", err)
		}
		if err := extractEntry(reader, header, dstDir, &extracted); err != nil {
			return err
		}
	}
}

func extractEntry(reader *tar.Reader, header *tar.Header, dstDir string, extracted *int64) error {
	relPath, err := sanitizeEntryPath(header.Name)
	if err != nil {
		return err
	}
	if relPath == "" {
		return nil
	}
	targetPath := filepath.Join(dstDir, relPath)

	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(targetPath, helpers.DirMod)
	case tar.TypeReg:
		return extractFile(reader, header, targetPath, extracted)
	default:
		// Symlinks and other entry types are skipped: cached bundle
		// payloads must never alias outside their own tree (the purge
		// safety check depends on this).
		return nil
	}
}

func extractFile(reader *tar.Reader, header *tar.Header, targetPath string, extracted *int64) error {
	if header.Size < 0 {
		return fmt.Errorf("%w: %s", helpers.ErrArchiveEntryHasNegativeSize, header.Name)
	}
	if header.Size > helpers.ArchiveMaxEntrySize {
		return fmt.Errorf("%w: %s (%d bytes)", helpers.ErrArchiveEntryIsTooLarge, header.Name, header.Size)
	}
	if *extracted+header.Size > helpers.ArchiveMaxTotalSize {
		return fmt.Errorf("%w: limit %d bytes", helpers.ErrArchiveExceedsMaxSize, helpers.ArchiveMaxTotalSize)
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), helpers.DirMod); err != nil {
		return fmt.Errorf("failed to create directories for %s: %w", targetPath, err)
	}

	mode := header.FileInfo().Mode().Perm()
	//nolint:gosec // targetPath is a sanitized entry under the staging dir.
	file, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", targetPath, err)
	}
	written, err := io.CopyN(file, reader, header.Size)
	if err != nil && !errors.Is(err, io.EOF) {
		_ = file.Close()
		return fmt.Errorf("failed to write %s: %w", targetPath, err)
	}
	*extracted += written
	return file.Close()
}

// sanitizeEntryPath rejects absolute and escaping entry names and
// returns a clean relative path, or "" for entries to skip.
func sanitizeEntryPath(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == "./" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, `\`) {
		return "", fmt.Errorf("%w: %s", helpers.ErrArchiveEntryIsAbsolutePath, name)
	}
	clean := filepath.Clean(trimmed)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", helpers.ErrArchiveEntryEscapesDestination, name)
	}
	return clean, nil
}

// FileHashSHA256 returns the hex SHA-256 of a file's contents.
func FileHashSHA256(path string) (string, error) {
	//nolint:gosec // path is a staged download owned by this process.
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
