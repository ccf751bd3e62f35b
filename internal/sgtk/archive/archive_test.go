package archive

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

func TestSanitizeEntryPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "empty", input: "", want: ""},
		{name: "dot", input: ".", want: ""},
		{name: "dot-slash", input: "./", want: ""},
		{name: "abs", input: "/etc/passwd", wantErr: helpers.ErrArchiveEntryIsAbsolutePath},
		{name: "backslash-abs", input: `\windows`, wantErr: helpers.ErrArchiveEntryIsAbsolutePath},
		{name: "escape", input: "../evil", wantErr: helpers.ErrArchiveEntryEscapesDestination},
		{name: "nested-escape", input: "ok/../../evil", wantErr: helpers.ErrArchiveEntryEscapesDestination},
		{name: "ok", input: "dir/file", want: filepath.FromSlash("dir/file")},
		{name: "redundant", input: "dir//./file", want: filepath.FromSlash("dir/file")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := sanitizeEntryPath(tt.input)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("expected error")
				}
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

type tarEntry struct {
	header tar.Header
	body   string
}

// writeTarGz assembles a tar.gz file from entries.
func writeTarGz(t *testing.T, entries []tarEntry) string {
	t.Helper()
	var buf bytes.Buffer
	gz := pgzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for i := range entries {
		entry := &entries[i]
		if entry.header.Mode == 0 {
			entry.header.Mode = 0o644
		}
		entry.header.Size = int64(len(entry.body))
		if err := tw.WriteHeader(&entry.header); err != nil {
			t.Fatalf("WriteHeader: %v", err)
		}
		if _, err := tw.Write([]byte(entry.body)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	path := filepath.Join(t.TempDir(), "bundle.tar.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestExtractTarGz(t *testing.T) {
	t.Parallel()
	archive := writeTarGz(t, []tarEntry{
		{header: tar.Header{Name: "tk-maya/", Typeflag: tar.TypeDir, Mode: 0o755}},
		{header: tar.Header{Name: "tk-maya/info.yml", Typeflag: tar.TypeReg}, body: "display_name: Maya\n"},
		{header: tar.Header{Name: "tk-maya/hooks/scene.py", Typeflag: tar.TypeReg}, body: "pass\n"},
		{header: tar.Header{Name: "tk-maya/link", Typeflag: tar.TypeSymlink, Linkname: "/etc/passwd"}},
	})

	dst := t.TempDir()
	if err := ExtractTarGz(archive, dst); err != nil {
		t.Fatalf("ExtractTarGz error: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dst, "tk-maya", "info.yml"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(raw) != "display_name: Maya\n" {
		t.Fatalf("info.yml = %q", raw)
	}
	if _, err := os.Stat(filepath.Join(dst, "tk-maya", "hooks", "scene.py")); err != nil {
		t.Fatalf("nested file missing: %v", err)
	}
	// Symlink entries are skipped, never materialized.
	if _, err := os.Lstat(filepath.Join(dst, "tk-maya", "link")); !os.IsNotExist(err) {
		t.Fatalf("symlink entry was extracted: %v", err)
	}
}

func TestExtractTarGzRejectsTraversal(t *testing.T) {
	t.Parallel()
	archive := writeTarGz(t, []tarEntry{
		{header: tar.Header{Name: "../outside.txt", Typeflag: tar.TypeReg}, body: "evil\n"},
	})

	dst := t.TempDir()
	if err := ExtractTarGz(archive, dst); !errors.Is(err, helpers.ErrArchiveEntryEscapesDestination) {
		t.Fatalf("ExtractTarGz = %v, want traversal error", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dst), "outside.txt")); !os.IsNotExist(err) {
		t.Fatalf("file escaped the destination: %v", err)
	}
}

func TestExtractTarGzEmptyFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "empty.tar.gz")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := ExtractTarGz(path, t.TempDir()); !errors.Is(err, helpers.ErrFileIsEmpty) {
		t.Fatalf("ExtractTarGz = %v, want empty-file error", err)
	}
}

func TestFileHashSHA256(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "payload.bin")
	content := []byte("bundle payload")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	sum := sha256.Sum256(content)
	want := hex.EncodeToString(sum[:])
	got, err := FileHashSHA256(path)
	if err != nil {
		t.Fatalf("FileHashSHA256 error: %v", err)
	}
	if got != want {
		t.Fatalf("hash = %s, want %s", got, want)
	}
}
