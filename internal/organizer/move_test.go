package organizer

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMoveFileRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	writeFiles(t, dir, "src.txt", "dst.txt")

	err := MoveFile(src, dst)
	if !errors.Is(err, ErrDestinationExists) {
		t.Fatalf("expected ErrDestinationExists, got %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should remain: %v", err)
	}
}

func TestMoveFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := MoveFile(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := copyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode not preserved: %o", info.Mode().Perm())
	}
}

func TestListFilesSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.txt", "a.txt")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	files, err := ListFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := Names(files)
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "b.txt" {
		t.Fatalf("unexpected listing %v", names)
	}
	if files[0].Size != int64(len("a.txt")) {
		t.Fatalf("unexpected size %d", files[0].Size)
	}
}

func TestFileDigestReadsDiskContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := fileDigest(path)
	if err != nil {
		t.Fatal(err)
	}
	want := sha256.Sum256([]byte("first"))
	if !bytes.Equal(got, want[:]) {
		t.Fatalf("digest = %x, want %x", got, want)
	}

	if err := os.WriteFile(path, []byte("other"), 0o644); err != nil {
		t.Fatal(err)
	}
	changed, err := fileDigest(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(changed, got) {
		t.Fatal("digest did not change with file content")
	}

	if _, err := fileDigest(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
