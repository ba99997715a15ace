package organizer

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// MoveFile renames src to dst. When the two paths live on different
// filesystems it falls back to a verified copy followed by removing src.
// An existing dst is never overwritten.
func MoveFile(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%s: %w", dst, ErrDestinationExists)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}

	if err := copyFileVerified(src, dst); err != nil {
		return fmt.Errorf("cross-device copy: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// copyFileVerified streams src to dst, checks the byte count, then re-reads
// dst and compares its SHA256 with the bytes read from src. dst is removed on
// mismatch.
func copyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHasher))
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	dstSum, err := fileDigest(dst)
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("verify copy: %w", err)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstSum) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	_ = os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
	return nil
}

// fileDigest hashes the file at path as it is on disk.
func fileDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
