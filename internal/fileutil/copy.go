package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// CopyFile copies src to dst, keeping the source permission bits. dst is
// truncated when it exists.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	_, err = copyContents(src, dst, info.Mode().Perm())
	return err
}

// CopyFileMode copies src to dst and gives dst the mode.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	_, err := copyContents(src, dst, mode)
	return err
}

// CopyFileVerified copies src to dst and re-reads dst to compare its size and
// SHA-256 with the source. dst is removed on mismatch.
func CopyFileVerified(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSum, err := copyContents(src, dst, info.Mode().Perm())
	if err != nil {
		return err
	}
	dstSum, size, err := digest(dst)
	if err != nil {
		return err
	}
	if size != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), size)
	}
	if !bytes.Equal(srcSum, dstSum) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: %s differs from %s", dst, src)
	}
	return nil
}

// copyContents streams src into dst and returns the SHA-256 of what it read.
func copyContents(src, dst string, mode os.FileMode) ([]byte, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return nil, err
	}
	hash := sha256.New()
	if _, err := io.Copy(out, io.TeeReader(in, hash)); err != nil {
		_ = out.Close()
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, err
	}
	return hash.Sum(nil), nil
}

func digest(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	hash := sha256.New()
	n, err := io.Copy(hash, f)
	if err != nil {
		return nil, 0, err
	}
	return hash.Sum(nil), n, nil
}
