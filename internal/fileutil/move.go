package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Move renames src to dst. When the rename crosses devices the file is
// copied with verification and the source removed.
func Move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EXDEV) {
		return err
	}
	info, statErr := os.Stat(src)
	if statErr != nil {
		return statErr
	}
	if info.IsDir() {
		if err := CopyDir(src, dst); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}
	if err := CopyFileVerified(src, dst); err != nil {
		return fmt.Errorf("cross-device move: %w", err)
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Remove(src)
}

// CopyDir recreates src below dst, copying every regular file. dst must not
// exist yet.
func CopyDir(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("copy dir: %s already exists", dst)
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode().IsRegular():
			return CopyFileMode(path, target, info.Mode().Perm())
		default:
			return nil
		}
	})
}

// UniquePath returns path when nothing exists there, otherwise the first
// "path[n]" (before any extension for files) that is free.
func UniquePath(path string, isDir bool) string {
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		return path
	}
	base, ext := path, ""
	if !isDir {
		ext = filepath.Ext(path)
		base = path[:len(path)-len(ext)]
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s[%d]%s", base, n, ext)
		if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
	}
}

// ChmodTree applies dirMode to every directory and fileMode to every regular
// file below root, root included. Zero modes are skipped.
func ChmodTree(root string, dirMode, fileMode os.FileMode) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch {
		case d.IsDir() && dirMode != 0:
			return os.Chmod(path, dirMode)
		case d.Type().IsRegular() && fileMode != 0:
			return os.Chmod(path, fileMode)
		}
		return nil
	})
}
