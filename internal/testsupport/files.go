package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, and any missing parents, holding size filler
// bytes. Sizes below one are written as one byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	WriteBytes(t, path, bytes.Repeat([]byte{'x'}, int(max(size, 1))))
}

// WriteBytes creates path, and any missing parents, holding data.
func WriteBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Tree writes each relative path under root with the given contents and
// returns root.
func Tree(t testing.TB, root string, files map[string]string) string {
	t.Helper()
	for rel, contents := range files {
		WriteBytes(t, filepath.Join(root, filepath.FromSlash(rel)), []byte(contents))
	}
	return root
}
