package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path (and its parent directories) holding content.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// SourceDir creates a directory under t.TempDir() holding one small media
// file per name and returns its path. Names are written verbatim, so callers
// control which of them classify as recordings or timelapses.
func SourceDir(t testing.TB, names ...string) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "session")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir source: %v", err)
	}
	for _, name := range names {
		WriteFile(t, filepath.Join(dir, name), "source:"+name)
	}
	return dir
}
