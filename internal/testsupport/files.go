package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// placeholderAudio stands in for source audio. Tests pair it with a fake
// decoder backend, so only the file name matters to resolution.
var placeholderAudio = []byte("fLaC\x00\x00\x00\x22placeholder")

// WriteSourceFiles creates placeholder source files named names under dir and
// returns their paths in the same order.
func WriteSourceFiles(t testing.TB, dir string, names ...string) []string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", path, err)
		}
		if err := os.WriteFile(path, placeholderAudio, 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		paths = append(paths, path)
	}
	return paths
}
