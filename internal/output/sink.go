package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"scdmix/internal/fileutil"
)

// ErrOutsideRoot is returned for output paths that escape the sink root.
var ErrOutsideRoot = errors.New("path escapes output root")

// FileSink writes containers beneath Root.
type FileSink struct {
	Root string
	// DryRun computes destinations without touching the filesystem.
	DryRun bool

	mu      sync.Mutex
	written []string
}

// Resolve maps a manifest output path to its destination on disk. Absolute
// paths are kept when Root is empty.
func (s *FileSink) Resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("empty output path")
	}
	root := strings.TrimSpace(s.Root)
	if root == "" {
		return filepath.Clean(path), nil
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %s is absolute", ErrOutsideRoot, path)
	}
	rel := filepath.Clean(filepath.FromSlash(path))
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return filepath.Join(root, rel), nil
}

// Emit writes data for one output path.
func (s *FileSink) Emit(path string, data []byte) error {
	dest, err := s.Resolve(path)
	if err != nil {
		return err
	}
	if !s.DryRun {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		if err := fileutil.WriteFileAtomic(dest, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
	}
	s.mu.Lock()
	s.written = append(s.written, dest)
	s.mu.Unlock()
	return nil
}

// Written returns the destinations emitted so far, in emit order.
func (s *FileSink) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}
