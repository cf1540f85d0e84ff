package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"scdmix/internal/manifest"
)

// Lister enumerates the regular files of a directory.
type Lister interface {
	ListFiles(dir string) ([]string, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc func(dir string) ([]string, error)

// ListFiles calls f(dir).
func (f ListerFunc) ListFiles(dir string) ([]string, error) { return f(dir) }

type osLister struct{}

func (osLister) ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLister injects a custom directory lister (primarily for tests).
func WithLister(l Lister) Option {
	return func(r *Resolver) {
		if l != nil {
			r.lister = l
		}
	}
}

// Resolver tracks resolved paths for the sources of one manifest item.
type Resolver struct {
	sources map[string]manifest.SourceItem
	lister  Lister

	mu       sync.Mutex
	resolved map[string][]string
}

// New constructs a Resolver for the provided sources.
func New(sources map[string]manifest.SourceItem, opts ...Option) *Resolver {
	r := &Resolver{
		sources:  sources,
		lister:   osLister{},
		resolved: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve tries every file group of the named source against the files in
// dir, which is known by dirName in the manifest. It returns true when the
// source is resolved, either now or by an earlier call. A false result leaves
// the recorded state untouched.
func (r *Resolver) Resolve(sourceName, dirName, dir string) (bool, error) {
	source, ok := r.sources[sourceName]
	if !ok {
		return false, fmt.Errorf("resolve: unknown source %q", sourceName)
	}

	r.mu.Lock()
	if _, done := r.resolved[sourceName]; done {
		r.mu.Unlock()
		return true, nil
	}
	r.mu.Unlock()

	names, err := r.lister.ListFiles(dir)
	if err != nil {
		return false, fmt.Errorf("resolve: list %s: %w", dir, err)
	}
	names = append([]string(nil), names...)
	sort.Strings(names)

	for _, group := range source.InputFiles {
		matched, ok := matchGroup(group, dirName, names)
		if !ok {
			continue
		}
		paths := make([]string, len(matched))
		for i, name := range matched {
			paths[i] = filepath.Join(dir, name)
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, done := r.resolved[sourceName]; !done {
			r.resolved[sourceName] = paths
		}
		return true, nil
	}
	return false, nil
}

// Clear forgets the resolution of the named source so a later directory can
// supply it.
func (r *Resolver) Clear(sourceName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resolved, sourceName)
}

// Resolved reports whether the named source has paths recorded.
func (r *Resolver) Resolved(sourceName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.resolved[sourceName]) > 0
}

// Paths returns a copy of the resolved paths for the named source.
func (r *Resolver) Paths(sourceName string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.resolved[sourceName]...)
}

// All returns a copy of every resolution, keyed by source name.
func (r *Resolver) All() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]string, len(r.resolved))
	for name, paths := range r.resolved {
		out[name] = append([]string(nil), paths...)
	}
	return out
}

// Unresolved returns the sorted names of sources without a resolution.
func (r *Resolver) Unresolved() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for name := range r.sources {
		if len(r.resolved[name]) == 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// matchGroup assigns a distinct file to every slot, in slot order. Names must
// be sorted so the lowest matching name wins.
func matchGroup(group []manifest.InputFile, dirName string, names []string) ([]string, bool) {
	if len(group) == 0 {
		return nil, false
	}
	used := make(map[string]struct{}, len(group))
	matched := make([]string, 0, len(group))
	for _, slot := range group {
		if slot.Directory != "" && slot.Directory != dirName {
			return nil, false
		}
		found := ""
		for _, name := range names {
			if _, taken := used[name]; taken {
				continue
			}
			if slot.Match(name) {
				found = name
				break
			}
		}
		if found == "" {
			return nil, false
		}
		used[found] = struct{}{}
		matched = append(matched, found)
	}
	return matched, true
}
