package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"scdmix/internal/config"
	"scdmix/internal/manifest"
	"scdmix/internal/scd"
)

// originalSet maps a manifest output path to the existing container that
// path replaces.
type originalSet map[string]*scd.Container

func originalKey(path string) string {
	return filepath.ToSlash(filepath.Clean(strings.TrimSpace(path)))
}

// loadOriginals parses repeated --original output=file values.
func loadOriginals(values []string) (originalSet, error) {
	set := make(originalSet, len(values))
	for _, value := range values {
		target, file, ok := strings.Cut(value, "=")
		if !ok || strings.TrimSpace(target) == "" || strings.TrimSpace(file) == "" {
			return nil, fmt.Errorf("invalid --original %q (want output-path=file.scd)", value)
		}
		key := originalKey(target)
		if _, dup := set[key]; dup {
			return nil, fmt.Errorf("--original given twice for %s", key)
		}
		expanded, err := config.ExpandPath(strings.TrimSpace(file))
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(expanded)
		if err != nil {
			return nil, fmt.Errorf("read original: %w", err)
		}
		c, err := scd.Read(data)
		if err != nil {
			return nil, fmt.Errorf("original %s: %w", file, err)
		}
		set[key] = c
	}
	return set, nil
}

// lookup returns the container bound to any of a target's paths.
func (s originalSet) lookup(target manifest.Target) (string, *scd.Container) {
	for _, path := range target.Path {
		key := originalKey(path)
		if c, ok := s[key]; ok {
			return key, c
		}
	}
	return "", nil
}

// unused lists bound output paths that no manifest target matched.
func (s originalSet) unused(seen map[string]bool) []string {
	var keys []string
	for key := range s {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// itemPart is the slice of an item merged by one importer. Targets outside
// the part are disabled so result indices still match the manifest.
type itemPart struct {
	item     manifest.Item
	original *scd.Container
}

// splitByOriginal gives every target with a bound original its own part so
// that container never reaches another target. Unbound targets share one
// part.
func splitByOriginal(item manifest.Item, originals originalSet, seen map[string]bool) []itemPart {
	bound := make(map[int]*scd.Container)
	for i, target := range item.Target {
		if !target.Enabled() {
			continue
		}
		if key, c := originals.lookup(target); c != nil {
			bound[i] = c
			seen[key] = true
		}
	}
	if len(bound) == 0 {
		return []itemPart{{item: item}}
	}

	var parts []itemPart
	if len(bound) < enabledTargets(item) {
		parts = append(parts, itemPart{item: onlyTargets(item, func(i int) bool { return bound[i] == nil })})
	}
	for i := range item.Target {
		if c := bound[i]; c != nil {
			parts = append(parts, itemPart{item: onlyTargets(item, func(j int) bool { return j == i }), original: c})
		}
	}
	return parts
}

func enabledTargets(item manifest.Item) int {
	n := 0
	for _, target := range item.Target {
		if target.Enabled() {
			n++
		}
	}
	return n
}

func onlyTargets(item manifest.Item, keep func(int) bool) manifest.Item {
	disabled := false
	item.Target = slices.Clone(item.Target)
	for i := range item.Target {
		if !keep(i) {
			item.Target[i].Enable = &disabled
		}
	}
	return item
}
