package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"scdmix/internal/config"
	"scdmix/internal/importer"
	"scdmix/internal/manifest"
)

// dirMapping binds a manifest search directory name to a concrete path.
type dirMapping struct {
	name string
	path string
}

func parseDirMappings(values []string) ([]dirMapping, error) {
	mappings := make([]dirMapping, 0, len(values))
	for _, value := range values {
		name, path, ok := strings.Cut(value, "=")
		name = strings.TrimSpace(name)
		path = strings.TrimSpace(path)
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("invalid --dir %q (want name=path)", value)
		}
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, fmt.Errorf("resolve --dir %s: %w", name, err)
		}
		mappings = append(mappings, dirMapping{name: name, path: expanded})
	}
	return mappings, nil
}

// searchPlan returns the directories to try in order: explicit mappings, then
// every default directory of the manifest under each root. A default that is
// explicitly mapped is not searched under the roots.
func searchPlan(m *manifest.Config, mappings []dirMapping, roots []string) []dirMapping {
	plan := append([]dirMapping(nil), mappings...)
	mapped := make(map[string]struct{}, len(mappings))
	for _, mapping := range mappings {
		mapped[mapping.name] = struct{}{}
	}
	names := make([]string, 0, len(m.SearchDirectories))
	for name, dir := range m.SearchDirectories {
		if !dir.Default {
			continue
		}
		if _, ok := mapped[name]; ok {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, root := range roots {
		for _, name := range names {
			plan = append(plan, dirMapping{name: name, path: filepath.Join(root, name)})
		}
	}
	return plan
}

// resolveItem walks the search plan until every source of im is resolved.
func resolveItem(im *importer.Importer, plan []dirMapping) error {
	for _, dir := range plan {
		done, err := im.ResolveSources(dir.name, dir.path)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return nil
}

// purchaseHints lists where unresolved sources can be obtained.
func purchaseHints(m *manifest.Config) []string {
	names := make([]string, 0, len(m.SearchDirectories))
	for name := range m.SearchDirectories {
		names = append(names, name)
	}
	sort.Strings(names)
	var hints []string
	for _, name := range names {
		links := m.SearchDirectories[name].PurchaseLinks
		labels := make([]string, 0, len(links))
		for label := range links {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			hints = append(hints, fmt.Sprintf("%s: %s %s", name, label, links[label]))
		}
	}
	return hints
}
