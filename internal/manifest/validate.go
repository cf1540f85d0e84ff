package manifest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate checks the manifest shape and compiles every file pattern. It is
// safe to call more than once.
func (c *Config) Validate() error {
	var problems []string
	for i := range c.Items {
		problems = append(problems, c.Items[i].validate(i)...)
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid manifest: " + strings.Join(problems, "; "))
}

func (it *Item) validate(index int) []string {
	var problems []string
	names := make([]string, 0, len(it.Source))
	for name := range it.Source {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == OriginalSource {
			problems = append(problems, fmt.Sprintf("items[%d].source: %q is reserved for the original container", index, name))
			continue
		}
		src := it.Source[name]
		if len(src.InputFiles) == 0 {
			problems = append(problems, fmt.Sprintf("items[%d].source.%s: no input files", index, name))
		}
		for g, group := range src.InputFiles {
			if len(group) == 0 {
				problems = append(problems, fmt.Sprintf("items[%d].source.%s.inputFiles[%d]: empty group", index, name, g))
			}
			for s := range group {
				m, err := compilePattern(group[s].Pattern)
				if err != nil {
					problems = append(problems, fmt.Sprintf("items[%d].source.%s.inputFiles[%d][%d]: %v", index, name, g, s, err))
					continue
				}
				group[s].matcher = m
			}
		}
		if strings.TrimSpace(src.FilterComplex) != "" && strings.TrimSpace(src.FilterComplexOutName) == "" {
			problems = append(problems, fmt.Sprintf("items[%d].source.%s: filterComplexOutName required with filterComplex", index, name))
		}
	}
	for t, target := range it.Target {
		if len(target.Path) == 0 {
			problems = append(problems, fmt.Sprintf("items[%d].target[%d]: no output path", index, t))
		}
		if len(target.Segments) == 0 {
			problems = append(problems, fmt.Sprintf("items[%d].target[%d]: no segments", index, t))
		}
		for _, idx := range target.SequentialToFfmpegChannelIndexMap {
			if idx < 0 {
				problems = append(problems, fmt.Sprintf("items[%d].target[%d]: negative channel map entry %d", index, t, idx))
				break
			}
		}
		for s, seg := range target.Segments {
			if len(seg.Channels) == 0 {
				problems = append(problems, fmt.Sprintf("items[%d].target[%d].segments[%d]: no channels", index, t, s))
			}
			for c, ch := range seg.Channels {
				if strings.TrimSpace(ch.Source) == "" {
					problems = append(problems, fmt.Sprintf("items[%d].target[%d].segments[%d].channels[%d]: missing source", index, t, s, c))
				}
				if ch.Channel < 0 {
					problems = append(problems, fmt.Sprintf("items[%d].target[%d].segments[%d].channels[%d]: negative channel", index, t, s, c))
				}
			}
			if seg.Length != nil && *seg.Length <= 0 {
				problems = append(problems, fmt.Sprintf("items[%d].target[%d].segments[%d]: length must be positive", index, t, s))
			}
		}
	}
	return problems
}
