package manifest

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

const regexPrefix = "re:"

type matcher interface {
	match(name string) bool
}

type globMatcher struct {
	pattern string
}

func (m globMatcher) match(name string) bool {
	ok, err := path.Match(m.pattern, foldName(name))
	return err == nil && ok
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) match(name string) bool {
	return m.re.MatchString(name)
}

// compilePattern builds a case-insensitive matcher. Plain patterns are globs
// matched against the whole file name; a "re:" prefix selects an anchored
// regular expression.
func compilePattern(pattern string) (matcher, error) {
	trimmed := strings.TrimSpace(pattern)
	if trimmed == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	if expr, ok := strings.CutPrefix(trimmed, regexPrefix); ok {
		re, err := regexp.Compile(`(?i)^(?:` + expr + `)$`)
		if err != nil {
			return nil, fmt.Errorf("compile regex %q: %w", expr, err)
		}
		return regexMatcher{re: re}, nil
	}
	folded := foldName(trimmed)
	if _, err := path.Match(folded, ""); err != nil {
		return nil, fmt.Errorf("compile glob %q: %w", trimmed, err)
	}
	return globMatcher{pattern: folded}, nil
}

func foldName(value string) string {
	return cases.Fold().String(value)
}
