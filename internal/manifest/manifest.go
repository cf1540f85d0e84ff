package manifest

import (
	"sort"
)

// OriginalSource names the audio of the container being replaced. Segments may
// reference it like any configured source once an original is appended.
const OriginalSource = "target"

// Config is the root of an import manifest.
type Config struct {
	Name              string                     `json:"name" toml:"name"`
	SearchDirectories map[string]SearchDirectory `json:"searchDirectories" toml:"searchDirectories"`
	Items             []Item                     `json:"items" toml:"items"`
}

// SearchDirectory describes a named place where source files may live.
type SearchDirectory struct {
	Default       bool              `json:"default" toml:"default"`
	PurchaseLinks map[string]string `json:"purchaseLinks,omitempty" toml:"purchaseLinks,omitempty"`
}

// Item groups the sources and targets that are imported together.
type Item struct {
	Source map[string]SourceItem `json:"source" toml:"source"`
	Target []Target              `json:"target" toml:"target"`
}

// SourceItem locates and decodes one named source.
type SourceItem struct {
	// InputFiles lists alternatives; each alternative is a group of slots that
	// must all match for the group to resolve.
	InputFiles           [][]InputFile `json:"inputFiles" toml:"inputFiles"`
	FilterComplex        string        `json:"filterComplex,omitempty" toml:"filterComplex,omitempty"`
	FilterComplexOutName string        `json:"filterComplexOutName,omitempty" toml:"filterComplexOutName,omitempty"`
}

// InputFile is one pattern slot of a file group.
type InputFile struct {
	Directory string `json:"directory,omitempty" toml:"directory,omitempty"`
	Pattern   string `json:"pattern" toml:"pattern"`

	matcher matcher
}

// Target is one output track.
type Target struct {
	Path                              []string  `json:"path" toml:"path"`
	SequentialToFfmpegChannelIndexMap []int     `json:"sequentialToFfmpegChannelIndexMap,omitempty" toml:"sequentialToFfmpegChannelIndexMap,omitempty"`
	LoopOffsetDelta                   float64   `json:"loopOffsetDelta,omitempty" toml:"loopOffsetDelta,omitempty"`
	LoopLengthDivisor                 int       `json:"loopLengthDivisor,omitempty" toml:"loopLengthDivisor,omitempty"`
	Segments                          []Segment `json:"segments" toml:"segments"`
	Enable                            *bool     `json:"enable,omitempty" toml:"enable,omitempty"`
}

// Segment is a time-ordered slice of a target.
type Segment struct {
	Channels         []TargetChannel    `json:"channels" toml:"channels"`
	SourceOffsets    map[string]float64 `json:"sourceOffsets,omitempty" toml:"sourceOffsets,omitempty"`
	SourceThresholds map[string]float64 `json:"sourceThresholds,omitempty" toml:"sourceThresholds,omitempty"`
	SourceFilters    map[string]string  `json:"sourceFilters,omitempty" toml:"sourceFilters,omitempty"`
	// Length in seconds; nil means the segment runs to the detected loop end.
	Length *float64 `json:"length,omitempty" toml:"length,omitempty"`
}

// TargetChannel selects one decoded channel of a source.
type TargetChannel struct {
	Source  string `json:"source" toml:"source"`
	Channel int    `json:"channel" toml:"channel"`
}

// Enabled reports whether the target should be produced. Targets are enabled
// unless explicitly disabled.
func (t Target) Enabled() bool {
	return t.Enable == nil || *t.Enable
}

// Divisor returns the loop length divisor, treating non-positive values as 1.
func (t Target) Divisor() int {
	if t.LoopLengthDivisor <= 0 {
		return 1
	}
	return t.LoopLengthDivisor
}

// Sources returns the distinct source names referenced by the target's
// segments, sorted.
func (t Target) Sources() []string {
	seen := make(map[string]struct{})
	for _, seg := range t.Segments {
		for _, ch := range seg.Channels {
			seen[ch.Source] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Offset returns the configured offset in seconds for source.
func (s Segment) Offset(source string) float64 {
	return s.SourceOffsets[source]
}

// Threshold returns the silence threshold for source, or 0 when unset.
func (s Segment) Threshold(source string) float64 {
	return s.SourceThresholds[source]
}

// Filter returns the audio filter override for source.
func (s Segment) Filter(source string) string {
	return s.SourceFilters[source]
}

// Match reports whether name satisfies the slot's pattern. Load must have
// compiled the pattern first.
func (f InputFile) Match(name string) bool {
	if f.matcher == nil {
		return false
	}
	return f.matcher.match(name)
}
