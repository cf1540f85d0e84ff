package ffmpeg

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Input selects where a decode reads from: file paths, or a reader streamed to
// stdin. Exactly one of Paths or Reader must be set.
type Input struct {
	Paths []string
	// Reader supplies raw bytes in Format when the source is not file based.
	Reader io.Reader
	Format string
}

// Streamed reports whether the input is fed through stdin.
func (in Input) Streamed() bool { return in.Reader != nil }

// Describe returns a short human-readable label for logs and errors.
func (in Input) Describe() string {
	if in.Streamed() {
		if in.Format != "" {
			return "stdin (" + in.Format + ")"
		}
		return "stdin"
	}
	return strings.Join(in.Paths, ", ")
}

// DecodeRequest describes one decode invocation.
type DecodeRequest struct {
	Input Input
	// FilterComplex is an ffmpeg filter graph whose output pad is FilterOutName.
	FilterComplex string
	FilterOutName string
	// AudioFilter is applied after the graph, e.g. a per-segment override.
	AudioFilter string
	// SampleRate forces the output rate when positive.
	SampleRate int
}

const (
	autoMergeLabel = "merged"
	filteredLabel  = "filtered"
)

// BuildArgs returns the ffmpeg arguments for req. Multi-file inputs without a
// filter graph are joined with amerge.
func BuildArgs(req DecodeRequest) ([]string, error) {
	in := req.Input
	if in.Streamed() && len(in.Paths) > 0 {
		return nil, errors.New("ffmpeg args: input has both paths and a reader")
	}
	if !in.Streamed() && len(in.Paths) == 0 {
		return nil, errors.New("ffmpeg args: no input")
	}

	args := []string{"-hide_banner", "-nostats", "-loglevel", "error"}
	inputs := 1
	if in.Streamed() {
		if format := strings.TrimSpace(in.Format); format != "" {
			args = append(args, "-f", format)
		}
		args = append(args, "-i", "pipe:0")
	} else {
		args = append(args, "-nostdin")
		for _, path := range in.Paths {
			args = append(args, "-i", path)
		}
		inputs = len(in.Paths)
	}

	graph := strings.TrimSpace(req.FilterComplex)
	out := strings.TrimSpace(req.FilterOutName)
	if graph != "" && out == "" {
		return nil, errors.New("ffmpeg args: filter graph without output label")
	}
	if graph == "" && inputs > 1 {
		var b strings.Builder
		for i := 0; i < inputs; i++ {
			fmt.Fprintf(&b, "[%d:a]", i)
		}
		fmt.Fprintf(&b, "amerge=inputs=%d[%s]", inputs, autoMergeLabel)
		graph = b.String()
		out = autoMergeLabel
	}

	af := strings.TrimSpace(req.AudioFilter)
	if graph != "" {
		if af != "" {
			graph = fmt.Sprintf("%s;[%s]%s[%s]", graph, out, af, filteredLabel)
			out = filteredLabel
		}
		args = append(args, "-filter_complex", graph, "-map", "["+out+"]")
	} else {
		args = append(args, "-map", "0:a:0")
		if af != "" {
			args = append(args, "-af", af)
		}
	}

	if req.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(req.SampleRate))
	}
	args = append(args,
		"-map_metadata", "-1",
		"-fflags", "+bitexact",
		"-acodec", "pcm_f32le",
		"-f", "wav",
		"pipe:1",
	)
	return args, nil
}
