package importer

import (
	"context"
	"log/slog"
	"strings"

	"scdmix/internal/media/ffmpeg"
	"scdmix/internal/media/ffprobe"
	"scdmix/internal/media/pcm"
	"scdmix/internal/services"
)

// ProbeInfo summarizes the audio of one source input.
type ProbeInfo struct {
	SampleRate int
	Channels   int
	Format     string
}

// Backend probes and decodes source inputs.
type Backend interface {
	Probe(ctx context.Context, in ffmpeg.Input) (ProbeInfo, error)
	Decode(ctx context.Context, req ffmpeg.DecodeRequest) (pcm.SampleSource, error)
}

// ToolBackend runs ffprobe and ffmpeg.
type ToolBackend struct {
	ffprobe string
	decoder *ffmpeg.Decoder
}

// NewToolBackend constructs a backend for the given binaries.
func NewToolBackend(ffprobeBinary, ffmpegBinary string, logger *slog.Logger) *ToolBackend {
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &ToolBackend{
		ffprobe: ffprobeBinary,
		decoder: ffmpeg.New(ffmpegBinary, ffmpeg.WithLogger(logger)),
	}
}

// Probe inspects every input file. The sample rate is the highest among the
// files, channels are summed, and format names are joined with "+".
func (b *ToolBackend) Probe(ctx context.Context, in ffmpeg.Input) (ProbeInfo, error) {
	if in.Streamed() {
		result, err := ffprobe.InspectReader(ctx, b.ffprobe, in.Format, in.Reader)
		if err != nil {
			return ProbeInfo{}, err
		}
		return summarize([]ffprobe.Result{result})
	}
	results := make([]ffprobe.Result, 0, len(in.Paths))
	for _, path := range in.Paths {
		result, err := ffprobe.Inspect(ctx, b.ffprobe, path)
		if err != nil {
			return ProbeInfo{}, err
		}
		results = append(results, result)
	}
	return summarize(results)
}

func summarize(results []ffprobe.Result) (ProbeInfo, error) {
	var info ProbeInfo
	formats := make([]string, 0, len(results))
	for _, result := range results {
		stream, ok := result.PrimaryAudio()
		if !ok {
			return ProbeInfo{}, services.Wrap(services.ErrProbe, "ffprobe", "inspect", result.Format.Filename, errNoAudio)
		}
		info.SampleRate = max(info.SampleRate, stream.SampleRateHz())
		info.Channels += stream.Channels
		formats = append(formats, result.Format.FormatName)
	}
	info.Format = strings.Join(formats, "+")
	return info, nil
}

// Decode starts an ffmpeg decode.
func (b *ToolBackend) Decode(ctx context.Context, req ffmpeg.DecodeRequest) (pcm.SampleSource, error) {
	stream, err := b.decoder.Open(ctx, req)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
