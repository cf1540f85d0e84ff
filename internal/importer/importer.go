package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"sync"

	"scdmix/internal/logging"
	"scdmix/internal/manifest"
	"scdmix/internal/media/ffmpeg"
	"scdmix/internal/media/pcm"
	"scdmix/internal/resolve"
	"scdmix/internal/scd"
	"scdmix/internal/services"
)

var (
	errNoAudio     = errors.New("no audio stream")
	errNotRetained = errors.New("source was not planned for this target")
)

// Options configures an Importer.
type Options struct {
	// SampleRate fixes the output rate. Zero uses the highest probed rate
	// among each target's sources.
	SampleRate int
	// Workers bounds how many targets merge concurrently. Values below 2 merge
	// sequentially.
	Workers int
	Backend Backend
	Logger  *slog.Logger
	// Lister overrides directory listing during resolution.
	Lister resolve.Lister
	// KeepSamples retains the merged float samples on each result.
	KeepSamples bool
}

// EmitFunc receives an encoded container for one output path.
type EmitFunc func(path string, data []byte) error

// Importer merges the targets of one manifest item.
type Importer struct {
	item     manifest.Item
	opts     Options
	backend  Backend
	logger   *slog.Logger
	resolver *resolve.Resolver

	originals      []*scd.Container
	originalData   []byte
	originalFormat string
	originalErr    error

	probeMu sync.Mutex
	probes  map[string]probeEntry
}

type probeEntry struct {
	info ProbeInfo
	err  error
}

// New constructs an Importer for item.
func New(item manifest.Item, opts Options) *Importer {
	var resolverOpts []resolve.Option
	if opts.Lister != nil {
		resolverOpts = append(resolverOpts, resolve.WithLister(opts.Lister))
	}
	return &Importer{
		item:     item,
		opts:     opts,
		backend:  opts.Backend,
		logger:   logging.NewComponentLogger(opts.Logger, "importer"),
		resolver: resolve.New(item.Source, resolverOpts...),
		probes:   make(map[string]probeEntry),
	}
}

// AppendReader registers an existing container. The first one supplies the
// carried-over metadata tables and the audio exposed as the "target" source.
func (im *Importer) AppendReader(c *scd.Container) {
	if c == nil {
		return
	}
	im.originals = append(im.originals, c)
	if len(im.originals) > 1 {
		return
	}
	sound, ok := c.FirstAudio()
	if !ok {
		im.originalErr = errors.New("original container has no audio entry")
		return
	}
	data, format, err := originalStream(sound)
	if err != nil {
		im.originalErr = fmt.Errorf("original audio: %w", err)
		return
	}
	im.originalData, im.originalFormat = data, format
}

// originalStream turns an entry into a file ffmpeg can read from stdin. PCM16
// has no container of its own, so it is rewrapped as WAV; compressed entries
// are passed through in their native container.
func originalStream(sound scd.Sound) ([]byte, string, error) {
	if sound.Codec != scd.CodecPCM16 {
		return sound.EncodedStream()
	}
	samples, err := sound.PCM16()
	if err != nil {
		return nil, "", err
	}
	wav, err := pcm.EncodeWAV(samples, sound.SampleRate, sound.Channels)
	if err != nil {
		return nil, "", err
	}
	return wav, "wav", nil
}

// Resolver exposes the item's resolver for reporting.
func (im *Importer) Resolver() *resolve.Resolver { return im.resolver }

// ResolveSources tries to resolve every unresolved source against dir. It
// returns true once all sources are resolved. A missing directory is not an
// error.
func (im *Importer) ResolveSources(dirName, dir string) (bool, error) {
	all := true
	for _, name := range im.sourceNames() {
		ok, err := im.resolver.Resolve(name, dirName, dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
		if ok {
			im.logger.Debug("source resolved",
				logging.String(logging.FieldSource, name),
				logging.String("directory", dirName),
				logging.Int("files", len(im.resolver.Paths(name))),
			)
		}
		all = all && ok
	}
	return all, nil
}

func (im *Importer) sourceNames() []string {
	names := make([]string, 0, len(im.item.Source))
	for name := range im.item.Source {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (im *Importer) hasOriginal() bool {
	return len(im.originals) > 0
}

// input describes how to feed a source to the decoder.
func (im *Importer) input(source string) (ffmpeg.Input, manifest.SourceItem) {
	if source == manifest.OriginalSource {
		return ffmpeg.Input{Reader: bytes.NewReader(im.originalData), Format: im.originalFormat}, manifest.SourceItem{}
	}
	item := im.item.Source[source]
	return ffmpeg.Input{Paths: im.resolver.Paths(source)}, item
}

// probe inspects a source once per importer lifetime; failures are cached.
func (im *Importer) probe(ctx context.Context, source string) (ProbeInfo, error) {
	im.probeMu.Lock()
	defer im.probeMu.Unlock()
	if entry, ok := im.probes[source]; ok {
		return entry.info, entry.err
	}
	var entry probeEntry
	if source == manifest.OriginalSource && im.originalErr != nil {
		entry.err = services.Wrap(services.ErrProbe, "importer", "probe", source, im.originalErr)
	} else {
		in, _ := im.input(source)
		entry.info, entry.err = im.backend.Probe(ctx, in)
		if entry.err == nil && (entry.info.SampleRate <= 0 || entry.info.Channels <= 0) {
			entry.err = fmt.Errorf("%w: %d Hz, %d channels", errNoAudio, entry.info.SampleRate, entry.info.Channels)
		}
		if entry.err != nil {
			entry.err = services.Wrap(services.ErrProbe, "importer", "probe", source, entry.err)
		}
	}
	im.probes[source] = entry
	if entry.err == nil {
		logging.WithContext(services.WithSource(ctx, source), im.logger).Debug("source probed",
			logging.Int("sample_rate", entry.info.SampleRate),
			logging.Int("channels", entry.info.Channels),
			logging.String("format", entry.info.Format),
		)
	}
	return entry.info, entry.err
}

// openSource starts a decode for key and wraps it in a SourceSet.
func (im *Importer) openSource(ctx context.Context, key sourceKey) (*pcm.SourceSet, error) {
	in, item := im.input(key.source)
	req := ffmpeg.DecodeRequest{
		Input:         in,
		FilterComplex: item.FilterComplex,
		FilterOutName: item.FilterComplexOutName,
		AudioFilter:   key.filter,
		SampleRate:    key.rate,
	}
	src, err := im.backend.Decode(services.WithSource(ctx, key.source), req)
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "importer", "open source", key.source, err)
	}
	if src.Channels() <= 0 {
		_ = src.Close()
		return nil, services.Wrap(services.ErrDecode, "importer", "open source", key.source, errNoAudio)
	}
	return pcm.NewSourceSet(key.source, src), nil
}
