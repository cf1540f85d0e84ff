package importer

import (
	"context"
	"fmt"
	"math"
	"sync"

	"scdmix/internal/fileutil"
	"scdmix/internal/logging"
	"scdmix/internal/manifest"
	"scdmix/internal/media/pcm"
	"scdmix/internal/scd"
	"scdmix/internal/services"
)

// TargetResult reports the outcome of one target.
type TargetResult struct {
	Index int
	Paths []string
	// Source names the source a failure is attributed to, if any.
	Source     string
	Err        error
	Frames     int
	Channels   int
	SampleRate int
	// LoopStart and LoopEnd are frame positions; both are zero without a loop.
	LoopStart int
	LoopEnd   int
	Digest    string
	// Samples holds the merged interleaved output when Options.KeepSamples is set.
	Samples []float32
}

// OK reports whether the target was written.
func (r TargetResult) OK() bool { return r.Err == nil }

// plan is the work for one target after validation and probing.
type plan struct {
	index  int
	target manifest.Target
	rate   int
	keys   []sourceKey
}

// Merge produces every enabled target and returns one result per target in
// manifest order.
func (im *Importer) Merge(ctx context.Context, emit EmitFunc) []TargetResult {
	results := make([]TargetResult, 0, len(im.item.Target))
	pending := make([]int, 0, len(im.item.Target))
	arena := newArena(im.openSource)
	plans := make(map[int]*plan)

	for i, target := range im.item.Target {
		if !target.Enabled() {
			continue
		}
		res := TargetResult{Index: i, Paths: append([]string(nil), target.Path...)}
		tctx := services.WithTarget(ctx, i)
		p, source, err := im.planTarget(tctx, i, target)
		if err != nil {
			res.Source = source
			res.Err = err
			im.reportFailure(tctx, res)
		} else {
			for _, key := range p.keys {
				arena.retain(key)
			}
			plans[i] = p
			pending = append(pending, len(results))
		}
		results = append(results, res)
	}

	run := func(slot int) {
		res := &results[slot]
		p := plans[res.Index]
		defer func() {
			for _, key := range p.keys {
				arena.release(key)
			}
		}()
		tctx := services.WithTarget(ctx, p.index)
		im.mergeTarget(ctx, tctx, arena, p, emit, res)
		if res.Err != nil {
			im.reportFailure(tctx, *res)
		}
	}

	workers := im.opts.Workers
	if workers < 2 || len(pending) < 2 {
		for _, slot := range pending {
			run(slot)
		}
		return results
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, slot := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot int) {
			defer wg.Done()
			defer func() { <-sem }()
			run(slot)
		}(slot)
	}
	wg.Wait()
	return results
}

func (im *Importer) reportFailure(ctx context.Context, res TargetResult) {
	logger := logging.WithContext(services.WithSource(ctx, res.Source), im.logger)
	logging.WarnWithContext(logger, "target failed", "target_"+services.Kind(res.Err),
		logging.Error(res.Err),
		logging.String(logging.FieldErrorHint, failureHint(res.Err)),
	)
}

func failureHint(err error) string {
	switch services.Kind(err) {
	case "resolution":
		return "check search directories or pass --dir name=path"
	case "config_invariant":
		return "fix the channel references in the manifest"
	case "probe", "decode":
		return "run scdmix probe on the source files"
	case "output":
		return "check that the output directory is writable"
	default:
		return "check logs for details"
	}
}

// planTarget validates references and resolution, then probes the sources
// to fix the target rate. Nothing is opened here.
func (im *Importer) planTarget(ctx context.Context, index int, target manifest.Target) (*plan, string, error) {
	for si, seg := range target.Segments {
		for ci, ch := range seg.Channels {
			if ch.Channel < 0 {
				return nil, ch.Source, services.Wrap(services.ErrConfigInvariant, "importer", "validate",
					fmt.Sprintf("segment %d channel %d: negative channel index %d", si, ci, ch.Channel), nil)
			}
			if ch.Source == manifest.OriginalSource {
				if !im.hasOriginal() {
					return nil, ch.Source, services.Wrap(services.ErrConfigInvariant, "importer", "validate",
						fmt.Sprintf("segment %d channel %d: source %q needs an original container", si, ci, ch.Source), nil)
				}
				continue
			}
			if _, ok := im.item.Source[ch.Source]; !ok {
				return nil, ch.Source, services.Wrap(services.ErrConfigInvariant, "importer", "validate",
					fmt.Sprintf("segment %d channel %d: unknown source %q", si, ci, ch.Source), nil)
			}
		}
	}
	if len(target.Segments) == 0 {
		return nil, "", services.Wrap(services.ErrConfigInvariant, "importer", "validate", "target has no segments", nil)
	}

	sources := target.Sources()
	for _, name := range sources {
		if name == manifest.OriginalSource {
			continue
		}
		if len(im.resolver.Paths(name)) == 0 {
			return nil, name, services.Wrap(services.ErrResolution, "importer", "resolve",
				fmt.Sprintf("no files found for source %q", name), nil)
		}
	}

	rate := im.opts.SampleRate
	for _, name := range sources {
		info, err := im.probe(ctx, name)
		if err != nil {
			return nil, name, err
		}
		if im.opts.SampleRate <= 0 {
			rate = max(rate, info.SampleRate)
		}
	}

	seen := make(map[sourceKey]struct{})
	p := &plan{index: index, target: target, rate: rate}
	for _, seg := range target.Segments {
		for _, ch := range seg.Channels {
			key := sourceKey{source: ch.Source, filter: seg.Filter(ch.Source), rate: rate}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			p.keys = append(p.keys, key)
		}
	}
	return p, "", nil
}

// contributor is one channel reference of a segment after alignment.
type contributor struct {
	ref    manifest.TargetChannel
	set    *pcm.SourceSet
	start  int
	frames int
}

func (im *Importer) mergeTarget(baseCtx, ctx context.Context, arena *arena, p *plan, emit EmitFunc, res *TargetResult) {
	logger := logging.WithContext(ctx, im.logger)
	target := p.target
	rate := p.rate

	sets := make(map[sourceKey]*pcm.SourceSet, len(p.keys))
	for _, key := range p.keys {
		set, err := arena.acquire(baseCtx, key)
		if err != nil {
			res.Source, res.Err = key.source, err
			return
		}
		sets[key] = set
	}
	for si, seg := range target.Segments {
		for ci, ch := range seg.Channels {
			set := sets[sourceKey{source: ch.Source, filter: seg.Filter(ch.Source), rate: rate}]
			if ch.Channel >= set.Channels() {
				res.Source = ch.Source
				res.Err = services.Wrap(services.ErrConfigInvariant, "importer", "validate",
					fmt.Sprintf("segment %d channel %d: source %q has %d channels, channel %d requested", si, ci, ch.Source, set.Channels(), ch.Channel), nil)
				return
			}
		}
	}

	outChannels := len(target.SequentialToFfmpegChannelIndexMap)
	if outChannels == 0 {
		for _, seg := range target.Segments {
			outChannels = max(outChannels, len(seg.Channels))
		}
	}

	cursors := make(map[string]int)
	var out []float32
	outFrames := 0
	loopStart, loopEnd := -1, -1

	for si, seg := range target.Segments {
		starts, failed, err := segmentStarts(seg, sets, rate, cursors)
		if err != nil {
			res.Source, res.Err = failed, err
			return
		}
		parts := make([]contributor, len(seg.Channels))
		segFrames := -1
		for ci, ch := range seg.Channels {
			key := sourceKey{source: ch.Source, filter: seg.Filter(ch.Source), rate: rate}
			c := contributor{ref: ch, set: sets[key]}
			start := starts[ch.Source]
			if seg.Length != nil {
				c.start = start
				c.frames = max(0, roundFrames(*seg.Length*float64(rate)))
			} else {
				if err := c.set.Drain(); err != nil {
					res.Source, res.Err = ch.Source, err
					return
				}
				total, _ := c.set.Total()
				c.start = max(0, start+roundFrames(target.LoopOffsetDelta))
				c.frames = max(0, (total-c.start)/target.Divisor())
			}
			if segFrames < 0 || c.frames < segFrames {
				segFrames = c.frames
			}
			parts[ci] = c
		}
		segFrames = max(segFrames, 0)

		planes := make([][]float32, len(parts))
		for ci, c := range parts {
			plane, err := c.set.Channel(c.ref.Channel, c.start, segFrames, true)
			if err != nil {
				res.Source, res.Err = c.ref.Source, err
				return
			}
			planes[ci] = plane
		}
		for _, c := range parts {
			cursors[c.ref.Source] = max(cursors[c.ref.Source], c.start+segFrames)
		}

		if seg.Length == nil {
			loopStart, loopEnd = outFrames, outFrames+segFrames
		}
		out = append(out, pcm.RemapOrder(planes, target.SequentialToFfmpegChannelIndexMap, outChannels, segFrames)...)
		outFrames += segFrames
		logger.Debug("segment merged",
			logging.Int("segment", si),
			logging.Int("frames", segFrames),
			logging.Bool("loop", seg.Length == nil),
		)
	}

	res.Frames = outFrames
	res.Channels = outChannels
	res.SampleRate = rate
	if loopStart >= 0 && loopEnd > loopStart {
		res.LoopStart, res.LoopEnd = loopStart, loopEnd
	}
	if im.opts.KeepSamples {
		res.Samples = out
	}

	data := im.encode(out, outChannels, rate, res.LoopStart, res.LoopEnd)
	res.Digest = fileutil.DigestBytes(data)

	for _, path := range target.Path {
		if err := emit(path, data); err != nil {
			res.Err = services.Wrap(services.ErrOutput, "importer", "emit", path, err)
			return
		}
	}
	logger.Info("target written",
		logging.Int("frames", res.Frames),
		logging.Int("channels", res.Channels),
		logging.Int("sample_rate", res.SampleRate),
		logging.Int("loop_start", res.LoopStart),
		logging.Int("loop_end", res.LoopEnd),
		logging.Strings("paths", target.Path),
	)
}

// segmentStarts returns the first frame each source contributes to seg. With
// a threshold, the start is the earliest active frame over every channel of
// that source the segment uses, so channels of one source stay aligned.
func segmentStarts(seg manifest.Segment, sets map[sourceKey]*pcm.SourceSet, rate int, cursors map[string]int) (map[string]int, string, error) {
	starts := make(map[string]int)
	active := make(map[string]int)
	for _, ch := range seg.Channels {
		start, seen := starts[ch.Source]
		if !seen {
			start = max(0, cursors[ch.Source]+roundFrames(seg.Offset(ch.Source)*float64(rate)))
			starts[ch.Source] = start
		}
		thr := seg.Threshold(ch.Source)
		if thr <= 0 {
			continue
		}
		set := sets[sourceKey{source: ch.Source, filter: seg.Filter(ch.Source), rate: rate}]
		idx, err := set.FirstActive(ch.Channel, start, float32(thr))
		if err != nil {
			return nil, ch.Source, err
		}
		if prev, ok := active[ch.Source]; !ok || idx < prev {
			active[ch.Source] = idx
		}
	}
	for name, idx := range active {
		starts[name] = max(starts[name], idx)
	}
	return starts, "", nil
}

// encode builds the output container. The first original's metadata tables
// and other sound entries are carried over; its first audio entry is
// replaced.
func (im *Importer) encode(samples []float32, channels, rate, loopStart, loopEnd int) []byte {
	sound := scd.NewPCM16Sound(pcm.ToPCM16(samples), channels, rate, loopStart, loopEnd)
	c := &scd.Container{Sounds: []scd.Sound{sound}}
	if im.hasOriginal() {
		orig := im.originals[0]
		c.Table0 = orig.Table0
		c.Table2 = orig.Table2
		c.Sounds = append([]scd.Sound(nil), orig.Sounds...)
		replaced := false
		for i := range c.Sounds {
			if !c.Sounds[i].Empty() {
				c.Sounds[i] = sound
				replaced = true
				break
			}
		}
		if !replaced {
			if len(c.Sounds) == 0 {
				c.Sounds = append(c.Sounds, sound)
			} else {
				c.Sounds[0] = sound
			}
		}
	}
	return c.Bytes()
}

func roundFrames(v float64) int {
	return int(math.Round(v))
}
