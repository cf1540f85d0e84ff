package pcm

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"scdmix/internal/services"
)

// ErrShortStream reports an exact fill that ran past the end of the source.
var ErrShortStream = errors.New("stream ended early")

// SampleSource produces interleaved float32 samples.
type SampleSource interface {
	// Read returns up to count samples. With exact set a short result is an
	// error. A non-exact read returns io.EOF once nothing remains.
	Read(count int, exact bool) ([]float32, error)
	SampleRate() int
	Channels() int
	Close() error
}

// fillChunkFrames bounds how far FirstActive reads ahead per step.
const fillChunkFrames = 8192

type activeKey struct {
	channel   int
	from      int
	threshold float32
}

// SourceSet buffers everything read from one SampleSource so several targets
// can read overlapping ranges. All methods are safe for concurrent use.
type SourceSet struct {
	mu       sync.Mutex
	src      SampleSource
	name     string
	rate     int
	channels int

	buf  []float32
	eof  bool
	err  error
	done bool

	active      map[activeKey]int
	firstBlocks []int
}

// NewSourceSet wraps src. The name is used in error messages.
func NewSourceSet(name string, src SampleSource) *SourceSet {
	channels := src.Channels()
	first := make([]int, channels)
	for i := range first {
		first[i] = -1
	}
	return &SourceSet{
		src:         src,
		name:        name,
		rate:        src.SampleRate(),
		channels:    channels,
		active:      make(map[activeKey]int),
		firstBlocks: first,
	}
}

// Name returns the source name this set was opened for.
func (s *SourceSet) Name() string { return s.name }

// SampleRate returns the decoded sample rate.
func (s *SourceSet) SampleRate() int { return s.rate }

// Channels returns the decoded channel count.
func (s *SourceSet) Channels() int { return s.channels }

// Fill reads until at least frames are buffered. With exact set, reaching the
// end of the stream first is a decode failure.
func (s *SourceSet) Fill(frames int, exact bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fillLocked(frames, exact)
}

func (s *SourceSet) fillLocked(frames int, exact bool) error {
	if s.err != nil {
		return s.err
	}
	for s.bufferedLocked() < frames && !s.eof {
		want := (frames - s.bufferedLocked()) * s.channels
		samples, err := s.src.Read(want, false)
		s.buf = append(s.buf, samples...)
		switch {
		case errors.Is(err, io.EOF), err == nil && len(samples) == 0:
			s.markEOFLocked()
		case err != nil:
			s.err = services.Wrap(services.ErrDecode, "pcm", "read source", s.name, err)
			return s.err
		}
	}
	if exact && s.bufferedLocked() < frames {
		return services.Wrap(services.ErrDecode, "pcm", "read source", s.name,
			fmt.Errorf("%w: wanted %d frames, stream has %d", ErrShortStream, frames, s.bufferedLocked()))
	}
	return nil
}

// markEOFLocked drops a trailing partial frame.
func (s *SourceSet) markEOFLocked() {
	s.eof = true
	if extra := len(s.buf) % s.channels; extra != 0 {
		s.buf = s.buf[:len(s.buf)-extra]
	}
}

func (s *SourceSet) bufferedLocked() int {
	return len(s.buf) / s.channels
}

// Drain reads the source to the end.
func (s *SourceSet) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drainLocked()
}

func (s *SourceSet) drainLocked() error {
	for !s.eof {
		if err := s.fillLocked(s.bufferedLocked()+fillChunkFrames, false); err != nil {
			return err
		}
	}
	return nil
}

// Total returns the number of buffered frames and whether the source has been
// fully drained.
func (s *SourceSet) Total() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bufferedLocked(), s.eof
}

// Frames returns a copy of count interleaved frames starting at start. A
// non-exact request near the end of the stream returns fewer frames.
func (s *SourceSet) Frames(start, count int, exact bool) ([]float32, error) {
	if start < 0 || count < 0 {
		return nil, fmt.Errorf("invalid frame range %d+%d", start, count)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fillLocked(start+count, exact); err != nil {
		return nil, err
	}
	end := min(start+count, s.bufferedLocked())
	if start >= end {
		return []float32{}, nil
	}
	out := make([]float32, (end-start)*s.channels)
	copy(out, s.buf[start*s.channels:end*s.channels])
	return out, nil
}

// Channel returns count samples of one channel starting at frame start.
func (s *SourceSet) Channel(channel, start, count int, exact bool) ([]float32, error) {
	if channel < 0 || channel >= s.channels {
		return nil, fmt.Errorf("channel %d out of range (source has %d)", channel, s.channels)
	}
	frames, err := s.Frames(start, count, exact)
	if err != nil {
		return nil, err
	}
	return ExtractChannel(frames, s.channels, channel), nil
}

// FirstActive returns the first frame at or after from whose sample on
// channel has a magnitude above threshold, or the total frame count when
// there is none. Results are memoized and never rescanned.
func (s *SourceSet) FirstActive(channel, from int, threshold float32) (int, error) {
	if channel < 0 || channel >= s.channels {
		return 0, fmt.Errorf("channel %d out of range (source has %d)", channel, s.channels)
	}
	from = max(from, 0)
	key := activeKey{channel: channel, from: from, threshold: threshold}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.active[key]; ok {
		return idx, nil
	}

	idx := from
	for {
		for ; idx < s.bufferedLocked(); idx++ {
			v := s.buf[idx*s.channels+channel]
			if v > threshold || -v > threshold {
				return s.rememberLocked(key, idx), nil
			}
		}
		if s.eof {
			return s.rememberLocked(key, s.bufferedLocked()), nil
		}
		if err := s.fillLocked(s.bufferedLocked()+fillChunkFrames, false); err != nil {
			return 0, err
		}
	}
}

func (s *SourceSet) rememberLocked(key activeKey, idx int) int {
	s.active[key] = idx
	if s.firstBlocks[key.channel] < 0 {
		s.firstBlocks[key.channel] = idx
	}
	return idx
}

// FirstBlocks returns the first FirstActive result per channel, or -1 for
// channels never scanned.
func (s *SourceSet) FirstBlocks() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.firstBlocks...)
}

// Close releases the underlying source. Buffered frames stay readable.
func (s *SourceSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	return s.src.Close()
}
