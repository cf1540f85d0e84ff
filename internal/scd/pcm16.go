package scd

import (
	"encoding/binary"
	"fmt"
)

// NewPCM16Sound builds a PCM16 entry from interleaved samples. Loop points
// are given in frames; loopEnd <= loopStart disables looping.
func NewPCM16Sound(samples []int16, channels, sampleRate, loopStart, loopEnd int) Sound {
	stream := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(stream[2*i:], uint16(v))
	}
	s := Sound{
		Channels:   channels,
		SampleRate: sampleRate,
		Codec:      CodecPCM16,
		Stream:     stream,
	}
	if loopEnd > loopStart && loopStart >= 0 {
		frameBytes := uint32(2 * channels)
		s.LoopStart = uint32(loopStart) * frameBytes
		s.LoopEnd = uint32(loopEnd) * frameBytes
	}
	return s
}

// EmptySound returns a placeholder entry.
func EmptySound() Sound {
	return Sound{Codec: CodecEmpty}
}

// PCM16 decodes the stream of a PCM16 entry into interleaved samples.
func (s Sound) PCM16() ([]int16, error) {
	if s.Codec != CodecPCM16 {
		return nil, fmt.Errorf("codec 0x%x is not pcm16", s.Codec)
	}
	if s.Channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", s.Channels)
	}
	if len(s.Stream)%(2*s.Channels) != 0 {
		return nil, fmt.Errorf("stream of %d bytes is not a whole number of %d-channel frames", len(s.Stream), s.Channels)
	}
	out := make([]int16, len(s.Stream)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(s.Stream[2*i:]))
	}
	return out, nil
}

// LoopFrames converts the byte loop points of a PCM16 entry to frames.
func (s Sound) LoopFrames() (start, end int) {
	if s.Codec != CodecPCM16 || s.Channels <= 0 {
		return 0, 0
	}
	frameBytes := uint32(2 * s.Channels)
	return int(s.LoopStart / frameBytes), int(s.LoopEnd / frameBytes)
}

// FirstAudio returns the first non-empty sound entry.
func (c *Container) FirstAudio() (Sound, bool) {
	for _, s := range c.Sounds {
		if !s.Empty() {
			return s, true
		}
	}
	return Sound{}, false
}
