package scd_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"scdmix/internal/scd"
)

func sampleContainer() *scd.Container {
	return &scd.Container{
		Table0: [][]byte{[]byte("meta-zero-block!")},
		Sounds: []scd.Sound{
			scd.NewPCM16Sound([]int16{1, -1, 2, -2, 3, -3}, 2, 44100, 1, 3),
			scd.EmptySound(),
		},
		Table2: [][]byte{bytes.Repeat([]byte{0xAA}, 32), bytes.Repeat([]byte{0xBB}, 16)},
	}
}

func TestBytesRoundTrip(t *testing.T) {
	c := sampleContainer()
	data := c.Bytes()

	if string(data[:8]) != "SEDBSSCF" {
		t.Fatalf("unexpected magic %q", data[:8])
	}
	if got := binary.LittleEndian.Uint32(data[0x10:]); int(got) != len(data) {
		t.Fatalf("file size field %d does not match %d", got, len(data))
	}
	if len(data)%16 != 0 {
		t.Fatalf("expected 16-byte aligned file, got %d bytes", len(data))
	}

	back, err := scd.Read(data)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if !reflect.DeepEqual(back.Table0, c.Table0) {
		t.Fatalf("table 0 mismatch: %q", back.Table0)
	}
	if !reflect.DeepEqual(back.Table2, c.Table2) {
		t.Fatalf("table 2 mismatch: %x", back.Table2)
	}
	if len(back.Sounds) != 2 || !back.Sounds[1].Empty() {
		t.Fatalf("unexpected sounds: %+v", back.Sounds)
	}
	if !bytes.Equal(back.Bytes(), data) {
		t.Fatal("re-serialized container differs")
	}
}

func TestPCM16SoundLoopPoints(t *testing.T) {
	s := scd.NewPCM16Sound([]int16{1, -1, 2, -2, 3, -3}, 2, 48000, 1, 3)
	if s.LoopStart != 4 || s.LoopEnd != 12 {
		t.Fatalf("expected byte loop points 4..12, got %d..%d", s.LoopStart, s.LoopEnd)
	}
	if start, end := s.LoopFrames(); start != 1 || end != 3 {
		t.Fatalf("expected frame loop points 1..3, got %d..%d", start, end)
	}
	samples, err := s.PCM16()
	if err != nil {
		t.Fatalf("PCM16 returned error: %v", err)
	}
	if !reflect.DeepEqual(samples, []int16{1, -1, 2, -2, 3, -3}) {
		t.Fatalf("unexpected samples %v", samples)
	}

	noLoop := scd.NewPCM16Sound([]int16{0, 0}, 1, 48000, 0, 0)
	if noLoop.LoopStart != 0 || noLoop.LoopEnd != 0 {
		t.Fatalf("expected no loop, got %d..%d", noLoop.LoopStart, noLoop.LoopEnd)
	}
}

func TestFirstAudioSkipsEmptyEntries(t *testing.T) {
	c := &scd.Container{Sounds: []scd.Sound{scd.EmptySound(), scd.NewPCM16Sound([]int16{7}, 1, 8000, 0, 0)}}
	s, ok := c.FirstAudio()
	if !ok || s.SampleRate != 8000 {
		t.Fatalf("unexpected first audio %+v (%v)", s, ok)
	}
	if _, ok := (&scd.Container{Sounds: []scd.Sound{scd.EmptySound()}}).FirstAudio(); ok {
		t.Fatal("expected no audio in an all-empty container")
	}
}

func TestPCM16RejectsOtherCodecs(t *testing.T) {
	if _, err := scd.EmptySound().PCM16(); err == nil {
		t.Fatal("expected error for empty entry")
	}
	ragged := scd.Sound{Codec: scd.CodecPCM16, Channels: 2, Stream: []byte{1, 2}}
	if _, err := ragged.PCM16(); err == nil {
		t.Fatal("expected error for partial frame")
	}
}

func TestReadRejectsMalformedData(t *testing.T) {
	valid := sampleContainer().Bytes()

	badMagic := bytes.Clone(valid)
	copy(badMagic, "NOTASCD!")

	truncated := valid[:len(valid)-16]

	badEntry := bytes.Clone(valid)
	soundTable := binary.LittleEndian.Uint32(badEntry[0x3C:])
	binary.LittleEndian.PutUint32(badEntry[soundTable:], uint32(len(valid)+64))

	for name, data := range map[string][]byte{
		"short":     valid[:0x20],
		"magic":     badMagic,
		"truncated": truncated,
		"entry":     badEntry,
	} {
		if _, err := scd.Read(data); !errors.Is(err, scd.ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestBytesIsDeterministic(t *testing.T) {
	a := sampleContainer().Bytes()
	b := sampleContainer().Bytes()
	if !bytes.Equal(a, b) {
		t.Fatal("expected identical bytes for identical containers")
	}
}

func TestEncodedStreamDecodesOggHeader(t *testing.T) {
	pages := []byte("OggS-header")
	extra := make([]byte, 0x20+8+len(pages))
	extra[0x00] = 2
	extra[0x02] = 0x3C
	binary.LittleEndian.PutUint32(extra[0x10:], 8)
	binary.LittleEndian.PutUint32(extra[0x14:], uint32(len(pages)))
	for i, b := range pages {
		extra[0x28+i] = b ^ 0x3C
	}
	s := scd.Sound{Codec: scd.CodecOgg, Channels: 2, SampleRate: 48000, Extra: extra, Stream: []byte("OggS-audio")}
	data, format, err := s.EncodedStream()
	if err != nil {
		t.Fatalf("EncodedStream returned error: %v", err)
	}
	if format != "ogg" || string(data) != "OggS-headerOggS-audio" {
		t.Fatalf("unexpected ogg stream %q (%s)", data, format)
	}

	extra[0x00] = 3
	if _, _, err := s.EncodedStream(); !errors.Is(err, scd.ErrUnsupportedCodec) {
		t.Fatalf("expected unsupported header version, got %v", err)
	}
	binary.LittleEndian.PutUint32(extra[0x14:], 4096)
	extra[0x00] = 2
	if _, _, err := s.EncodedStream(); !errors.Is(err, scd.ErrInvalid) {
		t.Fatalf("expected overrun error, got %v", err)
	}
}

func TestEncodedStreamWrapsMSADPCMInRIFF(t *testing.T) {
	format := make([]byte, 50)
	binary.LittleEndian.PutUint16(format[0:], 2)
	binary.LittleEndian.PutUint16(format[2:], 1)
	s := scd.Sound{Codec: scd.CodecMSADPCM, Channels: 1, SampleRate: 22050, Extra: format, Stream: []byte{1, 2, 3}}
	data, demuxer, err := s.EncodedStream()
	if err != nil {
		t.Fatalf("EncodedStream returned error: %v", err)
	}
	if demuxer != "wav" || string(data[0:4]) != "RIFF" || string(data[8:16]) != "WAVEfmt " {
		t.Fatalf("unexpected riff header %q (%s)", data[:16], demuxer)
	}
	if got := int(binary.LittleEndian.Uint32(data[4:])); got != len(data)-8 {
		t.Fatalf("riff size %d, file has %d bytes after it", got, len(data)-8)
	}
	dataAt := 20 + len(format)
	if string(data[dataAt:dataAt+4]) != "data" || binary.LittleEndian.Uint32(data[dataAt+4:]) != 3 {
		t.Fatalf("unexpected data chunk header %q", data[dataAt:dataAt+8])
	}
	if !bytes.Equal(data[dataAt+8:dataAt+11], []byte{1, 2, 3}) || len(data) != dataAt+12 {
		t.Fatalf("unexpected data chunk %v", data[dataAt+8:])
	}

	binary.LittleEndian.PutUint16(format[0:], 1)
	if _, _, err := s.EncodedStream(); !errors.Is(err, scd.ErrInvalid) {
		t.Fatalf("expected bad format tag error, got %v", err)
	}
	if _, _, err := scd.NewPCM16Sound(nil, 1, 8000, 0, 0).EncodedStream(); !errors.Is(err, scd.ErrUnsupportedCodec) {
		t.Fatalf("expected pcm16 to be rejected, got %v", err)
	}
}
