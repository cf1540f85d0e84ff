package scd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnsupportedCodec reports an entry whose stream cannot be handed to a
// decoder.
var ErrUnsupportedCodec = errors.New("unsupported codec")

const (
	oggHeaderSize      = 0x20
	waveFormatADPCM    = 0x0002
	waveFormatExMinLen = 18
)

// EncodedStream returns a compressed entry as a standalone file together with
// the ffmpeg demuxer that reads it. PCM16 entries are not handled here; use
// PCM16 for those.
func (s Sound) EncodedStream() ([]byte, string, error) {
	switch s.Codec {
	case CodecOgg:
		data, err := s.oggFile()
		return data, "ogg", err
	case CodecMSADPCM:
		data, err := s.msadpcmFile()
		return data, "wav", err
	default:
		return nil, "", fmt.Errorf("%w: 0x%x", ErrUnsupportedCodec, s.Codec)
	}
}

// oggFile rebuilds the Ogg bitstream. The extra data holds a 0x20 byte
// header, a seek table and the Vorbis header pages; the stream carries the
// audio pages that follow them.
func (s Sound) oggFile() ([]byte, error) {
	if len(s.Extra) == 0 {
		return bytes.Clone(s.Stream), nil
	}
	if len(s.Extra) < oggHeaderSize {
		return nil, fmt.Errorf("%w: ogg header of %d bytes", ErrInvalid, len(s.Extra))
	}
	version := s.Extra[0x00]
	key := s.Extra[0x02]
	switch version {
	case 0:
		return bytes.Clone(s.Stream), nil
	case 2:
	default:
		return nil, fmt.Errorf("%w: ogg header version %d", ErrUnsupportedCodec, version)
	}
	le := binary.LittleEndian
	seekSize := int(le.Uint32(s.Extra[0x10:]))
	headerSize := int(le.Uint32(s.Extra[0x14:]))
	start := oggHeaderSize + seekSize
	if seekSize < 0 || headerSize < 0 || start+headerSize > len(s.Extra) {
		return nil, fmt.Errorf("%w: ogg header overruns extra data", ErrInvalid)
	}
	out := make([]byte, 0, headerSize+len(s.Stream))
	out = append(out, s.Extra[start:start+headerSize]...)
	if key != 0 {
		for i := range out {
			out[i] ^= key
		}
	}
	return append(out, s.Stream...), nil
}

// msadpcmFile wraps the stream in a RIFF file. The extra data is the
// WAVEFORMATEX block of the entry.
func (s Sound) msadpcmFile() ([]byte, error) {
	if len(s.Extra) < waveFormatExMinLen {
		return nil, fmt.Errorf("%w: adpcm format block of %d bytes", ErrInvalid, len(s.Extra))
	}
	le := binary.LittleEndian
	if tag := le.Uint16(s.Extra[0:]); tag != waveFormatADPCM {
		return nil, fmt.Errorf("%w: adpcm format tag 0x%x", ErrInvalid, tag)
	}
	fmtChunk := padEven(s.Extra)
	dataChunk := padEven(s.Stream)
	size := 4 + 8 + len(fmtChunk) + 8 + len(dataChunk)

	out := make([]byte, 0, 8+size)
	out = append(out, "RIFF"...)
	out = le.AppendUint32(out, uint32(size))
	out = append(out, "WAVE"...)
	out = append(out, "fmt "...)
	out = le.AppendUint32(out, uint32(len(s.Extra)))
	out = append(out, fmtChunk...)
	out = append(out, "data"...)
	out = le.AppendUint32(out, uint32(len(s.Stream)))
	out = append(out, dataChunk...)
	return out, nil
}

func padEven(b []byte) []byte {
	if len(b)%2 == 0 {
		return b
	}
	return append(bytes.Clone(b), 0)
}
