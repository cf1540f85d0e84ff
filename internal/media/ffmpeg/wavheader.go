package ffmpeg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	wavFormatIEEEFloat  = 0x0003
	wavFormatExtensible = 0xFFFE
	// unknownDataSize is written by ffmpeg when the output is not seekable.
	unknownDataSize = 0xFFFFFFFF
)

// ErrUnsupportedStream reports decoder output that is not 32-bit float WAV.
var ErrUnsupportedStream = errors.New("unsupported decoder output")

type wavHeader struct {
	formatTag     uint16
	channels      int
	sampleRate    int
	bitsPerSample int
	// dataSize is 0 when the length is unknown.
	dataSize int64
}

// readWAVHeader consumes the RIFF header up to the start of the data chunk.
func readWAVHeader(r io.Reader) (wavHeader, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return wavHeader{}, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return wavHeader{}, fmt.Errorf("%w: missing RIFF/WAVE magic", ErrUnsupportedStream)
	}

	var hdr wavHeader
	haveFormat := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return wavHeader{}, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])
		switch id {
		case "fmt ":
			if size < 16 {
				return wavHeader{}, fmt.Errorf("%w: fmt chunk too small (%d)", ErrUnsupportedStream, size)
			}
			body := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, body); err != nil {
				return wavHeader{}, fmt.Errorf("read fmt chunk: %w", err)
			}
			hdr.formatTag = binary.LittleEndian.Uint16(body[0:2])
			hdr.channels = int(binary.LittleEndian.Uint16(body[2:4]))
			hdr.sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			hdr.bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			if hdr.formatTag == wavFormatExtensible && size >= 40 {
				// The sub-format GUID starts with the real format tag.
				hdr.formatTag = binary.LittleEndian.Uint16(body[24:26])
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return wavHeader{}, fmt.Errorf("%w: data chunk before fmt", ErrUnsupportedStream)
			}
			if size != unknownDataSize {
				hdr.dataSize = int64(size)
			}
			if err := hdr.validate(); err != nil {
				return wavHeader{}, err
			}
			return hdr, nil
		default:
			if size == unknownDataSize {
				return wavHeader{}, fmt.Errorf("%w: chunk %q has unknown size", ErrUnsupportedStream, id)
			}
			if _, err := io.CopyN(io.Discard, r, int64(size)+int64(size%2)); err != nil {
				return wavHeader{}, fmt.Errorf("skip chunk %q: %w", id, err)
			}
		}
	}
}

func (h wavHeader) validate() error {
	if h.formatTag != wavFormatIEEEFloat || h.bitsPerSample != 32 {
		return fmt.Errorf("%w: format 0x%04x with %d bits", ErrUnsupportedStream, h.formatTag, h.bitsPerSample)
	}
	if h.channels <= 0 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedStream, h.channels)
	}
	if h.sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedStream, h.sampleRate)
	}
	return nil
}
