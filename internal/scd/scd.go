package scd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

const (
	magic             = "SEDBSSCF"
	formatVersion     = 3
	formatSubVersion  = 4
	fileHeaderSize    = 0x30
	tableHeaderEnd    = 0x50
	soundHeaderSize   = 0x20
	blobAlignment     = 16
	offsetFileSize    = 0x10
	offsetTableCounts = 0x30
)

// Codec identifiers stored in sound entry headers.
const (
	CodecPCM16   uint32 = 0x01
	CodecOgg     uint32 = 0x06
	CodecMSADPCM uint32 = 0x0C
	CodecEmpty   uint32 = 0xFFFFFFFF
)

// ErrInvalid reports data that is not a well-formed container.
var ErrInvalid = errors.New("invalid scd container")

// Sound is one entry of the sound table.
type Sound struct {
	Channels   int
	SampleRate int
	Codec      uint32
	// LoopStart and LoopEnd are byte offsets into Stream.
	LoopStart uint32
	LoopEnd   uint32
	AuxCount  uint32
	Extra     []byte
	Stream    []byte
}

// Empty reports whether the entry is a placeholder without audio.
func (s Sound) Empty() bool { return s.Codec == CodecEmpty }

// Container is a decoded SCD file.
type Container struct {
	// Table0 and Table2 hold opaque metadata blobs.
	Table0 [][]byte
	Sounds []Sound
	Table2 [][]byte
}

// Read parses a container.
func Read(data []byte) (*Container, error) {
	if len(data) < tableHeaderEnd {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalid, len(data))
	}
	if string(data[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalid)
	}
	le := binary.LittleEndian
	if data[0x0C] != 0 {
		return nil, fmt.Errorf("%w: big-endian containers are not supported", ErrInvalid)
	}
	if hs := le.Uint16(data[0x0E:]); hs != fileHeaderSize {
		return nil, fmt.Errorf("%w: header size 0x%x", ErrInvalid, hs)
	}
	fileSize := int(le.Uint32(data[offsetFileSize:]))
	if fileSize < tableHeaderEnd || fileSize > len(data) {
		return nil, fmt.Errorf("%w: file size %d outside 0x50..%d", ErrInvalid, fileSize, len(data))
	}
	data = data[:fileSize]

	counts := [3]int{
		int(le.Uint16(data[offsetTableCounts:])),
		int(le.Uint16(data[offsetTableCounts+2:])),
		int(le.Uint16(data[offsetTableCounts+4:])),
	}
	tableOffsets := [3]int{
		int(le.Uint32(data[offsetTableCounts+8:])),
		int(le.Uint32(data[offsetTableCounts+12:])),
		int(le.Uint32(data[offsetTableCounts+16:])),
	}

	var entries [3][]int
	var all []int
	for t := range 3 {
		if counts[t] == 0 {
			continue
		}
		end := tableOffsets[t] + 4*counts[t]
		if tableOffsets[t] < tableHeaderEnd || end > fileSize {
			return nil, fmt.Errorf("%w: table %d at 0x%x overruns file", ErrInvalid, t, tableOffsets[t])
		}
		entries[t] = make([]int, counts[t])
		for i := range counts[t] {
			off := int(le.Uint32(data[tableOffsets[t]+4*i:]))
			if off < tableHeaderEnd || off >= fileSize {
				return nil, fmt.Errorf("%w: table %d entry %d at 0x%x outside file", ErrInvalid, t, i, off)
			}
			entries[t][i] = off
			all = append(all, off)
		}
	}
	// Opaque blobs run until the next entry or table begins.
	for t := range 3 {
		if counts[t] > 0 {
			all = append(all, tableOffsets[t])
		}
	}
	slices.Sort(all)
	blobEnd := func(off int) int {
		if i, _ := slices.BinarySearch(all, off+1); i < len(all) {
			return all[i]
		}
		return fileSize
	}

	c := &Container{}
	for _, off := range entries[0] {
		c.Table0 = append(c.Table0, bytes.Clone(data[off:blobEnd(off)]))
	}
	for i, off := range entries[1] {
		s, err := readSound(data, off)
		if err != nil {
			return nil, fmt.Errorf("sound %d: %w", i, err)
		}
		c.Sounds = append(c.Sounds, s)
	}
	for _, off := range entries[2] {
		c.Table2 = append(c.Table2, bytes.Clone(data[off:blobEnd(off)]))
	}
	return c, nil
}

func readSound(data []byte, off int) (Sound, error) {
	if off+soundHeaderSize > len(data) {
		return Sound{}, fmt.Errorf("%w: sound header at 0x%x overruns file", ErrInvalid, off)
	}
	le := binary.LittleEndian
	h := data[off : off+soundHeaderSize]
	streamSize := int(le.Uint32(h[0x00:]))
	extraSize := int(le.Uint32(h[0x18:]))
	s := Sound{
		Channels:   int(le.Uint32(h[0x04:])),
		SampleRate: int(le.Uint32(h[0x08:])),
		Codec:      le.Uint32(h[0x0C:]),
		LoopStart:  le.Uint32(h[0x10:]),
		LoopEnd:    le.Uint32(h[0x14:]),
		AuxCount:   le.Uint32(h[0x1C:]),
	}
	body := off + soundHeaderSize
	if extraSize < 0 || streamSize < 0 || body+extraSize+streamSize > len(data) {
		return Sound{}, fmt.Errorf("%w: sound body at 0x%x overruns file", ErrInvalid, off)
	}
	s.Extra = bytes.Clone(data[body : body+extraSize])
	s.Stream = bytes.Clone(data[body+extraSize : body+extraSize+streamSize])
	return s, nil
}

// Bytes serializes the container. Output is deterministic for equal input.
func (c *Container) Bytes() []byte {
	le := binary.LittleEndian
	counts := [3]int{len(c.Table0), len(c.Sounds), len(c.Table2)}

	pos := tableHeaderEnd
	var tableOffsets [3]int
	for t := range 3 {
		tableOffsets[t] = pos
		pos += align(4 * counts[t])
	}

	blobs := make([][]byte, 0, counts[0]+counts[1]+counts[2])
	blobs = append(blobs, c.Table0...)
	for _, s := range c.Sounds {
		blobs = append(blobs, s.encode())
	}
	blobs = append(blobs, c.Table2...)

	blobOffsets := make([]int, len(blobs))
	for i, b := range blobs {
		blobOffsets[i] = pos
		pos += align(len(b))
	}

	out := make([]byte, pos)
	copy(out, magic)
	le.PutUint32(out[0x08:], formatVersion)
	out[0x0C] = 0
	out[0x0D] = formatSubVersion
	le.PutUint16(out[0x0E:], fileHeaderSize)
	le.PutUint32(out[offsetFileSize:], uint32(pos))

	for t := range 3 {
		le.PutUint16(out[offsetTableCounts+2*t:], uint16(counts[t]))
		le.PutUint32(out[offsetTableCounts+8+4*t:], uint32(tableOffsets[t]))
	}

	i := 0
	for t := range 3 {
		for e := range counts[t] {
			le.PutUint32(out[tableOffsets[t]+4*e:], uint32(blobOffsets[i]))
			copy(out[blobOffsets[i]:], blobs[i])
			i++
		}
	}
	return out
}

func (s Sound) encode() []byte {
	le := binary.LittleEndian
	out := make([]byte, soundHeaderSize+len(s.Extra)+len(s.Stream))
	le.PutUint32(out[0x00:], uint32(len(s.Stream)))
	le.PutUint32(out[0x04:], uint32(s.Channels))
	le.PutUint32(out[0x08:], uint32(s.SampleRate))
	le.PutUint32(out[0x0C:], s.Codec)
	le.PutUint32(out[0x10:], s.LoopStart)
	le.PutUint32(out[0x14:], s.LoopEnd)
	le.PutUint32(out[0x18:], uint32(len(s.Extra)))
	le.PutUint32(out[0x1C:], s.AuxCount)
	copy(out[soundHeaderSize:], s.Extra)
	copy(out[soundHeaderSize+len(s.Extra):], s.Stream)
	return out
}

func align(n int) int {
	return (n + blobAlignment - 1) / blobAlignment * blobAlignment
}
