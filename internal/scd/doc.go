// Package scd reads and writes SCD sound containers.
//
// A container carries three offset tables: two opaque metadata tables that
// are preserved byte for byte, and the sound table whose entries hold a
// fixed header, codec-specific extra data, and the encoded stream. Only
// 16-bit little-endian PCM streams are produced. Ogg Vorbis and MS-ADPCM
// entries can be unpacked into standalone files for an external decoder.
package scd
