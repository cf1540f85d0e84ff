// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties (codec, sample rate, channels)
//   - Format: container-level metadata (duration, size, bitrate)
//
// Entry points:
//   - Inspect: probes a file path
//   - InspectReader: probes bytes streamed to ffprobe's stdin
//
// Helper methods on Result give access to the primary audio stream, stream
// counts, duration parsing, and bitrate extraction.
package ffprobe
