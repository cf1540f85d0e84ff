// Package pcm buffers decoded float samples and implements the channel-level
// operations the merge engine needs: per-source buffering with memoized
// first-active detection, channel remapping, PCM16 conversion, and WAV
// encoding through go-audio/wav.
package pcm
