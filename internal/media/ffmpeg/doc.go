// Package ffmpeg turns one source into a pull-based stream of 32-bit float
// samples by running ffmpeg as a subprocess.
//
// Open spawns exactly one process per stream. Inputs are either file paths or
// an io.Reader that a dedicated goroutine copies into the process's stdin, so
// the caller draining stdout never shares a goroutine with the writer. The
// decoded output is a float WAV stream whose header supplies the sample rate
// and channel count.
//
// Process launching sits behind the Launcher interface; tests substitute an
// in-memory process.
package ffmpeg
