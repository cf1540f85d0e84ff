package ffmpeg

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"

	"scdmix/internal/logging"
	"scdmix/internal/services"
)

// ErrShortRead is returned by exact reads that hit the end of the stream.
var ErrShortRead = errors.New("short read")

// Option configures the decoder.
type Option func(*Decoder)

// WithLauncher injects a custom process launcher (primarily for tests).
func WithLauncher(l Launcher) Option {
	return func(d *Decoder) {
		if l != nil {
			d.launcher = l
		}
	}
}

// WithLogger sets the logger used for process lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decoder) {
		d.logger = logging.NewComponentLogger(logger, "ffmpeg")
	}
}

// Decoder opens decode streams with one ffmpeg binary.
type Decoder struct {
	binary   string
	launcher Launcher
	logger   *slog.Logger
}

// New constructs a decoder. An empty binary defaults to "ffmpeg".
func New(binary string, opts ...Option) *Decoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	d := &Decoder{
		binary:   binary,
		launcher: execLauncher{},
		logger:   logging.NewComponentLogger(nil, "ffmpeg"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Stream is one running decode. Reads and Close must not run concurrently.
type Stream struct {
	proc       Process
	reader     io.Reader
	sampleRate int
	channels   int
	label      string
	logger     *slog.Logger

	raw     []byte
	samples []float32

	writerDone chan struct{}
	writerErr  error

	finished  bool
	finishErr error
	closeOnce sync.Once
}

// Open spawns the decoder for req and parses the output header.
func (d *Decoder) Open(ctx context.Context, req DecodeRequest) (*Stream, error) {
	args, err := BuildArgs(req)
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "ffmpeg", "build command", "", err)
	}
	label := req.Input.Describe()
	logger := logging.WithContext(ctx, d.logger)
	logger.Debug("starting decoder",
		logging.String("input", label),
		logging.String("args", strings.Join(args, " ")),
	)

	proc, err := d.launcher.Launch(ctx, d.binary, args, req.Input.Streamed())
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "ffmpeg", "launch", label, err)
	}

	s := &Stream{
		proc:       proc,
		label:      label,
		logger:     logger,
		writerDone: make(chan struct{}),
	}
	if req.Input.Streamed() {
		go s.feed(proc.Stdin(), req.Input.Reader)
	} else {
		close(s.writerDone)
	}

	br := bufio.NewReaderSize(proc.Stdout(), 64*1024)
	hdr, err := readWAVHeader(br)
	if err != nil {
		// The exit status usually explains a missing header better than the
		// header error itself.
		waitErr := s.abort()
		if waitErr != nil {
			return nil, services.Wrap(services.ErrDecode, "ffmpeg", "read header", label, fmt.Errorf("%w (%v)", waitErr, err))
		}
		return nil, services.Wrap(services.ErrDecode, "ffmpeg", "read header", label, err)
	}
	s.sampleRate = hdr.sampleRate
	s.channels = hdr.channels
	s.reader = br
	if hdr.dataSize > 0 {
		s.reader = io.LimitReader(br, hdr.dataSize)
	}
	logger.Debug("decoder stream opened",
		logging.String("input", label),
		logging.Int("sample_rate", s.sampleRate),
		logging.Int("channels", s.channels),
	)
	return s, nil
}

// feed copies src into the process stdin on its own goroutine so a full stdin
// pipe never blocks the goroutine draining stdout.
func (s *Stream) feed(stdin io.WriteCloser, src io.Reader) {
	defer close(s.writerDone)
	if stdin == nil {
		s.writerErr = errors.New("stdin not redirected")
		return
	}
	_, err := io.Copy(stdin, src)
	closeErr := stdin.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil && !isBrokenPipe(err) {
		s.writerErr = err
	}
}

// SampleRate returns the decoded sample rate in Hz.
func (s *Stream) SampleRate() int { return s.sampleRate }

// Channels returns the decoded channel count.
func (s *Stream) Channels() int { return s.channels }

// Read returns up to count interleaved samples. With exact set, anything less
// than count is an ErrShortRead failure. Otherwise a partial slice is returned
// at the end of the stream and io.EOF once nothing remains. The returned slice
// is only valid until the next call.
func (s *Stream) Read(count int, exact bool) ([]float32, error) {
	if count <= 0 {
		return nil, nil
	}
	if s.finished {
		if s.finishErr != nil {
			return nil, s.finishErr
		}
		if exact {
			return nil, services.Wrap(services.ErrDecode, "ffmpeg", "read", s.label, fmt.Errorf("%w: wanted %d samples, stream ended", ErrShortRead, count))
		}
		return nil, io.EOF
	}

	need := count * 4
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]
	n, err := io.ReadFull(s.reader, raw)
	got := n / 4
	if cap(s.samples) < got {
		s.samples = make([]float32, got)
	}
	out := s.samples[:got]
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if ferr := s.finish(); ferr != nil {
			return nil, ferr
		}
		if n%4 != 0 {
			s.finishErr = services.Wrap(services.ErrDecode, "ffmpeg", "read", s.label, fmt.Errorf("stream ended inside a sample (%d trailing bytes)", n%4))
			return nil, s.finishErr
		}
		if exact {
			return out, services.Wrap(services.ErrDecode, "ffmpeg", "read", s.label, fmt.Errorf("%w: wanted %d samples, got %d", ErrShortRead, count, got))
		}
		if got == 0 {
			return nil, io.EOF
		}
		return out, nil
	default:
		s.abort()
		s.finishErr = services.Wrap(services.ErrIO, "ffmpeg", "read", s.label, err)
		return nil, s.finishErr
	}
}

// finish reaps the process after stdout reached EOF.
func (s *Stream) finish() error {
	if s.finished {
		return s.finishErr
	}
	s.finished = true
	waitErr := s.proc.Wait()
	<-s.writerDone
	switch {
	case waitErr != nil:
		s.finishErr = services.Wrap(services.ErrDecode, "ffmpeg", "exit", s.label, waitErr)
	case s.writerErr != nil:
		s.finishErr = services.Wrap(services.ErrIO, "ffmpeg", "feed stdin", s.label, s.writerErr)
	}
	if s.finishErr != nil {
		s.logger.Debug("decoder finished with error", logging.String("input", s.label), logging.Error(s.finishErr))
	}
	return s.finishErr
}

// abort kills the process and reaps it, returning the exit error if the
// process had already failed on its own.
func (s *Stream) abort() error {
	if s.finished {
		return s.finishErr
	}
	s.finished = true
	killErr := s.proc.Kill()
	_ = s.proc.Stdout().Close()
	waitErr := s.proc.Wait()
	<-s.writerDone
	if killErr != nil && errors.Is(killErr, os.ErrProcessDone) {
		return waitErr
	}
	return nil
}

// Close terminates the process if it is still running, releases both pipes,
// and waits for the writer goroutine and the process to exit.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		if !s.finished {
			s.abort()
			s.logger.Debug("decoder closed early", logging.String("input", s.label))
		}
	})
	return nil
}

func isBrokenPipe(err error) bool {
	if errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "file already closed")
}
