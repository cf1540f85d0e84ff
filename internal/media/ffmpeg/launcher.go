package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Process is a running decoder with redirected standard streams.
type Process interface {
	// Stdin is nil unless the process was launched with stdin redirected.
	Stdin() io.WriteCloser
	Stdout() io.ReadCloser
	// Wait blocks until the process exits. It must only be called after
	// stdout has been drained or abandoned.
	Wait() error
	// Kill terminates the process and anything it spawned.
	Kill() error
}

// Launcher starts decoder processes.
type Launcher interface {
	Launch(ctx context.Context, binary string, args []string, withStdin bool) (Process, error)
}

type execLauncher struct{}

func (execLauncher) Launch(ctx context.Context, binary string, args []string, withStdin bool) (Process, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	configureProcess(cmd)

	proc := &execProcess{cmd: cmd, stderr: &tailBuffer{limit: stderrTailBytes}}
	cmd.Stderr = proc.stderr

	var err error
	if withStdin {
		if proc.stdin, err = cmd.StdinPipe(); err != nil {
			return nil, fmt.Errorf("stdin pipe: %w", err)
		}
	}
	if proc.stdout, err = cmd.StdoutPipe(); err != nil {
		if proc.stdin != nil {
			_ = proc.stdin.Close()
		}
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		if proc.stdin != nil {
			_ = proc.stdin.Close()
		}
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}
	return proc, nil
}

const stderrTailBytes = 4096

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr *tailBuffer
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.ReadCloser { return p.stdout }
func (p *execProcess) Kill() error           { return killProcess(p.cmd) }

func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	if err == nil {
		return nil
	}
	if detail := strings.TrimSpace(p.stderr.String()); detail != "" {
		return fmt.Errorf("%w: %s", err, detail)
	}
	return err
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	data  []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, p...)
	if over := len(b.data) - b.limit; over > 0 {
		b.data = append(b.data[:0], b.data[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}
