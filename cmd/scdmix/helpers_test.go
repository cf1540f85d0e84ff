package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"scdmix/internal/config"
	"scdmix/internal/importer"
	"scdmix/internal/media/ffmpeg"
	"scdmix/internal/media/pcm"
	"scdmix/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	rootDir    string
	backend    *fakeBackend
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithWorkers(2))
	base := testsupport.BaseDir(cfg)
	cfg.Import.SearchRoots = []string{filepath.Join(base, "roots")}
	cfg.Logging.Level = "error"

	configPath := filepath.Join(base, "scdmix.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		rootDir:    cfg.Import.SearchRoots[0],
		backend:    &fakeBackend{audio: map[string][]float32{}},
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	var configFlag, logLevelFlag string
	ctx := newCommandContext(&configFlag, &logLevelFlag)
	ctx.newBackend = func(*config.Config, *slog.Logger) importer.Backend { return env.backend }

	cmd := buildRootCommand(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeManifest(t *testing.T, env *cliTestEnv, name, content string) string {
	t.Helper()
	path := filepath.Join(env.baseDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// fakeBackend serves mono 8 Hz audio keyed by file name.
type fakeBackend struct {
	mu    sync.Mutex
	audio map[string][]float32
}

func (b *fakeBackend) lookup(in ffmpeg.Input) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(in.Paths) == 0 {
		return nil, errors.New("streamed input not supported")
	}
	samples, ok := b.audio[filepath.Base(in.Paths[0])]
	if !ok {
		return nil, errors.New("Invalid data found when processing input")
	}
	return samples, nil
}

func (b *fakeBackend) Probe(ctx context.Context, in ffmpeg.Input) (importer.ProbeInfo, error) {
	if _, err := b.lookup(in); err != nil {
		return importer.ProbeInfo{}, err
	}
	return importer.ProbeInfo{SampleRate: 8, Channels: 1, Format: "flac"}, nil
}

func (b *fakeBackend) Decode(ctx context.Context, req ffmpeg.DecodeRequest) (pcm.SampleSource, error) {
	samples, err := b.lookup(req.Input)
	if err != nil {
		return nil, err
	}
	return &fakeSource{samples: samples, rate: req.SampleRate}, nil
}

type fakeSource struct {
	samples []float32
	rate    int
	pos     int
}

func (s *fakeSource) Read(count int, exact bool) ([]float32, error) {
	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}
	n := min(count, len(s.samples)-s.pos)
	out := s.samples[s.pos : s.pos+n]
	s.pos += n
	return out, nil
}

func (s *fakeSource) SampleRate() int { return s.rate }
func (s *fakeSource) Channels() int   { return 1 }
func (s *fakeSource) Close() error    { return nil }
