package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"scdmix/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_STATE_HOME", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "state", "scdmix")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.HistoryPath() != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if cfg.Import.PreviewDir != filepath.Join(wantState, "previews") {
		t.Fatalf("unexpected preview dir: %q", cfg.Import.PreviewDir)
	}
	if cfg.Import.Workers != config.Default().Import.Workers {
		t.Fatalf("unexpected workers: %d", cfg.Import.Workers)
	}
	if cfg.Import.SampleRate != 0 {
		t.Fatalf("expected automatic sample rate, got %d", cfg.Import.SampleRate)
	}
	if len(cfg.Import.SearchRoots) != 1 || !filepath.IsAbs(cfg.Import.SearchRoots[0]) {
		t.Fatalf("expected one absolute search root, got %v", cfg.Import.SearchRoots)
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected tool defaults: %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Import.PreviewDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "scdmix.toml")

	type payload struct {
		Tools struct {
			FFmpeg string `toml:"ffmpeg"`
		} `toml:"tools"`
		Import struct {
			SampleRate  int      `toml:"sample_rate"`
			Workers     int      `toml:"workers"`
			SearchRoots []string `toml:"search_roots"`
			OutputDir   string   `toml:"output_dir"`
		} `toml:"import"`
		Paths struct {
			StateDir string `toml:"state_dir"`
		} `toml:"paths"`
		Logging struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Tools.FFmpeg = "/opt/ffmpeg/bin/ffmpeg"
	custom.Import.SampleRate = 48000
	custom.Import.Workers = 2
	custom.Import.SearchRoots = []string{filepath.Join(tempDir, "game"), filepath.Join(tempDir, "game"), "  "}
	custom.Import.OutputDir = filepath.Join(tempDir, "out")
	custom.Paths.StateDir = filepath.Join(tempDir, "state")
	custom.Logging.Format = " JSON "
	custom.Logging.Level = "Debug"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected existing config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("unexpected ffmpeg binary: %q", cfg.FFmpegBinary())
	}
	if cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("expected ffprobe default to survive, got %q", cfg.FFprobeBinary())
	}
	if cfg.Import.SampleRate != 48000 || cfg.Import.Workers != 2 {
		t.Fatalf("unexpected import settings: %+v", cfg.Import)
	}
	if len(cfg.Import.SearchRoots) != 1 || cfg.Import.SearchRoots[0] != filepath.Join(tempDir, "game") {
		t.Fatalf("expected deduplicated search roots, got %v", cfg.Import.SearchRoots)
	}
	if cfg.Import.PreviewDir != filepath.Join(tempDir, "state", "previews") {
		t.Fatalf("unexpected preview dir: %q", cfg.Import.PreviewDir)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging settings, got %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "scdmix.toml")
	if err := os.WriteFile(configPath, []byte("[import]\nworkerz = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "workerz") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"workers", func(c *config.Config) { c.Import.Workers = -1 }, "import.workers"},
		{"too many workers", func(c *config.Config) { c.Import.Workers = 1000 }, "import.workers"},
		{"sample rate", func(c *config.Config) { c.Import.SampleRate = 100 }, "import.sample_rate"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %s error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Paths.StateDir != filepath.Join(dir, ".local", "state", "scdmix") {
		t.Fatalf("unexpected state dir from sample: %q", cfg.Paths.StateDir)
	}
}

func TestExpandPathHandlesTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/music")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "music") {
		t.Fatalf("unexpected expansion: %q", got)
	}
}
