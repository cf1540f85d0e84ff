package config

const (
	defaultConfigPath  = "~/.config/scdmix/config.toml"
	projectConfigName  = "scdmix.toml"
	defaultFFmpeg      = "ffmpeg"
	defaultFFprobe     = "ffprobe"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
	defaultWorkers     = 4
	maxWorkers         = 64
	minSampleRate      = 8000
	maxSampleRate      = 192000
	defaultSearchRoot  = "."
	defaultPreviewDirs = "previews"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
		},
		Import: Import{
			Workers:     defaultWorkers,
			SearchRoots: []string{defaultSearchRoot},
		},
		Paths: Paths{
			StateDir: defaultStateDir(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
