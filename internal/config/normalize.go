package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeTools()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeImport(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeImport() error {
	if c.Import.Workers == 0 {
		c.Import.Workers = defaultWorkers
	}

	roots := make([]string, 0, len(c.Import.SearchRoots))
	seen := make(map[string]struct{}, len(c.Import.SearchRoots))
	for _, root := range c.Import.SearchRoots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(root))
		if err != nil {
			return fmt.Errorf("import.search_roots: %w", err)
		}
		if _, ok := seen[expanded]; ok {
			continue
		}
		seen[expanded] = struct{}{}
		roots = append(roots, expanded)
	}
	if len(roots) == 0 {
		expanded, err := expandPath(defaultSearchRoot)
		if err != nil {
			return fmt.Errorf("import.search_roots: %w", err)
		}
		roots = append(roots, expanded)
	}
	c.Import.SearchRoots = roots

	var err error
	if c.Import.OutputDir, err = expandPath(strings.TrimSpace(c.Import.OutputDir)); err != nil {
		return fmt.Errorf("import.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Import.PreviewDir) == "" {
		c.Import.PreviewDir = filepath.Join(c.Paths.StateDir, defaultPreviewDirs)
	}
	if c.Import.PreviewDir, err = expandPath(c.Import.PreviewDir); err != nil {
		return fmt.Errorf("import.preview_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
