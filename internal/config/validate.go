package config

import (
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateImport() error {
	if c.Import.Workers < 1 || c.Import.Workers > maxWorkers {
		return fmt.Errorf("import.workers must be between 1 and %d, got %d", maxWorkers, c.Import.Workers)
	}
	// Zero means "use the highest source rate".
	if c.Import.SampleRate != 0 && (c.Import.SampleRate < minSampleRate || c.Import.SampleRate > maxSampleRate) {
		return fmt.Errorf("import.sample_rate must be 0 or between %d and %d, got %d", minSampleRate, maxSampleRate, c.Import.SampleRate)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
