// Package config loads, normalizes, and validates scdmix configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), and
// reads TOML files from ~/.config/scdmix/config.toml or ./scdmix.toml. The
// Config type centralizes tool locations, import defaults, and logging
// settings so the CLI can discover everything in one pass.
package config
