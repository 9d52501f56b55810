// Package config maps LIBRARY_* environment variables onto a typed Config.
package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

const prefix = "LIBRARY_"

// Config holds the runtime settings of the library tools.
type Config struct {
	// Name given to a freshly created catalog.
	Name string `env:"NAME" envDefault:"Library"`

	// Store selects the persistence backend: "file" (JSON) or "sqlite".
	Store string `env:"STORE" envDefault:"file"`
	Path  string `env:"PATH"  envDefault:"data/library.json"`

	// SnapshotHistory is how many SQLite snapshots are retained.
	SnapshotHistory int `env:"SNAPSHOT_HISTORY" envDefault:"10"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	return parse(env.Options{Prefix: prefix})
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: prefix, Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the tools cannot act on.
func (c *Config) Validate() error {
	switch c.Store {
	case "file", "sqlite":
	default:
		return fmt.Errorf("config: unknown store %q (want file or sqlite)", c.Store)
	}
	if c.Path == "" {
		return fmt.Errorf("config: empty store path")
	}
	if c.SnapshotHistory < 1 {
		return fmt.Errorf("config: snapshot history must be positive, got %d", c.SnapshotHistory)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns LogLevel as a slog level.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log level: %w", err)
	}
	return lvl, nil
}
