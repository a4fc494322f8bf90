// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	LogLevel string `env:"MICROHOOK_LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"MICROHOOK_LOG_FILE"`
	LogJSON  bool   `env:"MICROHOOK_LOG_JSON"`

	// WatchModule is the library whose load delays the level and
	// lifecycle hooks until it has installed its own.
	WatchModule   string        `env:"MICROHOOK_WATCH_MODULE" envDefault:"menl_hooks.dll"`
	WatchInterval time.Duration `env:"MICROHOOK_WATCH_INTERVAL" envDefault:"1ms"`
	// ScanWindow bounds the anchored second-stage scans.
	ScanWindow uint64 `env:"MICROHOOK_SCAN_WINDOW" envDefault:"4096"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

// Default is the configuration with every variable unset.
func Default() Config {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(err)
	}
	return cfg
}

func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func (c Config) validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.WatchInterval <= 0 {
		return fmt.Errorf("watch interval %v: must be positive", c.WatchInterval)
	}
	if c.ScanWindow == 0 {
		return fmt.Errorf("scan window: must be positive")
	}
	return nil
}
