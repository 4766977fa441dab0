// Package config loads runtime settings for the command host from the
// environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goccy/go-yaml"
	"github.com/reglet-dev/reglet-command-host/policy"
)

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the command host settings.
type Config struct {
	OverridesPath  string        `env:"REGLET_CMD_OVERRIDES"`
	LogLevel       string        `env:"REGLET_CMD_LOG_LEVEL"       envDefault:"info"`
	LogFormat      string        `env:"REGLET_CMD_LOG_FORMAT"      envDefault:"text"`
	ThrottleWindow time.Duration `env:"REGLET_CMD_THROTTLE_WINDOW" envDefault:"15s"`
	DesktopNotify  bool          `env:"REGLET_CMD_DESKTOP_NOTIFY"`
}

// fileConfig mirrors Config for YAML files. Unset keys leave Config untouched.
type fileConfig struct {
	OverridesPath  *string `yaml:"overrides"`
	LogLevel       *string `yaml:"log_level"`
	LogFormat      *string `yaml:"log_format"`
	ThrottleWindow *string `yaml:"throttle_window"`
	DesktopNotify  *bool   `yaml:"desktop_notify"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:       "info",
		LogFormat:      FormatText,
		ThrottleWindow: policy.DefaultThrottleWindow,
	}
}

// FromEnv parses the REGLET_CMD_* environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Load reads the environment, then overlays the YAML file at path if one is given.
func Load(path string) (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	if err := cfg.overlay(data); err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) overlay(data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("decoding config YAML: %w", err)
	}
	if fc.OverridesPath != nil {
		c.OverridesPath = *fc.OverridesPath
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	if fc.LogFormat != nil {
		c.LogFormat = *fc.LogFormat
	}
	if fc.DesktopNotify != nil {
		c.DesktopNotify = *fc.DesktopNotify
	}
	if fc.ThrottleWindow != nil {
		d, err := time.ParseDuration(*fc.ThrottleWindow)
		if err != nil {
			return fmt.Errorf("%w: throttle_window: %v", ErrInvalidConfig, err)
		}
		c.ThrottleWindow = d
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.ThrottleWindow < 0 {
		return fmt.Errorf("%w: throttle window %s is negative", ErrInvalidConfig, c.ThrottleWindow)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	}
	return lvl, nil
}

// NewLogger builds a slog logger writing to w in the configured format.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := c.Level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.LogFormat, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
