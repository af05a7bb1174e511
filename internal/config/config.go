// Package config loads watcher settings from the environment and an
// optional YAML profile.
//
// Precedence, lowest to highest: built-in defaults, the YAML file named by
// SCREENWATCH_CONFIG (if set), individual SCREENWATCH_* variables. CLI flags
// override all of these in main.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/screen-text-watch/internal/capture"
)

// Config holds every tunable of the watcher.
type Config struct {
	// HTTPAddr is the control API listen address. Empty disables the server.
	HTTPAddr string `yaml:"http_addr"`

	// Language is the Tesseract language code.
	Language string `yaml:"language"`

	// IntervalMS is the monitor tick cadence in milliseconds.
	IntervalMS int `yaml:"interval_ms"`

	// MinDiffLen filters lines shorter than this out of diff events.
	MinDiffLen int `yaml:"min_diff_len"`

	// EventBuffer is the event channel capacity.
	EventBuffer int `yaml:"event_buffer"`

	// HashSkip enables perceptual-hash frame skipping.
	HashSkip bool `yaml:"hash_skip"`

	// HashMaxDistance is the hash bit distance treated as "same frame".
	HashMaxDistance int `yaml:"hash_max_distance"`

	// Region is the screen rectangle to watch. A zero region means the
	// watch must be started explicitly over the API or flags.
	Region capture.Region `yaml:"region"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPAddr:        ":8130",
		Language:        "eng",
		IntervalMS:      500,
		MinDiffLen:      1,
		EventBuffer:     64,
		HashSkip:        true,
		HashMaxDistance: 2,
	}
}

// Load builds the configuration from defaults, the optional YAML profile,
// and the environment, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("SCREENWATCH_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.HTTPAddr = getEnv("SCREENWATCH_HTTP_ADDR", cfg.HTTPAddr)
	cfg.Language = getEnv("SCREENWATCH_LANG", cfg.Language)
	cfg.IntervalMS = getEnvInt("SCREENWATCH_INTERVAL_MS", cfg.IntervalMS)
	cfg.MinDiffLen = getEnvInt("SCREENWATCH_MIN_DIFF_LEN", cfg.MinDiffLen)
	cfg.EventBuffer = getEnvInt("SCREENWATCH_EVENT_BUFFER", cfg.EventBuffer)
	cfg.HashSkip = getEnvBool("SCREENWATCH_HASH_SKIP", cfg.HashSkip)
	cfg.HashMaxDistance = getEnvInt("SCREENWATCH_HASH_MAX_DISTANCE", cfg.HashMaxDistance)
	cfg.Region.X = getEnvInt("SCREENWATCH_REGION_X", cfg.Region.X)
	cfg.Region.Y = getEnvInt("SCREENWATCH_REGION_Y", cfg.Region.Y)
	cfg.Region.Width = getEnvInt("SCREENWATCH_REGION_WIDTH", cfg.Region.Width)
	cfg.Region.Height = getEnvInt("SCREENWATCH_REGION_HEIGHT", cfg.Region.Height)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the watcher cannot run with. The region is only
// validated when set, since a watch can be configured later over the API.
func (c *Config) Validate() error {
	if c.IntervalMS <= 0 {
		return fmt.Errorf("interval_ms must be positive, got %d", c.IntervalMS)
	}
	if c.MinDiffLen < 1 {
		return fmt.Errorf("min_diff_len must be at least 1, got %d", c.MinDiffLen)
	}
	if c.EventBuffer < 1 {
		return fmt.Errorf("event_buffer must be at least 1, got %d", c.EventBuffer)
	}
	if c.HashMaxDistance < 0 {
		return fmt.Errorf("hash_max_distance must be non-negative, got %d", c.HashMaxDistance)
	}
	if c.RegionSet() {
		if err := c.Region.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RegionSet reports whether a capture region has been configured.
func (c *Config) RegionSet() bool {
	return c.Region.Width != 0 || c.Region.Height != 0
}

// Interval returns the tick cadence as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
