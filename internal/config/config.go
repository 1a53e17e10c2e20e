// Package config loads the server configuration from an optional YAML file.
// Command-line flags override file values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings.
type Config struct {
	Addr          string        `yaml:"addr"`
	DBPath        string        `yaml:"db"`
	LogPath       string        `yaml:"log"`
	SweepSchedule string        `yaml:"sweep_schedule"`
	DueSoonWindow time.Duration `yaml:"due_soon_window"`

	// HandoffSecret signs handoff tokens. When empty a secret is generated
	// and kept in the database.
	HandoffSecret string `yaml:"handoff_secret"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:          ":8080",
		DBPath:        "premik.sqlite3",
		SweepSchedule: "@every 5m",
		DueSoonWindow: 7 * 24 * time.Hour,
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()
	buf, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks settings that would otherwise fail late.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db must not be empty")
	}
	if c.DueSoonWindow <= 0 {
		return fmt.Errorf("due_soon_window must be positive, got %s", c.DueSoonWindow)
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("invalid sweep_schedule %q: %w", c.SweepSchedule, err)
	}
	return nil
}
