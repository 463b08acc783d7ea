// Package config loads the engine configuration file. The file is plain
// YAML; every field has a default so an empty or missing file yields a
// runnable headless setup.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Valid engine modes as they appear in the config file.
var ValidModes = []string{"headless", "legacy", "full"}

// Config mirrors the ember.yaml file.
type Config struct {
	// Mode selects which subsystems are initialized. "headless" runs
	// without a window or renderer.
	Mode string `yaml:"mode"`

	// RootDir is the data directory the engine is rooted at.
	RootDir string `yaml:"root_dir"`

	// FPSLimit caps the frame rate. 0 disables the cap.
	FPSLimit int `yaml:"fps_limit"`

	// Workers sizes the job manager's worker pool.
	Workers int `yaml:"workers"`

	// DrawHud enables the hud dispatch phase.
	DrawHud bool `yaml:"draw_hud"`

	// CVarPath points at the persisted configuration variables. An
	// empty value keeps cvars in memory only. A ".db" suffix selects
	// the SQLite store, anything else the YAML file store.
	CVarPath string `yaml:"cvar_path"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Mode:      "headless",
		RootDir:   ".",
		FPSLimit:  0,
		Workers:   runtime.NumCPU(),
		DrawHud:   true,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads a config file, overlaying it on the defaults. A missing
// file is not an error; the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges. Called by Load and usable directly on
// hand-built configs.
func (c Config) Validate() error {
	if !isValidMode(c.Mode) {
		return fmt.Errorf("invalid mode %q: must be one of %v", c.Mode, ValidModes)
	}
	if c.FPSLimit < 0 {
		return fmt.Errorf("fps_limit must be >= 0, got %d", c.FPSLimit)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	return nil
}

func isValidMode(mode string) bool {
	for _, m := range ValidModes {
		if mode == m {
			return true
		}
	}
	return false
}
