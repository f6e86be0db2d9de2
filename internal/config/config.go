// Package config loads planner settings from an optional YAML file with
// environment variable overrides. Defaults are usable out of the box; the
// config file and every variable are optional.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the planner reads.
type Config struct {
	// DatabasePath is the SQLite file backing the asset store.
	DatabasePath string `yaml:"database_path"`

	// Defaults applied to a project bible when the extracted plan leaves a
	// field empty.
	DefaultAspectRatio     string `yaml:"default_aspect_ratio"`
	DefaultTargetDurationS int64  `yaml:"default_target_duration_s"`
	DefaultStyle           string `yaml:"default_style"`
	DefaultPacing          string `yaml:"default_pacing"`
	DefaultVisualRealism   string `yaml:"default_visual_realism"`

	// MaxRepairIterations bounds the validate/repair loop when generating
	// shots.
	MaxRepairIterations int `yaml:"max_repair_iterations"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DatabasePath:           "reelplan.db",
		DefaultAspectRatio:     "16:9",
		DefaultTargetDurationS: 30,
		DefaultStyle:           "cinematic realism",
		DefaultPacing:          "medium",
		DefaultVisualRealism:   "high",
		MaxRepairIterations:    2,
		LogLevel:               "info",
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path if it exists, then REELPLAN_* environment variables. A missing file
// is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Optional file.
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if cfg.MaxRepairIterations < 0 {
		return Config{}, fmt.Errorf("max_repair_iterations must be >= 0, got %d", cfg.MaxRepairIterations)
	}
	if cfg.DefaultTargetDurationS <= 0 {
		return Config{}, fmt.Errorf("default_target_duration_s must be positive, got %d", cfg.DefaultTargetDurationS)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REELPLAN_DB"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("REELPLAN_ASPECT_RATIO"); v != "" {
		cfg.DefaultAspectRatio = v
	}
	if v := os.Getenv("REELPLAN_TARGET_DURATION_S"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.DefaultTargetDurationS = n
		}
	}
	if v := os.Getenv("REELPLAN_STYLE"); v != "" {
		cfg.DefaultStyle = v
	}
	if v := os.Getenv("REELPLAN_PACING"); v != "" {
		cfg.DefaultPacing = v
	}
	if v := os.Getenv("REELPLAN_VISUAL_REALISM"); v != "" {
		cfg.DefaultVisualRealism = v
	}
	if v := os.Getenv("REELPLAN_MAX_REPAIR_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRepairIterations = n
		}
	}
	if v := os.Getenv("REELPLAN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
