// Package config loads CLI defaults from stepsim.yaml and STEPSIM_*
// environment variables.
//
// Precedence, highest first: command-line flags (applied by the CLI),
// environment variables, the config file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. STEPSIM_WORKERS.
	EnvPrefix = "STEPSIM"

	// FileName is the config file name searched for in the working
	// directory, without extension.
	FileName = "stepsim"
)

// Config holds CLI defaults.
type Config struct {
	// Workers caps concurrent sessions. 0 means one per CPU.
	Workers int `mapstructure:"workers"`

	// DB is the trajectory database used by run, show and replay.
	DB string `mapstructure:"db"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

// Default returns the built-in defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads configuration.
//
// When file is set it must exist. Otherwise stepsim.yaml is looked up in
// the working directory and a missing file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetDefault("workers", 0)
	v.SetDefault("db", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(FileName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("invalid config: workers must be >= 0, got %d", c.Workers)
	}
	if !slices.Contains(validLevels, c.LogLevel) {
		return fmt.Errorf("invalid config: log_level %q must be one of %v", c.LogLevel, validLevels)
	}
	if !slices.Contains(validFormats, c.LogFormat) {
		return fmt.Errorf("invalid config: log_format %q must be one of %v", c.LogFormat, validFormats)
	}
	return nil
}

// Level returns LogLevel as a slog level.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
