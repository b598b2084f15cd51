// Package config loads worldscribe settings from an optional YAML file, an
// optional .env file and WORLDSCRIBE_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables read by Load.
// WORLDSCRIBE_WORLDS_DIR maps to the key worlds.dir.
const EnvPrefix = "WORLDSCRIBE_"

// Defaults applied when a key is absent or empty.
const (
	DefaultWorldsDir    = "worlds"
	DefaultLogMode      = "development"
	DefaultLogLevel     = "info"
	DefaultStoreTimeout = 5 * time.Second
)

// Config is the full worldscribe configuration.
type Config struct {
	Worlds WorldsConfig `koanf:"worlds"`
	Log    LogConfig    `koanf:"log"`
	Store  StoreConfig  `koanf:"store"`
}

type WorldsConfig struct {
	Dir string `koanf:"dir"` // folder holding one sub-folder per World
}

type LogConfig struct {
	Mode  string `koanf:"mode"`  // development, production
	Level string `koanf:"level"` // debug, info, warn, error
}

type StoreConfig struct {
	Timeout time.Duration `koanf:"timeout"` // SQLite busy timeout
}

// Options controls where Load looks.
type Options struct {
	// ConfigPath is a YAML file. Empty skips the file.
	ConfigPath string

	// DotEnvPath is loaded into the process environment before reading
	// variables. Empty means ".env"; a missing file is not an error.
	DotEnvPath string
}

// Load reads the configuration described by opts.
func Load(opts Options) (*Config, error) {
	dotenv := opts.DotEnvPath
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", dotenv, err)
	}

	k := koanf.New(".")

	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(opts.ConfigPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Environment overrides the file.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Worlds.Dir == "" {
		c.Worlds.Dir = DefaultWorldsDir
	}
	if c.Log.Mode == "" {
		c.Log.Mode = DefaultLogMode
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Store.Timeout == 0 {
		c.Store.Timeout = DefaultStoreTimeout
	}
}

// Validate rejects values no component can use.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Mode) {
	case "development", "dev", "production", "prod":
	default:
		return fmt.Errorf("log.mode: unknown mode %q", c.Log.Mode)
	}
	if c.Store.Timeout < 0 {
		return fmt.Errorf("store.timeout: must not be negative, got %s", c.Store.Timeout)
	}
	return nil
}
