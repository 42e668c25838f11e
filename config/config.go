// Package config loads livepost settings from an optional YAML or TOML file, then applies
// LIVEPOST_* environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/monadicstack/livepost/internal/logger"
	"github.com/monadicstack/livepost/posts"
)

const (
	defaultAddr          = ":8080"
	defaultStorageDriver = posts.DriverSQLite
	defaultStoragePath   = "data/posts.db"
	defaultSessionTTL    = "24h"
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
)

// Config is the complete set of runtime settings.
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Session SessionConfig `yaml:"session" toml:"session"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// StorageConfig picks the post store.
type StorageConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `yaml:"driver" toml:"driver"`
	// Path is the database file. Ignored by the memory driver.
	Path string `yaml:"path" toml:"path"`
}

// SessionConfig controls browser session lifetime.
type SessionConfig struct {
	// TTL is how long an idle session survives, as a Go duration ("24h", "90m").
	TTL string `yaml:"ttl" toml:"ttl"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: defaultAddr},
		Storage: StorageConfig{Driver: defaultStorageDriver, Path: defaultStoragePath},
		Session: SessionConfig{TTL: defaultSessionTTL},
		Log:     LogConfig{Level: defaultLogLevel, Format: defaultLogFormat},
	}
}

// Load reads the file at path (if any), applies environment overrides and validates the
// result. An empty path means "defaults only"; a path that names no file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := cfg.readFile(path); err != nil {
		return Config{}, err
	}
	cfg.applyEnv()
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: file not found: %s", path)
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("config: unsupported file type '%s'", ext)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	override := func(key string, target *string) {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*target = strings.TrimSpace(value)
		}
	}
	override("LIVEPOST_ADDR", &c.Server.Addr)
	override("LIVEPOST_STORAGE_DRIVER", &c.Storage.Driver)
	override("LIVEPOST_STORAGE_PATH", &c.Storage.Path)
	override("LIVEPOST_SESSION_TTL", &c.Session.TTL)
	override("LIVEPOST_LOG_LEVEL", &c.Log.Level)
	override("LIVEPOST_LOG_FORMAT", &c.Log.Format)
}

// fillDefaults covers keys a file explicitly set to "".
func (c *Config) fillDefaults() {
	defaults := Default()
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = defaults.Storage.Driver
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = defaults.Storage.Path
	}
	if strings.TrimSpace(c.Session.TTL) == "" {
		c.Session.TTL = defaults.Session.TTL
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = defaults.Log.Level
	}
	if strings.TrimSpace(c.Log.Format) == "" {
		c.Log.Format = defaults.Log.Format
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case posts.DriverMemory, posts.DriverSQLite:
	default:
		return fmt.Errorf("config: unknown storage driver '%s'", c.Storage.Driver)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format '%s'", c.Log.Format)
	}

	ttl, err := time.ParseDuration(c.Session.TTL)
	if err != nil {
		return fmt.Errorf("config: session ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("config: session ttl must be positive, got %s", c.Session.TTL)
	}
	return nil
}

// SessionTTL returns the parsed session lifetime. Call Validate first; an unparseable
// value yields 0, which the session registry treats as "use the default".
func (c Config) SessionTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Session.TTL)
	return ttl
}
