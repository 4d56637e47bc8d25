// Package config loads the shard topology from a TOML file and opens it as a
// shard registry.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	toml "github.com/pelletier/go-toml/v2"

	"shardroute/internal/infra/persistence/postgres"
	"shardroute/internal/infra/persistence/sqlite"
	"shardroute/internal/shard"
)

// Environment variables consulted by Load.
const (
	EnvConfigPath = "SHARDROUTE_CONFIG"
	EnvDefaultDSN = "SHARDROUTE_DEFAULT_DSN"
	EnvLogLevel   = "SHARDROUTE_LOG_LEVEL"
)

// Supported shard drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ShardConfig describes one physical database.
type ShardConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Config is the shard topology: the default database plus named shards.
type Config struct {
	LogLevel string                 `toml:"log_level"`
	Default  ShardConfig            `toml:"default"`
	Shards   map[string]ShardConfig `toml:"shards"`
}

// DefaultConfigPath returns ~/.shardroute/config.toml, or "" without a home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".shardroute", "config.toml")
	}
	return ""
}

// Load reads the file at path, with SHARDROUTE_CONFIG taking precedence over
// path, then applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	if env := os.Getenv(EnvConfigPath); env != "" {
		path = env
	}
	if path == "" {
		return Config{}, errors.New("config: no configuration path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return Config{}, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML without applying environment overrides or validation.
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides the default DSN and log level from the environment.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvDefaultDSN); ok && v != "" {
		c.Default.DSN = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
}

// Validate checks drivers, DSNs, and shard names. Empty drivers mean sqlite.
func (c Config) Validate() error {
	if err := c.Default.validate(); err != nil {
		return fmt.Errorf("config: default shard: %w", err)
	}
	for _, name := range c.ShardNames() {
		if name == "" || name == shard.DefaultShardName {
			return fmt.Errorf("config: shard name %q is reserved", name)
		}
		if err := c.Shards[name].validate(); err != nil {
			return fmt.Errorf("config: shard %s: %w", name, err)
		}
	}
	return nil
}

func (s ShardConfig) driver() string {
	if s.Driver == "" {
		return DriverSQLite
	}
	return s.Driver
}

func (s ShardConfig) validate() error {
	switch s.driver() {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported driver %q", s.Driver)
	}
	if s.DSN == "" {
		return errors.New("dsn is required")
	}
	return nil
}

// ShardNames returns the configured shard names in sorted order.
func (c Config) ShardNames() []string {
	names := make([]string, 0, len(c.Shards))
	for name := range c.Shards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open connects to one configured database.
func (s ShardConfig) Open(ctx context.Context) (shard.Handle, error) {
	switch s.driver() {
	case DriverPostgres:
		return postgres.NewHandle(ctx, s.DSN)
	case DriverSQLite:
		return sqlite.NewHandle(ctx, s.DSN)
	default:
		return shard.Handle{}, fmt.Errorf("unsupported driver %q", s.Driver)
	}
}

// OpenRegistry opens every configured database and builds the registry.
// Databases already opened are closed when a later one fails.
func OpenRegistry(ctx context.Context, cfg Config) (*shard.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var opened []shard.Handle
	fail := func(err error) (*shard.Registry, error) {
		for _, h := range opened {
			if c, ok := h.Conn.(io.Closer); ok {
				_ = c.Close()
			}
		}
		return nil, err
	}

	def, err := cfg.Default.Open(ctx)
	if err != nil {
		return fail(fmt.Errorf("open default shard: %w", err))
	}
	opened = append(opened, def)
	shards := make(map[string]shard.Handle, len(cfg.Shards))
	for _, name := range cfg.ShardNames() {
		h, err := cfg.Shards[name].Open(ctx)
		if err != nil {
			return fail(fmt.Errorf("open shard %s: %w", name, err))
		}
		opened = append(opened, h)
		shards[name] = h
	}
	reg, err := shard.NewRegistry(def, shards)
	if err != nil {
		return fail(err)
	}
	return reg, nil
}
