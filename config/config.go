// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Vault   VaultConfig   `yaml:"vault"`
	Mirror  MirrorConfig  `yaml:"mirror"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// VaultConfig configures the record store.
type VaultConfig struct {
	// Root is the directory holding every plugin's record files.
	Root string `yaml:"root"`

	// PluginDir holds declarative plugin YAML definitions, loaded at startup.
	PluginDir string `yaml:"plugin_dir"`
}

// MirrorConfig configures the relational mirror.
type MirrorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // SQLite file path, or ":memory:"

	// SyncInterval triggers periodic syncs when > 0; sync is otherwise
	// on-demand only.
	SyncInterval time.Duration `yaml:"sync_interval"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default: /metrics
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
//	VAULTKIT_ROOT            - Record store root directory (required)
//	VAULTKIT_PLUGIN_DIR      - Declarative plugin directory
//	VAULTKIT_SERVER_HOST     - Server host (default: 0.0.0.0)
//	VAULTKIT_SERVER_PORT     - Server port (default: 8080)
//	VAULTKIT_MIRROR_ENABLED  - Enable the relational mirror
//	VAULTKIT_MIRROR_PATH     - Mirror SQLite path (default: <root>/mirror.db)
//	VAULTKIT_LOG_LEVEL       - Log level (default: info)
//	VAULTKIT_LOG_FORMAT      - "json" or "console" (default: json)
//	VAULTKIT_METRICS_ENABLED - Enable /metrics endpoint
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback tries to load from file, falling back to environment
// variables when the file does not exist.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	if os.Getenv("VAULTKIT_ROOT") != "" {
		return LoadFromEnv()
	}
	return nil, fmt.Errorf("no configuration found: provide config file or set VAULTKIT_ROOT")
}

// applyEnvOverrides applies VAULTKIT_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VAULTKIT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("VAULTKIT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VAULTKIT_ROOT"); v != "" {
		cfg.Vault.Root = v
	}
	if v := os.Getenv("VAULTKIT_PLUGIN_DIR"); v != "" {
		cfg.Vault.PluginDir = v
	}
	if v := os.Getenv("VAULTKIT_MIRROR_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Mirror.Enabled = enabled
		}
	}
	if v := os.Getenv("VAULTKIT_MIRROR_PATH"); v != "" {
		cfg.Mirror.Path = v
	}
	if v := os.Getenv("VAULTKIT_MIRROR_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Mirror.SyncInterval = d
		}
	}
	if v := os.Getenv("VAULTKIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VAULTKIT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("VAULTKIT_METRICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = enabled
		}
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Mirror.Enabled && cfg.Mirror.Path == "" {
		cfg.Mirror.Path = cfg.Vault.Root + "/mirror.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Vault.Root == "" {
		return fmt.Errorf("vault.root is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if cfg.Mirror.SyncInterval < 0 {
		return fmt.Errorf("mirror.sync_interval must not be negative")
	}
	return nil
}
