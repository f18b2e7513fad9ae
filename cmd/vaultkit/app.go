package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/artpar/vaultkit/adapters/clock"
	"github.com/artpar/vaultkit/adapters/idgen"
	"github.com/artpar/vaultkit/adapters/metrics"
	"github.com/artpar/vaultkit/adapters/sqlite"
	"github.com/artpar/vaultkit/config"
	"github.com/artpar/vaultkit/core/table"
	"github.com/artpar/vaultkit/core/vault"
	"github.com/artpar/vaultkit/ports"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Logging.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// openVault composes the vault from the config: declarative plugins from the
// plugin directory, the SQLite mirror when enabled, and Prometheus metrics.
// The collector is nil when metrics are disabled.
func openVault(cfg *config.Config, logger zerolog.Logger) (*vault.Vault, *metrics.Collector, error) {
	var plugins []vault.PluginConfig
	if cfg.Vault.PluginDir != "" {
		var err error
		plugins, err = vault.ParseDir(cfg.Vault.PluginDir)
		if err != nil {
			return nil, nil, fmt.Errorf("load plugins: %w", err)
		}
	}

	var mirror ports.Mirror
	if cfg.Mirror.Enabled {
		m, err := sqlite.New(cfg.Mirror.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open mirror: %w", err)
		}
		mirror = m
	}

	var collector *metrics.Collector
	var observer table.Observer
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		observer = collector
	}

	v, err := vault.New(vault.Options{
		Root:     cfg.Vault.Root,
		Plugins:  plugins,
		IDs:      idgen.New(clock.Real{}),
		Mirror:   mirror,
		Logger:   logger,
		Observer: observer,
	})
	if err != nil {
		return nil, nil, err
	}
	return v, collector, nil
}

func loadConfig() (*config.Config, error) {
	return config.LoadWithFallback(cfgFile)
}
