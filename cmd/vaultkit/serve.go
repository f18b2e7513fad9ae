package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/vaultkit/config"
	"github.com/artpar/vaultkit/core/vault"
	"github.com/artpar/vaultkit/web"
)

var hotReload bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the vaultkit HTTP API.

The server will:
  - Load configuration from vaultkit.yaml (or --config)
  - Or load configuration from VAULTKIT_* environment variables
  - Compose plugins from the plugin directory
  - Serve CRUD, actions, stats, export, sync and query endpoints

Environment variables (for Docker deployments):
  VAULTKIT_ROOT            - Record store root directory (required)
  VAULTKIT_PLUGIN_DIR      - Declarative plugin directory
  VAULTKIT_SERVER_PORT     - Server port (default: 8080)
  VAULTKIT_MIRROR_ENABLED  - Enable the SQLite mirror
  VAULTKIT_LOG_LEVEL       - Log level: debug, info, warn, error

Examples:
  vaultkit serve
  vaultkit serve --config /etc/vaultkit/config.yaml
  VAULTKIT_ROOT=/srv/records vaultkit serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	v, collector, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	defer v.Close()

	// Hot reload only works with a config file on disk.
	if hotReload {
		if _, statErr := os.Stat(cfgFile); statErr == nil {
			holder, err := config.NewHolder(cfgFile, logger)
			if err != nil {
				return err
			}
			defer holder.Stop()
			if collector != nil {
				holder.SetReloadObserver(collector)
			}
			if err := holder.WatchFile(); err != nil {
				return err
			}
			holder.WatchSignals()
			holder.OnChange(func(next *config.Config) {
				logger.Info().Msg("config changed; restart to apply plugin or mirror changes")
			})
		}
	}

	handler := web.NewHandler(web.Deps{
		Vault:          v,
		Logger:         logger,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	stopSync := startPeriodicSync(cfg, v, logger)
	defer stopSync()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// startPeriodicSync runs mirror syncs on the configured interval. Returns a
// stop function; a no-op when periodic sync is disabled.
func startPeriodicSync(cfg *config.Config, v *vault.Vault, logger zerolog.Logger) func() {
	if !cfg.Mirror.Enabled || cfg.Mirror.SyncInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Mirror.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := v.Sync(context.Background()); err != nil {
					logger.Error().Err(err).Msg("periodic sync failed")
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
