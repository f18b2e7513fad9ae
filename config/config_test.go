package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/vaultkit/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vaultkit.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func validConfig() string {
	return `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 15s

vault:
  root: "/var/lib/vaultkit"
  plugin_dir: "/etc/vaultkit/plugins"

mirror:
  enabled: true
  path: ":memory:"
  sync_interval: 5m

logging:
  level: "debug"
  format: "console"
`
}

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, validConfig()))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want 15s", cfg.Server.ReadTimeout)
	}
	if cfg.Vault.Root != "/var/lib/vaultkit" {
		t.Errorf("Vault.Root = %s", cfg.Vault.Root)
	}
	if !cfg.Mirror.Enabled || cfg.Mirror.Path != ":memory:" {
		t.Errorf("Mirror = %+v", cfg.Mirror)
	}
	if cfg.Mirror.SyncInterval != 5*time.Minute {
		t.Errorf("SyncInterval = %v, want 5m", cfg.Mirror.SyncInterval)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "vault:\n  root: /data\n"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout != 60*time.Second {
		t.Errorf("WriteTimeout = %v, want 60s", cfg.Server.WriteTimeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %s", cfg.Metrics.Path)
	}
}

func TestLoad_MirrorPathDefault(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "vault:\n  root: /data\nmirror:\n  enabled: true\n"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Mirror.Path != "/data/mirror.db" {
		t.Errorf("Mirror.Path = %s, want /data/mirror.db", cfg.Mirror.Path)
	}
}

func TestLoad_MissingRoot(t *testing.T) {
	_, err := config.Load(writeConfig(t, "server:\n  port: 8080\n"))
	if err == nil || !strings.Contains(err.Error(), "vault.root") {
		t.Errorf("expected vault.root error, got %v", err)
	}
}

func TestLoad_BadLogLevel(t *testing.T) {
	_, err := config.Load(writeConfig(t, "vault:\n  root: /data\nlogging:\n  level: loud\n"))
	if err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_VAULT_ROOT", "/srv/records")
	cfg, err := config.Load(writeConfig(t, "vault:\n  root: ${TEST_VAULT_ROOT}\n"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Vault.Root != "/srv/records" {
		t.Errorf("Vault.Root = %s, want /srv/records", cfg.Vault.Root)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VAULTKIT_SERVER_PORT", "9999")
	t.Setenv("VAULTKIT_LOG_LEVEL", "warn")
	cfg, err := config.Load(writeConfig(t, "vault:\n  root: /data\nserver:\n  port: 8081\n"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d, want env override 9999", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %s, want warn", cfg.Logging.Level)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VAULTKIT_ROOT", "/data")
	t.Setenv("VAULTKIT_MIRROR_ENABLED", "true")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.Vault.Root != "/data" {
		t.Errorf("Vault.Root = %s", cfg.Vault.Root)
	}
	if !cfg.Mirror.Enabled || cfg.Mirror.Path != "/data/mirror.db" {
		t.Errorf("Mirror = %+v", cfg.Mirror)
	}
}

func TestLoadWithFallback(t *testing.T) {
	path := writeConfig(t, validConfig())
	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want file value 9090", cfg.Server.Port)
	}

	t.Setenv("VAULTKIT_ROOT", "/data")
	cfg, err = config.LoadWithFallback(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("fallback error: %v", err)
	}
	if cfg.Vault.Root != "/data" {
		t.Errorf("fallback Vault.Root = %s", cfg.Vault.Root)
	}
}
