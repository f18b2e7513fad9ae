package config_test

import (
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/artpar/vaultkit/config"
)

func TestHolder_Get(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Vault.Root != "/var/lib/vaultkit" {
		t.Errorf("Vault.Root = %s", got.Vault.Root)
	}
}

func TestHolder_Reload(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte("vault:\n  root: /srv/other\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if got := h.Get().Vault.Root; got != "/srv/other" {
		t.Errorf("Vault.Root after reload = %s, want /srv/other", got)
	}
}

func TestHolder_ReloadKeepsOldConfigOnError(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := h.Reload(); err == nil {
		t.Fatal("Reload should fail on invalid config")
	}
	if got := h.Get().Vault.Root; got != "/var/lib/vaultkit" {
		t.Errorf("old config lost: Vault.Root = %s", got)
	}
}

func TestHolder_OnChange(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var seen *config.Config
	h.OnChange(func(c *config.Config) {
		mu.Lock()
		seen = c
		mu.Unlock()
	})

	if err := os.WriteFile(path, []byte("vault:\n  root: /srv/other\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if seen == nil || seen.Vault.Root != "/srv/other" {
		t.Errorf("OnChange saw %+v", seen)
	}
}

type reloadRecorder struct {
	ok     int
	failed int
}

func (r *reloadRecorder) ObserveReload(err error) {
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

func TestHolder_ReloadObserver(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	rec := &reloadRecorder{}
	h.SetReloadObserver(rec)

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if rec.ok != 1 || rec.failed != 0 {
		t.Errorf("after good reload: ok=%d failed=%d, want 1/0", rec.ok, rec.failed)
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := h.Reload(); err == nil {
		t.Fatal("Reload should fail on invalid config")
	}
	if rec.ok != 1 || rec.failed != 1 {
		t.Errorf("after bad reload: ok=%d failed=%d, want 1/1", rec.ok, rec.failed)
	}
}
