package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	t.Setenv("KIOSK_REMOTE_BASE_URL", "http://cart.internal:9000/")
	t.Setenv("CART_EXPIRE_HOURS", "12")

	cfg := Load()
	if cfg.Server.Port != "8080" {
		t.Fatalf("default port want 8080 got %s", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("default driver want sqlite got %s", cfg.Database.Driver)
	}
	if cfg.Kiosk.RemoteBaseURL != "http://cart.internal:9000/" {
		t.Fatalf("env override not applied: %s", cfg.Kiosk.RemoteBaseURL)
	}
	if got := cfg.Kiosk.ProbeURL(); got != "http://cart.internal:9000/health" {
		t.Fatalf("unexpected probe url: %s", got)
	}
	if got := cfg.Cart.ExpireAfter(); got != 12*time.Hour {
		t.Fatalf("expire after want 12h got %s", got)
	}
}

func TestDurationFallbacks(t *testing.T) {
	var kiosk KioskConfig
	if kiosk.ProbeInterval() != 5*time.Second {
		t.Fatalf("probe interval fallback want 5s got %s", kiosk.ProbeInterval())
	}
	if kiosk.RetryInterval() != 30*time.Second {
		t.Fatalf("retry interval fallback want 30s got %s", kiosk.RetryInterval())
	}
	kiosk.ProbePath = "ping"
	kiosk.RemoteBaseURL = "http://x"
	if kiosk.ProbeURL() != "http://x/ping" {
		t.Fatalf("probe path should be normalized, got %s", kiosk.ProbeURL())
	}
	var cart CartConfig
	if cart.CacheTTL() != 5*time.Minute {
		t.Fatalf("cache ttl fallback want 5m got %s", cart.CacheTTL())
	}
}
