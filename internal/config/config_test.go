package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Name != "claims-service" {
		t.Fatalf("app name = %q", cfg.App.Name)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Fatalf("addr = %q", cfg.App.Addr())
	}
	if cfg.Redis.ClaimCacheTTL() != 5*time.Minute {
		t.Fatalf("cache ttl = %v", cfg.Redis.ClaimCacheTTL())
	}
	if cfg.Auth.AccessTokenTTLMinutes != 60 {
		t.Fatalf("token ttl = %d", cfg.Auth.AccessTokenTTLMinutes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "5")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != "9090" {
		t.Fatalf("port = %q", cfg.App.Port)
	}
	if cfg.App.RequestTimeout() != 5*time.Second {
		t.Fatalf("timeout = %v", cfg.App.RequestTimeout())
	}
	if cfg.Postgres.RunMigrations {
		t.Fatal("migrations flag should be off")
	}
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.MaxConns != 10 {
		t.Fatalf("max conns = %d", cfg.Postgres.MaxConns)
	}
}
