package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DB.Driver != "postgres" {
		t.Fatalf("expected postgres driver, got %q", cfg.DB.Driver)
	}
	if cfg.Server.Port != "3001" {
		t.Fatalf("expected port 3001, got %q", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "minio" {
		t.Fatalf("expected minio backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Probe.Timeout != 30*time.Second {
		t.Fatalf("expected 30s probe timeout, got %s", cfg.Probe.Timeout)
	}
	if !cfg.Probe.Enabled {
		t.Fatal("expected probing enabled by default")
	}
	if cfg.Server.CORSOrigins != "*" {
		t.Fatalf("expected permissive CORS by default, got %q", cfg.Server.CORSOrigins)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("PROBE_TIMEOUT", "5s")
	t.Setenv("FEED_OUTPUT_DIR", "/tmp/feeds")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DB.Driver != "sqlite" {
		t.Fatalf("expected sqlite driver, got %q", cfg.DB.Driver)
	}
	if cfg.Storage.Backend != "memory" {
		t.Fatalf("expected memory backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Probe.Timeout != 5*time.Second {
		t.Fatalf("expected 5s probe timeout, got %s", cfg.Probe.Timeout)
	}
	if cfg.Feed.OutputDir != "/tmp/feeds" {
		t.Fatalf("unexpected output dir %q", cfg.Feed.OutputDir)
	}
}

func TestPostgresDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p@ss", Name: "cms", SSLMode: "disable"}
	want := "postgres://u:p%40ss@db:5432/cms?sslmode=disable"
	if got := c.PostgresDSN(); got != want {
		t.Fatalf("PostgresDSN() = %q, want %q", got, want)
	}
}
