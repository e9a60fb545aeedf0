package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("unexpected path %s", resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	def := Default()
	if cfg.Addr != def.Addr || cfg.HeartbeatInterval != def.HeartbeatInterval || cfg.SendQueueSize != def.SendQueueSize {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Database.Driver != "sqlite" || cfg.HistoryLimit != 1000 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.JWTSecret != "" {
		t.Fatalf("default config must not ship a signing secret")
	}
}

func TestLoadReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
addr: ":9090"
heartbeat_interval: 10s
messages_per_minute: 120
allowed_origins:
  - "draw.example.com"
database:
  driver: postgres
  dsn: "postgres://localhost/wiredraw"
redis:
  addr: "localhost:6379"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.HeartbeatInterval != 10*time.Second || cfg.MessagesPerMinute != 120 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "draw.example.com" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN == "" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected nested config: %+v", cfg)
	}
	// keys absent from the file keep their defaults
	if cfg.SendQueueSize != 64 {
		t.Fatalf("expected default send queue, got %d", cfg.SendQueueSize)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WIREDRAW_ADDR", ":7070")
	t.Setenv("WIREDRAW_JWT_SECRET", "from-env")
	t.Setenv("WIREDRAW_DATABASE_PATH", "/tmp/other.db")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.JWTSecret != "from-env" || cfg.Database.Path != "/tmp/other.db" {
		t.Fatalf("env did not override: %+v", cfg)
	}
}

func TestUpdateFromKeepsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1", Database: DatabaseConfig{Driver: "postgres"}})

	if cfg.Addr != ":1" || cfg.Database.Driver != "postgres" {
		t.Fatalf("override not applied: %+v", cfg)
	}
	if cfg.Database.Path != "wiredraw.db" || cfg.HeartbeatInterval != 30*time.Second {
		t.Fatalf("zero values must not clear defaults: %+v", cfg)
	}
}
