package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
server:
  address: 127.0.0.1
  port: 9090
  db_path: /tmp/relay-test
  max_body_size: 2MB
security:
  rate_limit:
    rps: 50
    burst: 100
  developer:
    phone: "+79022428092"
    password: devpass
sessions:
  secret: unit-secret
  ttl: 24h
presence:
  typing_window: 3s
  offline_after: 10m
sweeper:
  enabled: true
  cron: "*/5 * * * *"
logging:
  level: debug
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Fatalf("addr = %q", cfg.Addr())
	}
	if cfg.Server.MaxBodySize.Int64() != 2*1000*1000 {
		t.Fatalf("max body size = %d", cfg.Server.MaxBodySize.Int64())
	}
	if cfg.Sessions.TTL.Duration() != 24*time.Hour {
		t.Fatalf("ttl = %v", cfg.Sessions.TTL.Duration())
	}
	if cfg.Presence.TypingWindow.Duration() != 3*time.Second {
		t.Fatalf("typing window = %v", cfg.Presence.TypingWindow.Duration())
	}
	if cfg.Security.Developer.Phone != "+79022428092" {
		t.Fatalf("developer phone = %q", cfg.Security.Developer.Phone)
	}
	if !cfg.Sweeper.Enabled || cfg.Sweeper.Cron != "*/5 * * * *" {
		t.Fatalf("sweeper = %+v", cfg.Sweeper)
	}
}

func TestEnvOverridesAndDefaults(t *testing.T) {
	t.Setenv("RELAY_PORT", "7070")
	t.Setenv("RELAY_SESSION_SECRET", "env-secret")
	t.Setenv("RELAY_TYPING_WINDOW", "5s")

	cfg := &Config{}
	LoadEnvOverrides(cfg)
	applyDefaults(cfg)

	if cfg.Server.Port != 7070 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Sessions.Secret != "env-secret" {
		t.Fatalf("secret = %q", cfg.Sessions.Secret)
	}
	if cfg.Presence.TypingWindow.Duration() != 5*time.Second {
		t.Fatalf("typing window = %v", cfg.Presence.TypingWindow.Duration())
	}
	// untouched fields fall back to defaults
	if cfg.Presence.OfflineAfter.Duration() != DefaultOfflineAfter {
		t.Fatalf("offline after = %v", cfg.Presence.OfflineAfter.Duration())
	}
	if cfg.Sweeper.Cron != DefaultSweeperCron {
		t.Fatalf("cron = %q", cfg.Sweeper.Cron)
	}
}

func TestFlagsWinOverEnv(t *testing.T) {
	t.Setenv("RELAY_DB_PATH", "/env/path")
	fl, err := ParseCommandFlags([]string{"--db", "/flag/path", "--addr", "0.0.0.0:6060"})
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := LoadEffective(fl)
	if err != nil {
		t.Fatalf("load effective: %v", err)
	}
	if cfg.Server.DBPath != "/flag/path" {
		t.Fatalf("db path = %q, want flag value", cfg.Server.DBPath)
	}
	if cfg.Server.Port != 6060 {
		t.Fatalf("port = %d, want 6060", cfg.Server.Port)
	}
}
