package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Port != 5001 {
		t.Fatalf("default port: %d", cfg.Port)
	}
	if cfg.AccessTTL != 15*time.Minute || cfg.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("token TTLs: %v %v", cfg.AccessTTL, cfg.RefreshTTL)
	}
	if len(cfg.CORSOrigins) == 0 {
		t.Fatal("expected dev CORS origins")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SMS_PORT", "9000")
	t.Setenv("SMS_LOG", "debug")
	t.Setenv("SMS_ACCESS_TTL", "5m")
	t.Setenv("SMS_CORS_ORIGIN", "https://sms.example.edu")
	cfg := FromEnv()
	if cfg.Port != 9000 {
		t.Fatalf("port override: %d", cfg.Port)
	}
	if cfg.LogLevel != zerolog.DebugLevel {
		t.Fatalf("log level override: %v", cfg.LogLevel)
	}
	if cfg.AccessTTL != 5*time.Minute {
		t.Fatalf("ttl override: %v", cfg.AccessTTL)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://sms.example.edu" {
		t.Fatalf("cors override: %v", cfg.CORSOrigins)
	}
}

func TestSecretPrefersKeyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.key")
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(100 + i)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	cfg.SecretPath = path
	got := cfg.Secret()
	if len(got) != 32 || got[0] != 100 {
		t.Fatalf("expected key file contents, got %v", got[:4])
	}
}
