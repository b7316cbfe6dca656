package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Guard.LoginPath != "/login" {
		t.Errorf("LoginPath = %q, want /login", cfg.Guard.LoginPath)
	}
	if cfg.CodeTTL() != 5*time.Minute {
		t.Errorf("CodeTTL = %v, want 5m", cfg.CodeTTL())
	}
	if cfg.Verification.Store != "memory" {
		t.Errorf("Store = %q, want memory", cfg.Verification.Store)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
gateway:
  url: https://yaml.example
  anon_key: anon
guard:
  landing_path: /home
`)
	t.Setenv("GATEWAY_URL", "https://env.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Gateway.URL != "https://env.example" {
		t.Errorf("Gateway.URL = %q, want env override", cfg.Gateway.URL)
	}
	if cfg.Storage.URL != "https://env.example" {
		t.Errorf("Storage.URL = %q, want gateway url fallback", cfg.Storage.URL)
	}
	if cfg.Guard.LandingPath != "/home" {
		t.Errorf("LandingPath = %q, want /home", cfg.Guard.LandingPath)
	}
}

func TestLoadRejectsRedisStoreWithoutAddr(t *testing.T) {
	path := writeConfig(t, `
verification:
  store: redis
`)
	t.Setenv("REDIS_ADDR", "")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for redis store without addr")
	}
}

func TestLoadRejectsLocalIntrospectionWithoutSecret(t *testing.T) {
	path := writeConfig(t, `
gateway:
  local_introspection: true
`)
	t.Setenv("GATEWAY_JWT_SECRET", "")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for local introspection without secret")
	}
}

func TestLoadStorageKeysFromEnv(t *testing.T) {
	t.Setenv("STORAGE_ACCESS_KEY_ID", "key-id")
	t.Setenv("STORAGE_SECRET_ACCESS_KEY", "secret")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.AccessKey != "key-id" || cfg.Storage.SecretKey != "secret" {
		t.Errorf("storage keys = %q/%q", cfg.Storage.AccessKey, cfg.Storage.SecretKey)
	}
	if cfg.Storage.Region != "us-east-1" {
		t.Errorf("Region = %q, want us-east-1", cfg.Storage.Region)
	}
}
