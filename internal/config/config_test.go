package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Matcry12/careervr/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CAREERVR_ENV", "CAREERVR_ADDR", "CAREERVR_JWT_SECRET", "CAREERVR_TIMEOUT",
		"CAREERVR_TOKEN_DURATION", "CAREERVR_LOG_LEVEL", "DATABASE_URL", "DATA_DIR",
		"KEY_PREFIX", "CONNECT_TIMEOUT", "CONNECT_RETRIES", "OPERATION_TIMEOUT",
		"RESTRICTED_DEPLOYMENT", "FORCE_LOCAL_WRITES", "VERCEL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestValidate_InsecureJWT_FailsWhenNotDevelopment(t *testing.T) {
	clearEnv(t)
	cfg := config.Default()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail for insecure JWT in non-development env")
	}
}

func TestValidate_InsecureJWT_AllowsDevelopment(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAREERVR_ENV", "development")
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected Validate to succeed in development env, got: %v", err)
	}
}

func TestValidate_FillsStorageDefaults(t *testing.T) {
	clearEnv(t)
	cfg := &config.Config{Addr: ":8080", JWTSecret: "strongsecret", TokenDuration: time.Hour}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed unexpectedly: %v", err)
	}
	if cfg.Storage.DataDir != "data" {
		t.Fatalf("unexpected DataDir: %q", cfg.Storage.DataDir)
	}
	if cfg.Storage.ConnectTimeout <= 0 || cfg.Storage.OperationTimeout <= 0 {
		t.Fatalf("expected storage timeouts to be populated")
	}
}

func TestValidate_NegativeRetries(t *testing.T) {
	clearEnv(t)
	cfg := config.Default()
	cfg.JWTSecret = "strongsecret"
	cfg.Storage.ConnectRetries = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail for negative retries")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error for empty path: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected Addr: got %q want %q", cfg.Addr, ":8080")
	}
	if cfg.APITimeout != 15*time.Second {
		t.Fatalf("unexpected APITimeout: got %v", cfg.APITimeout)
	}
	if cfg.Storage.URL != "" || cfg.Storage.DataDir != "data" || cfg.Storage.KeyPrefix != "careervr" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Storage.Restricted || cfg.Storage.ForceLocalWrites {
		t.Fatalf("gate inputs must default to false")
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("addr: \":9090\"\njwt_secret: \"filekey\"\ntimeout: \"30s\"\ntoken_duration: \"2h\"\nstorage:\n  url: \"sqlite:test.db\"\n  connect_retries: 5\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error for file: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.JWTSecret != "filekey" {
		t.Fatalf("unexpected values: %q %q", cfg.Addr, cfg.JWTSecret)
	}
	if cfg.APITimeout != 30*time.Second || cfg.TokenDuration != 2*time.Hour {
		t.Fatalf("unexpected durations: %v %v", cfg.APITimeout, cfg.TokenDuration)
	}
	if cfg.Storage.URL != "sqlite:test.db" || cfg.Storage.ConnectRetries != 5 {
		t.Fatalf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Storage.DataDir != "data" {
		t.Fatalf("file without data_dir must keep the default, got %q", cfg.Storage.DataDir)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CAREERVR_ADDR", ":7070")
	t.Setenv("DATABASE_URL", "redis://localhost:6379/0")
	t.Setenv("FORCE_LOCAL_WRITES", "true")
	t.Setenv("CONNECT_TIMEOUT", "2s")

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("unexpected Addr: %q", cfg.Addr)
	}
	if cfg.Storage.URL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected URL: %q", cfg.Storage.URL)
	}
	if !cfg.Storage.ForceLocalWrites || cfg.Storage.ConnectTimeout != 2*time.Second {
		t.Fatalf("unexpected storage: %+v", cfg.Storage)
	}
}

func TestLoadConfig_VercelImpliesRestricted(t *testing.T) {
	clearEnv(t)
	t.Setenv("VERCEL", "1")
	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Storage.Restricted {
		t.Fatalf("VERCEL=1 must mark the deployment restricted")
	}
}

func TestLoadConfig_BadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONNECT_RETRIES", "many")
	if _, err := config.LoadConfig(""); err == nil {
		t.Fatalf("expected error for non-numeric CONNECT_RETRIES")
	}
}

func TestLoadConfig_BadPath(t *testing.T) {
	clearEnv(t)
	if _, err := config.LoadConfig("/path/that/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent path, got nil")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("::: not yaml :::"), 0o600); err != nil {
		t.Fatalf("failed to write bad yaml: %v", err)
	}
	if _, err := config.LoadConfig(path); err == nil {
		t.Fatalf("expected error for bad yaml")
	}
}
