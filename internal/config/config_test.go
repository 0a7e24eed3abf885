package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Endpoint != "ws://localhost:8080/chat" {
		t.Errorf("Endpoint = %s, want ws://localhost:8080/chat", cfg.Endpoint)
	}
	if cfg.UploadURL != "http://localhost:8080/image-analyze/image" {
		t.Errorf("UploadURL = %s", cfg.UploadURL)
	}
	if cfg.ReconnectDelayMs != 3000 {
		t.Errorf("ReconnectDelayMs = %d, want 3000", cfg.ReconnectDelayMs)
	}
	if cfg.MaxReconnectAttempts != 0 {
		t.Errorf("MaxReconnectAttempts = %d, want 0", cfg.MaxReconnectAttempts)
	}
	if cfg.StoreBackend != BackendKV {
		t.Errorf("StoreBackend = %s, want %s", cfg.StoreBackend, BackendKV)
	}
	if cfg.Markdown.Style != "dark" {
		t.Errorf("Markdown.Style = %s, want dark", cfg.Markdown.Style)
	}
}

func TestConfig_ReconnectDelay(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ReconnectDelay() != 3*time.Second {
		t.Errorf("ReconnectDelay() = %v, want 3s", cfg.ReconnectDelay())
	}

	cfg.ReconnectDelayMs = 250
	if cfg.ReconnectDelay() != 250*time.Millisecond {
		t.Errorf("ReconnectDelay() = %v, want 250ms", cfg.ReconnectDelay())
	}

	cfg.ReconnectDelayMs = 0
	if cfg.ReconnectDelay() != 3*time.Second {
		t.Errorf("zero delay should fall back to default, got %v", cfg.ReconnectDelay())
	}
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() returned error: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("GetConfigPath() returned relative path: %s", path)
	}
	if filepath.Base(path) != "config.json" {
		t.Errorf("GetConfigPath() = %s, want .../config.json", path)
	}
}

func TestLoadConfigFrom_Missing(t *testing.T) {
	t.Setenv(EnvEndpoint, "")
	t.Setenv(EnvUploadURL, "")
	t.Setenv(EnvDataDir, "")

	cfg, err := LoadConfigFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}
	if cfg.Endpoint != DefaultConfig().Endpoint {
		t.Errorf("expected default endpoint, got %s", cfg.Endpoint)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	t.Setenv(EnvEndpoint, "")
	t.Setenv(EnvUploadURL, "")
	t.Setenv(EnvDataDir, "")

	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.Endpoint = "wss://example.test/chat"
	cfg.ReconnectDelayMs = 1500
	cfg.StoreBackend = BackendFile
	cfg.CopyToClipboard = true

	if err := SaveConfigTo(path, cfg); err != nil {
		t.Fatalf("SaveConfigTo() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config permissions = %o, want 600", info.Mode().Perm())
	}

	loaded, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}
	if loaded != cfg {
		t.Errorf("loaded config = %+v, want %+v", loaded, cfg)
	}
}

func TestLoadConfigFrom_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFrom(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if cfg.ReconnectDelayMs != 3000 {
		t.Errorf("expected defaults on parse error, got %+v", cfg)
	}
}

func TestLoadConfigFrom_EnvOverrides(t *testing.T) {
	t.Setenv(EnvEndpoint, "wss://override.test/chat")
	t.Setenv(EnvUploadURL, "https://override.test/upload")
	t.Setenv(EnvDataDir, "/tmp/mira-data")

	cfg, err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}
	if cfg.Endpoint != "wss://override.test/chat" {
		t.Errorf("Endpoint = %s", cfg.Endpoint)
	}
	if cfg.UploadURL != "https://override.test/upload" {
		t.Errorf("UploadURL = %s", cfg.UploadURL)
	}
	if cfg.DataDir != "/tmp/mira-data" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
}

func TestConfig_Set(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
		check   func(Config) bool
	}{
		{"endpoint", "wss://a.test/chat", false, func(c Config) bool { return c.Endpoint == "wss://a.test/chat" }},
		{"endpoint", "http://a.test", true, nil},
		{"upload_url", "https://a.test/up", false, func(c Config) bool { return c.UploadURL == "https://a.test/up" }},
		{"upload_url", "ftp://a.test", true, nil},
		{"reconnect_delay_ms", "500", false, func(c Config) bool { return c.ReconnectDelayMs == 500 }},
		{"reconnect_delay_ms", "-1", true, nil},
		{"max_reconnect_attempts", "5", false, func(c Config) bool { return c.MaxReconnectAttempts == 5 }},
		{"max_reconnect_attempts", "x", true, nil},
		{"store_backend", "file", false, func(c Config) bool { return c.StoreBackend == BackendFile }},
		{"store_backend", "sqlite", true, nil},
		{"log_level", "debug", false, func(c Config) bool { return c.LogLevel == "debug" }},
		{"log_level", "verbose", true, nil},
		{"copy_to_clipboard", "true", false, func(c Config) bool { return c.CopyToClipboard }},
		{"copy_to_clipboard", "maybe", true, nil},
		{"markdown.style", "light", false, func(c Config) bool { return c.Markdown.Style == "light" }},
		{"nonexistent", "x", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Set(%s, %s) did not apply: %+v", tt.key, tt.value, cfg)
			}
		})
	}
}

func TestKeysSorted(t *testing.T) {
	keys := Keys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("Keys() not sorted: %v", keys)
		}
	}
}

func TestResolveDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/custom"
	dir, err := cfg.ResolveDataDir()
	if err != nil || dir != "/custom" {
		t.Errorf("ResolveDataDir() = %s, %v", dir, err)
	}

	cfg.DataDir = ""
	dir, err = cfg.ResolveDataDir()
	if err != nil {
		t.Fatalf("ResolveDataDir() error = %v", err)
	}
	if filepath.Base(dir) != ".mira" {
		t.Errorf("ResolveDataDir() = %s, want ~/.mira", dir)
	}
}

func TestLoadStoredConfig_IgnoresEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvEndpoint, "wss://override.test/chat")

	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	stored, err := LoadStoredConfig()
	if err != nil {
		t.Fatalf("LoadStoredConfig() error = %v", err)
	}
	if stored.Endpoint != DefaultConfig().Endpoint {
		t.Errorf("Endpoint = %s, env override should not apply", stored.Endpoint)
	}
	if stored.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", stored.LogLevel)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Endpoint != "wss://override.test/chat" {
		t.Errorf("LoadConfig() Endpoint = %s, want env override", loaded.Endpoint)
	}
}
