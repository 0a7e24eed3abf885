package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/mira/internal/config"
)

func TestConfigShow_AppliesOverrides(t *testing.T) {
	setupEnv(t)
	t.Setenv(config.EnvUploadURL, "https://env.test/upload")

	stdout, _, err := execute(t, "config", "show", "--endpoint", "wss://flag.test/chat")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var cfg config.Config
	if err := json.Unmarshal([]byte(stdout), &cfg); err != nil {
		t.Fatalf("config show is not JSON: %v\n%s", err, stdout)
	}
	if cfg.Endpoint != "wss://flag.test/chat" {
		t.Errorf("Endpoint = %s, want flag value", cfg.Endpoint)
	}
	if cfg.UploadURL != "https://env.test/upload" {
		t.Errorf("UploadURL = %s, want env value", cfg.UploadURL)
	}
}

func TestConfigPath(t *testing.T) {
	setupEnv(t)

	stdout, _, err := execute(t, "config", "path")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(stdout), filepath.Join(".mira", "config.json")) {
		t.Errorf("path = %q", stdout)
	}
}

func TestConfigSet(t *testing.T) {
	setupEnv(t)
	t.Setenv(config.EnvEndpoint, "wss://env.test/chat")

	stdout, _, err := execute(t, "config", "set", "store_backend", "file")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stdout, "store_backend = file") {
		t.Errorf("stdout = %q", stdout)
	}

	stored, err := config.LoadStoredConfig()
	if err != nil {
		t.Fatal(err)
	}
	if stored.StoreBackend != config.BackendFile {
		t.Errorf("StoreBackend = %s", stored.StoreBackend)
	}
	if stored.Endpoint != config.DefaultConfig().Endpoint {
		t.Errorf("env override leaked into the file: %s", stored.Endpoint)
	}
}

func TestConfigSet_Invalid(t *testing.T) {
	setupEnv(t)

	tests := [][]string{
		{"config", "set", "endpoint", "http://not-a-socket"},
		{"config", "set", "no_such_key", "x"},
		{"config", "set", "tui_theme", "no-such-theme"},
		{"config", "set", "markdown.style", "/no/such/style.json"},
	}
	for _, args := range tests {
		if _, _, err := execute(t, args...); err == nil {
			t.Errorf("%v should fail", args)
		}
	}
}

func TestConfigSet_MarkdownStyle(t *testing.T) {
	setupEnv(t)

	stylePath := filepath.Join(t.TempDir(), "style.json")
	if err := os.WriteFile(stylePath, []byte(`{"document":{}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, style := range []string{"light", "nord", stylePath} {
		if _, _, err := execute(t, "config", "set", "markdown.style", style); err != nil {
			t.Fatalf("set %s: %v", style, err)
		}
		stored, err := config.LoadStoredConfig()
		if err != nil {
			t.Fatal(err)
		}
		if stored.Markdown.Style != style {
			t.Errorf("Markdown.Style = %s, want %s", stored.Markdown.Style, style)
		}
	}
}

func TestConfigThemes(t *testing.T) {
	setupEnv(t)

	stdout, _, err := execute(t, "config", "themes")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stdout, "tokyonight") || !strings.Contains(stdout, "nord") {
		t.Errorf("themes = %q", stdout)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	dataDir := setupEnv(t)

	if _, _, err := execute(t, "config", "set", "store_backend", "file"); err != nil {
		t.Fatal(err)
	}

	fake := &fakeTUI{}
	if err := runChatCmd(t, fake, "--new"); err != nil {
		t.Fatalf("chat: %v", err)
	}

	stdout, _, err := execute(t, "history", "list")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stdout, "New Chat") {
		t.Errorf("list = %q", stdout)
	}
	if matches, _ := filepath.Glob(filepath.Join(dataDir, "chats.json")); len(matches) != 1 {
		t.Error("file backend should write chats.json")
	}
}
