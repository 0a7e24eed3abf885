// Package config handles configuration for mira.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/diogo/mira/internal/models"
)

// Store backends
const (
	BackendKV   = "kv"
	BackendFile = "file"
)

// Environment overrides
const (
	EnvEndpoint  = "MIRA_ENDPOINT"
	EnvUploadURL = "MIRA_UPLOAD_URL"
	EnvDataDir   = "MIRA_DATA_DIR"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // "dark", "light", or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	// Endpoint is the websocket URL of the assistant service.
	Endpoint string `json:"endpoint"`
	// UploadURL receives multipart image uploads for analysis.
	UploadURL string `json:"upload_url"`
	// ReconnectDelayMs is the fixed wait after a close before dialing again.
	ReconnectDelayMs int `json:"reconnect_delay_ms"`
	// MaxReconnectAttempts bounds consecutive reconnects; 0 retries forever.
	MaxReconnectAttempts int `json:"max_reconnect_attempts"`
	// StoreBackend selects conversation persistence: "kv" (pebble) or "file".
	StoreBackend    string         `json:"store_backend"`
	DataDir         string         `json:"data_dir,omitempty"`
	LogLevel        string         `json:"log_level"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	TUITheme        string         `json:"tui_theme,omitempty"`
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Endpoint:             models.DefaultSocketURL,
		UploadURL:            models.DefaultUploadURL,
		ReconnectDelayMs:     int(models.DefaultReconnectDelay / time.Millisecond),
		MaxReconnectAttempts: 0,
		StoreBackend:         BackendKV,
		LogLevel:             "info",
		CopyToClipboard:      false,
		TUITheme:             "tokyonight",
		Markdown:             DefaultMarkdownConfig(),
	}
}

// ReconnectDelay returns the reconnect delay as a duration
func (c Config) ReconnectDelay() time.Duration {
	if c.ReconnectDelayMs <= 0 {
		return models.DefaultReconnectDelay
	}
	return time.Duration(c.ReconnectDelayMs) * time.Millisecond
}

// ResolveDataDir returns the directory holding conversations and logs
func (c Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	return GetConfigDir()
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".mira"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// Conversations may be private
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the configuration from disk and applies environment overrides
func LoadConfig() (Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		cfg := DefaultConfig()
		applyEnv(&cfg)
		return cfg, err
	}
	return LoadConfigFrom(configPath)
}

// LoadConfigFrom loads the configuration from a specific file
func LoadConfigFrom(path string) (Config, error) {
	cfg, err := readConfigFile(path)
	applyEnv(&cfg)
	return cfg, err
}

// LoadStoredConfig loads the config file without environment overrides,
// so that editing and saving it never persists them
func LoadStoredConfig() (Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	return readConfigFile(configPath)
}

func readConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if config doesn't exist
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvEndpoint); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv(EnvUploadURL); v != "" {
		cfg.UploadURL = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}
	return SaveConfigTo(filepath.Join(configDir, "config.json"), cfg)
}

// SaveConfigTo saves the configuration to a specific file
func SaveConfigTo(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setters maps editable keys to their parsers
var setters = map[string]func(*Config, string) error{
	"endpoint": func(c *Config, v string) error {
		if !strings.HasPrefix(v, "ws://") && !strings.HasPrefix(v, "wss://") {
			return fmt.Errorf("endpoint must start with ws:// or wss://")
		}
		c.Endpoint = v
		return nil
	},
	"upload_url": func(c *Config, v string) error {
		if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
			return fmt.Errorf("upload_url must start with http:// or https://")
		}
		c.UploadURL = v
		return nil
	},
	"reconnect_delay_ms": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("reconnect_delay_ms must be a positive integer")
		}
		c.ReconnectDelayMs = n
		return nil
	},
	"max_reconnect_attempts": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("max_reconnect_attempts must be zero or a positive integer")
		}
		c.MaxReconnectAttempts = n
		return nil
	},
	"store_backend": func(c *Config, v string) error {
		if v != BackendKV && v != BackendFile {
			return fmt.Errorf("store_backend must be %q or %q", BackendKV, BackendFile)
		}
		c.StoreBackend = v
		return nil
	},
	"data_dir": func(c *Config, v string) error {
		c.DataDir = v
		return nil
	},
	"log_level": func(c *Config, v string) error {
		switch v {
		case "debug", "info", "warn", "error", "disabled":
			c.LogLevel = v
			return nil
		}
		return fmt.Errorf("log_level must be one of debug, info, warn, error, disabled")
	},
	"copy_to_clipboard": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("copy_to_clipboard must be true or false")
		}
		c.CopyToClipboard = b
		return nil
	},
	"tui_theme": func(c *Config, v string) error {
		c.TUITheme = v
		return nil
	},
	"markdown.style": func(c *Config, v string) error {
		c.Markdown.Style = v
		return nil
	},
}

// Set updates a single configuration key from its string form
func (c *Config) Set(key, value string) error {
	setter, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s (valid keys: %s)", key, strings.Join(Keys(), ", "))
	}
	return setter(c, strings.TrimSpace(value))
}

// Keys returns the editable configuration keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
