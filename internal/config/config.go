// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// parley.
//
// Configuration sources (in order of precedence):
//   - Environment variable overrides
//   - ~/.parley/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete parley configuration.
type Config struct {
	// Provider configuration for the assistant backend
	Provider ProviderConfig `toml:"provider"`

	// Server configuration for the message exchange endpoint
	Server ServerConfig `toml:"server"`

	// Chat behavior configuration
	Chat ChatConfig `toml:"chat"`

	// Storage configuration
	Storage StorageConfig `toml:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ProviderConfig contains assistant provider settings.
type ProviderConfig struct {
	// Endpoint is the Azure OpenAI resource endpoint URL
	Endpoint string `toml:"endpoint"`
	// APIKey authenticates requests when set; when empty, ambient
	// credentials (az login) are used instead
	APIKey string `toml:"api_key"`
	// Deployment is the model deployment name
	Deployment string `toml:"deployment"`
	// Instructions is the system prompt sent with every request
	Instructions string `toml:"instructions"`
	// TimeoutSecs is the per-request timeout in seconds
	TimeoutSecs int `toml:"timeout_secs"`
}

// ServerConfig contains the HTTP bridge settings.
type ServerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:8080"
	Addr string `toml:"addr"`
	// RateLimit is the allowed requests per second per client IP (0 = off)
	RateLimit float64 `toml:"rate_limit"`
	// RateBurst is the burst size for the rate limiter
	RateBurst int `toml:"rate_burst"`
}

// ChatConfig contains chat client settings.
type ChatConfig struct {
	// ServerURL points the TUI at an external bridge; empty means an
	// embedded loopback bridge is started in-process
	ServerURL string `toml:"server_url"`
	// TimeoutSecs is the send timeout in seconds
	TimeoutSecs int `toml:"timeout_secs"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	// Path is the snapshot file (empty = ~/.parley/conversations.json)
	Path string `toml:"path"`
	// PersistSelection controls whether the selected conversation is
	// remembered across restarts
	PersistSelection bool `toml:"persist_selection"`
	// WatchFile reloads state when another process modifies the file
	WatchFile bool `toml:"watch_file"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// ShowTimestamps displays message times in the transcript
	ShowTimestamps bool `toml:"show_timestamps"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// DefaultEndpoint is the placeholder provider endpoint used when none is
// configured. Requests against it fail; it exists so a fresh install starts
// without any setup.
const DefaultEndpoint = "https://your-resource.openai.azure.com/"

// DefaultDeployment is the model deployment used when none is configured.
const DefaultDeployment = "gpt-4o-mini"

// DefaultInstructions is the system prompt sent with every request.
const DefaultInstructions = "You are a helpful assistant."

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Endpoint:     DefaultEndpoint,
			APIKey:       "",
			Deployment:   DefaultDeployment,
			Instructions: DefaultInstructions,
			TimeoutSecs:  60,
		},
		Server: ServerConfig{
			Addr:      "127.0.0.1:8080",
			RateLimit: 10,
			RateBurst: 20,
		},
		Chat: ChatConfig{
			ServerURL:   "",
			TimeoutSecs: 60,
		},
		Storage: StorageConfig{
			Path:             "",
			PersistSelection: true,
			WatchFile:        true,
		},
		UI: UIConfig{
			Theme:          "auto",
			ShowTimestamps: false,
			CompactMode:    false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the parley configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".parley"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file, falling back to
// defaults when the file does not exist. Environment overrides are applied
// last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path. A missing file
// is not an error; defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - AZURE_OPENAI_ENDPOINT: overrides provider.endpoint
//   - AZURE_OPENAI_API_KEY: overrides provider.api_key
//   - AZURE_OPENAI_DEPLOYMENT_NAME: overrides provider.deployment
//   - PARLEY_SERVER_URL: overrides chat.server_url
//   - PARLEY_ADDR: overrides server.addr
//   - PARLEY_STORAGE_PATH: overrides storage.path
//   - PARLEY_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT"); endpoint != "" {
		c.Provider.Endpoint = endpoint
	}
	if key := os.Getenv("AZURE_OPENAI_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if deployment := os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME"); deployment != "" {
		c.Provider.Deployment = deployment
	}
	if serverURL := os.Getenv("PARLEY_SERVER_URL"); serverURL != "" {
		c.Chat.ServerURL = serverURL
	}
	if addr := os.Getenv("PARLEY_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("PARLEY_STORAGE_PATH"); path != "" {
		c.Storage.Path = path
	}
	if theme := os.Getenv("PARLEY_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Provider.Endpoint == "" {
		c.Provider.Endpoint = defaults.Provider.Endpoint
	}
	if c.Provider.Deployment == "" {
		c.Provider.Deployment = defaults.Provider.Deployment
	}
	if c.Provider.Instructions == "" {
		c.Provider.Instructions = defaults.Provider.Instructions
	}
	if c.Provider.TimeoutSecs == 0 {
		c.Provider.TimeoutSecs = defaults.Provider.TimeoutSecs
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = defaults.Server.RateBurst
	}
	if c.Chat.TimeoutSecs == 0 {
		c.Chat.TimeoutSecs = defaults.Chat.TimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if _, err := url.Parse(c.Provider.Endpoint); err != nil {
		return ValidationError{
			Field:   "provider.endpoint",
			Message: fmt.Sprintf("invalid URL: %v", err),
		}
	}

	if c.Chat.ServerURL != "" {
		u, err := url.Parse(c.Chat.ServerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ValidationError{
				Field:   "chat.server_url",
				Message: fmt.Sprintf("invalid URL %q", c.Chat.ServerURL),
			}
		}
	}

	if c.Provider.TimeoutSecs < 0 {
		return ValidationError{
			Field:   "provider.timeout_secs",
			Message: "must be non-negative",
		}
	}

	if c.Server.RateLimit < 0 {
		return ValidationError{
			Field:   "server.rate_limit",
			Message: "must be non-negative",
		}
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		return ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		}
	}

	return nil
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance. Loads configuration on
// first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			cfg.ApplyEnvOverrides()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
