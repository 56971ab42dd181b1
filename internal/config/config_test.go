// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Provider.Endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %q, want %q", cfg.Provider.Endpoint, DefaultEndpoint)
	}
	if cfg.Provider.Deployment != DefaultDeployment {
		t.Errorf("deployment = %q, want %q", cfg.Provider.Deployment, DefaultDeployment)
	}
	if cfg.Provider.Instructions != DefaultInstructions {
		t.Errorf("instructions = %q, want %q", cfg.Provider.Instructions, DefaultInstructions)
	}
	if cfg.Provider.APIKey != "" {
		t.Error("default config should have no API key")
	}
	if !cfg.Storage.PersistSelection {
		t.Error("persist_selection should default to true")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[provider]
endpoint = "https://myresource.openai.azure.com/"
deployment = "gpt-4o"

[server]
addr = "127.0.0.1:9999"

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Provider.Endpoint != "https://myresource.openai.azure.com/" {
		t.Errorf("endpoint = %q", cfg.Provider.Endpoint)
	}
	if cfg.Provider.Deployment != "gpt-4o" {
		t.Errorf("deployment = %q", cfg.Provider.Deployment)
	}
	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}

	// Unspecified fields fall back to defaults.
	if cfg.Provider.Instructions != DefaultInstructions {
		t.Errorf("instructions should default, got %q", cfg.Provider.Instructions)
	}
	if cfg.Chat.TimeoutSecs != 60 {
		t.Errorf("chat timeout should default to 60, got %d", cfg.Chat.TimeoutSecs)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing config file should not error, got: %v", err)
	}
	if cfg.Provider.Deployment != DefaultDeployment {
		t.Errorf("deployment = %q, want default", cfg.Provider.Deployment)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://env.openai.azure.com/")
	t.Setenv("AZURE_OPENAI_API_KEY", "env-key")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT_NAME", "env-deployment")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Provider.Endpoint != "https://env.openai.azure.com/" {
		t.Errorf("endpoint = %q", cfg.Provider.Endpoint)
	}
	if cfg.Provider.APIKey != "env-key" {
		t.Errorf("api key = %q", cfg.Provider.APIKey)
	}
	if cfg.Provider.Deployment != "env-deployment" {
		t.Errorf("deployment = %q", cfg.Provider.Deployment)
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[provider]
deployment = "from-file"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AZURE_OPENAI_DEPLOYMENT_NAME", "from-env")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.Deployment != "from-env" {
		t.Errorf("deployment = %q, env should win over file", cfg.Provider.Deployment)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.UI.Theme = "neon"
	if err := cfg.Validate(); err == nil {
		t.Error("invalid theme should fail validation")
	}

	cfg = Default()
	cfg.Chat.ServerURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Error("invalid server URL should fail validation")
	}

	cfg = Default()
	cfg.Server.RateLimit = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative rate limit should fail validation")
	}
}

func TestGlobalConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = Global()
		}()
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
	}
	wg.Wait()
}
