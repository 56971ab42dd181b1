// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// AuthMode says how requests to the provider are authenticated.
type AuthMode int

const (
	// AuthAPIKey sends the configured key in the api-key header.
	AuthAPIKey AuthMode = iota
	// AuthAmbient sends a bearer token obtained from the logged-in Azure
	// CLI session.
	AuthAmbient
)

func (m AuthMode) String() string {
	switch m {
	case AuthAPIKey:
		return "api_key"
	case AuthAmbient:
		return "ambient"
	default:
		return "unknown"
	}
}

// Credentials is the authentication decision for the lifetime of the process.
type Credentials struct {
	Mode   AuthMode
	APIKey string
}

// ResolveCredentials picks the authentication mode from the configured API
// key. A non-empty key wins; otherwise ambient CLI credentials are used.
// Called exactly once at startup - a key set or cleared later has no effect
// on a running process.
func ResolveCredentials(apiKey string) Credentials {
	if apiKey != "" {
		return Credentials{Mode: AuthAPIKey, APIKey: apiKey}
	}
	return Credentials{Mode: AuthAmbient}
}

// TokenSource provides bearer tokens for ambient authentication.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// cognitiveScope is the resource tokens are requested for.
const cognitiveScope = "https://cognitiveservices.azure.com"

// AzureCLITokenSource obtains tokens from the local `az` CLI session,
// caching them until shortly before expiry.
type AzureCLITokenSource struct {
	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewAzureCLITokenSource creates a token source backed by `az account
// get-access-token`.
func NewAzureCLITokenSource() *AzureCLITokenSource {
	return &AzureCLITokenSource{}
}

type azTokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresOn   string `json:"expires_on"`
}

// Token returns a cached token or fetches a fresh one from the CLI.
func (s *AzureCLITokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Until(s.expires) > time.Minute {
		return s.token, nil
	}

	cmd := exec.CommandContext(ctx, "az", "account", "get-access-token",
		"--resource", cognitiveScope, "--output", "json")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("azure cli token request failed (is 'az login' done?): %w", err)
	}

	var resp azTokenResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return "", fmt.Errorf("failed to parse azure cli token output: %w", err)
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return "", fmt.Errorf("azure cli returned an empty access token")
	}

	s.token = resp.AccessToken
	// The CLI reports expiry as a unix timestamp string; fall back to a
	// conservative lifetime when it is absent or malformed.
	s.expires = time.Now().Add(5 * time.Minute)
	if resp.ExpiresOn != "" {
		var unix int64
		if _, err := fmt.Sscanf(resp.ExpiresOn, "%d", &unix); err == nil && unix > 0 {
			s.expires = time.Unix(unix, 0)
		}
	}

	return s.token, nil
}
