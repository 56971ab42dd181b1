// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// apiVersion is the Azure OpenAI REST API version requests are pinned to.
	apiVersion = "2024-06-01"

	// maxResponseSize caps how much of a provider response is read (1MB).
	maxResponseSize = 1 * 1024 * 1024

	// defaultTimeout bounds a single completion request.
	defaultTimeout = 60 * time.Second
)

// sharedHTTPClient is reused across gateways so connections are pooled.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// =============================================================================
// ERRORS
// =============================================================================

// ProviderError is returned when the provider rejects or fails a request.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider request failed (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider request failed: %s", e.Message)
}

// =============================================================================
// GATEWAY
// =============================================================================

// Options configures a Gateway.
type Options struct {
	// Endpoint is the Azure OpenAI resource URL.
	Endpoint string
	// Deployment is the model deployment name.
	Deployment string
	// Instructions is the system prompt prepended to every request.
	Instructions string
	// Credentials is the resolved authentication decision.
	Credentials Credentials
	// Tokens supplies bearer tokens in ambient mode. Defaults to the
	// Azure CLI source.
	Tokens TokenSource
	// Timeout bounds a single request. Defaults to 60s.
	Timeout time.Duration
	// HTTPClient overrides the shared pooled client, mainly for tests.
	HTTPClient *http.Client
}

// Gateway sends prompts to an Azure OpenAI chat completions deployment.
type Gateway struct {
	endpoint     string
	deployment   string
	instructions string
	creds        Credentials
	tokens       TokenSource
	timeout      time.Duration
	httpClient   *http.Client
}

// New creates a gateway. The authentication mode in opts.Credentials is fixed
// for the gateway's lifetime.
func New(opts Options) *Gateway {
	g := &Gateway{
		endpoint:     strings.TrimRight(opts.Endpoint, "/"),
		deployment:   opts.Deployment,
		instructions: opts.Instructions,
		creds:        opts.Credentials,
		tokens:       opts.Tokens,
		timeout:      opts.Timeout,
		httpClient:   opts.HTTPClient,
	}
	if g.tokens == nil {
		g.tokens = NewAzureCLITokenSource()
	}
	if g.timeout == 0 {
		g.timeout = defaultTimeout
	}
	if g.httpClient == nil {
		g.httpClient = sharedHTTPClient
	}

	log.Printf("GATEWAY_READY | endpoint=%s deployment=%s auth=%s",
		g.endpoint, g.deployment, g.creds.Mode)
	return g
}

// AuthMode reports the authentication mode the gateway was built with.
func (g *Gateway) AuthMode() AuthMode {
	return g.creds.Mode
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Messages []chatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// REQUESTS
// =============================================================================

// Ask sends a single prompt and returns the assistant's reply. Requests are
// not retried; callers decide what a failure means.
func (g *Gateway) Ask(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(completionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: g.instructions},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", &ProviderError{Message: fmt.Sprintf("failed to encode request: %v", err)}
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		g.endpoint, g.deployment, apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Message: fmt.Sprintf("failed to build request: %v", err)}
	}

	if err := g.setHeaders(ctx, req); err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &ProviderError{Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &ProviderError{Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	log.Printf("PROVIDER_REQUEST | deployment=%s status=%d elapsed=%s",
		g.deployment, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	var parsed completionResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &ProviderError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return "", &ProviderError{Message: fmt.Sprintf("failed to parse response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}

	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Message: "provider returned no choices"}
	}

	return parsed.Choices[0].Message.Content, nil
}

// setHeaders applies content type and authentication to a request.
func (g *Gateway) setHeaders(ctx context.Context, req *http.Request) error {
	req.Header.Set("Content-Type", "application/json")

	switch g.creds.Mode {
	case AuthAPIKey:
		req.Header.Set("api-key", g.creds.APIKey)
	case AuthAmbient:
		token, err := g.tokens.Token(ctx)
		if err != nil {
			return &ProviderError{Message: fmt.Sprintf("ambient credential unavailable: %v", err)}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}
