// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAsker echoes the prompt or fails with a fixed error.
type stubAsker struct {
	reply string
	err   error
	last  string
}

func (a *stubAsker) Ask(ctx context.Context, prompt string) (string, error) {
	a.last = prompt
	if a.err != nil {
		return "", a.err
	}
	return a.reply, nil
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, ChatPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatRoundTrip(t *testing.T) {
	asker := &stubAsker{reply: "Hello back"}
	srv := NewServer(asker, Options{Addr: "127.0.0.1:0"})

	rec := postChat(t, srv.Handler(), `{"message":"Hello"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello", asker.last)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Hello back", resp.Message)
}

func TestChatProviderFailure(t *testing.T) {
	asker := &stubAsker{err: errors.New("deployment not found")}
	srv := NewServer(asker, Options{Addr: "127.0.0.1:0"})

	rec := postChat(t, srv.Handler(), `{"message":"Hello"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	// Provider details must not leak to the client.
	assert.NotContains(t, rec.Body.String(), "deployment not found")
}

func TestChatEmptyMessage(t *testing.T) {
	srv := NewServer(&stubAsker{reply: "x"}, Options{Addr: "127.0.0.1:0"})

	for _, body := range []string{`{"message":""}`, `{"message":"   "}`, `{}`} {
		rec := postChat(t, srv.Handler(), body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestChatMalformedJSON(t *testing.T) {
	srv := NewServer(&stubAsker{reply: "x"}, Options{Addr: "127.0.0.1:0"})

	rec := postChat(t, srv.Handler(), `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatBodyTooLarge(t *testing.T) {
	srv := NewServer(&stubAsker{reply: "x"}, Options{Addr: "127.0.0.1:0"})

	big := bytes.Repeat([]byte("a"), MaxRequestBodySize+100)
	body := `{"message":"` + string(big) + `"}`
	rec := postChat(t, srv.Handler(), body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestChatMethodNotAllowed(t *testing.T) {
	srv := NewServer(&stubAsker{reply: "x"}, Options{Addr: "127.0.0.1:0"})

	req := httptest.NewRequest(http.MethodGet, ChatPath, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := NewServer(&stubAsker{reply: "x"}, Options{Addr: "127.0.0.1:0", AuthMode: "api_key"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "api_key", resp.Auth)
}

func TestCORSPreflight(t *testing.T) {
	srv := NewServer(&stubAsker{reply: "x"}, Options{Addr: "127.0.0.1:0"})

	req := httptest.NewRequest(http.MethodOptions, ChatPath, nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	srv := NewServer(&stubAsker{reply: "x"}, Options{Addr: "127.0.0.1:0"})

	rec := postChat(t, srv.Handler(), `{"message":"hi"}`)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRateLimit(t *testing.T) {
	srv := NewServer(&stubAsker{reply: "x"}, Options{
		Addr:      "127.0.0.1:0",
		RateLimit: 1,
		RateBurst: 2,
	})
	handler := srv.Handler()

	statuses := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		rec := postChat(t, handler, `{"message":"hi"}`)
		statuses = append(statuses, rec.Code)
	}

	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Equal(t, http.StatusOK, statuses[1])
	assert.Contains(t, statuses, http.StatusTooManyRequests)
}

// panicAsker triggers the recovery middleware.
type panicAsker struct{}

func (panicAsker) Ask(ctx context.Context, prompt string) (string, error) {
	panic("boom")
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := NewServer(panicAsker{}, Options{Addr: "127.0.0.1:0"})

	rec := postChat(t, srv.Handler(), `{"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	// Direct connection from a non-loopback address ignores headers.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:1234"
	r.Header.Set("X-Forwarded-For", "10.1.1.1")
	assert.Equal(t, "203.0.113.9", GetClientIP(r))

	// Loopback connections may carry a forwarded client IP.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "127.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", GetClientIP(r))
}
