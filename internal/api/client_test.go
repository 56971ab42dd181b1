// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Message != "hello" {
			t.Errorf("message = %q, want %q", req.Message, "hello")
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "hi there"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	reply, err := c.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if reply != "hi there" {
		t.Errorf("reply = %q, want %q", reply, "hi there")
	}
}

func TestSendServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Assistant request failed"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Send(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected an error")
	}

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error should be a TransportError, got %T", err)
	}
	if terr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", terr.StatusCode, http.StatusBadGateway)
	}
}

func TestSendConnectionRefused(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url)
	_, err := c.Send(context.Background(), "hello")

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("connection failure should be a TransportError, got %v", err)
	}
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect and
		// cancels the request context; otherwise srv.Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.Send(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestSendMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Send(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestBaseURLTrailingSlash(t *testing.T) {
	c := NewClient("http://localhost:8080/")
	if c.BaseURL() != "http://localhost:8080" {
		t.Errorf("base URL = %q, trailing slash should be trimmed", c.BaseURL())
	}
}
