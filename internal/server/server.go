// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the HTTP bridge between chat clients and the
// assistant provider.
//
// Endpoints:
//   - POST /api/chat - exchange one user message for one assistant reply
//   - GET  /health   - health check
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// ChatPath is the message exchange endpoint.
	ChatPath = "/api/chat"

	// MaxRequestBodySize caps request bodies to prevent abuse (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageLength caps a single user message.
	MaxMessageLength = 100000

	// Version is the server version.
	Version = "0.1.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Asker produces an assistant reply for a single prompt. Implemented by
// gateway.Gateway.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Options configures a Server.
type Options struct {
	// Addr is the listen address.
	Addr string
	// RateLimit is allowed requests per second per client IP (0 = off).
	RateLimit float64
	// RateBurst is the limiter burst size.
	RateBurst int
	// AuthMode is the gateway's authentication mode, reported by /health.
	AuthMode string
}

// Server is the HTTP bridge server.
type Server struct {
	addr     string
	router   *http.ServeMux
	server   *http.Server
	asker    Asker
	limiter  *ipRateLimiter
	authMode string
}

// NewServer creates a server that answers chat requests through the given
// asker.
func NewServer(asker Asker, opts Options) *Server {
	s := &Server{
		addr:     opts.Addr,
		router:   http.NewServeMux(),
		asker:    asker,
		authMode: opts.AuthMode,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = newIPRateLimiter(opts.RateLimit, burst)
	}

	s.setupRoutes()
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the fully wrapped handler, exposed so tests and the
// embedded loopback bridge can serve it without opening a listener.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
		CORSMiddleware(),
	}
	if s.limiter != nil {
		middlewares = append(middlewares, RateLimitMiddleware(s.limiter))
	}
	return Chain(middlewares...)(s.router)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST "+ChatPath, s.handleChat)
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// ============================================================================
// WIRE TYPES
// ============================================================================

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the response body for POST /api/chat.
type ChatResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", MaxRequestBodySize))
			return
		}
		log.Printf("INVALID_REQUEST | error=%v", err)
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "Message must not be empty")
		return
	}
	if len(req.Message) > MaxMessageLength {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Message exceeds maximum length of %d", MaxMessageLength))
		return
	}

	start := time.Now()
	reply, err := s.asker.Ask(r.Context(), req.Message)
	if err != nil {
		// Full details stay in the log; the client gets a generic message.
		log.Printf("CHAT_ERROR | error=%v latency=%dms", err, time.Since(start).Milliseconds())
		s.writeError(w, http.StatusBadGateway, "Assistant request failed")
		return
	}

	log.Printf("CHAT_COMPLETE | latency=%dms", time.Since(start).Milliseconds())
	s.writeJSON(w, http.StatusOK, ChatResponse{Message: reply})
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Auth    string `json:"auth,omitempty"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
		Auth:    s.authMode,
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", s.addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"code":    status,
		},
	})
}
