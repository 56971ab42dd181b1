// parley - A terminal chat client for Azure OpenAI with persistent
// multi-conversation history.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/parley-chat/parley/internal/api"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/export"
	"github.com/parley-chat/parley/internal/gateway"
	"github.com/parley-chat/parley/internal/server"
	"github.com/parley-chat/parley/internal/storage"
	"github.com/parley-chat/parley/internal/store"
	"github.com/parley-chat/parley/internal/ui/chat"
)

func main() {
	var (
		serveMode  = flag.Bool("serve", false, "run the HTTP bridge server instead of the TUI")
		addrFlag   = flag.String("addr", "", "bridge listen address (overrides config)")
		configPath = flag.String("config", "", "path to config file")
		exportFmt  = flag.String("export", "", "export conversations and exit (markdown or json)")
		exportDir  = flag.String("out", ".", "output directory for -export")
		version    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("parley %s\n", server.Version)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parley: %v\n", err)
		os.Exit(1)
	}
	config.SetGlobal(cfg)

	if *exportFmt != "" {
		if err := runExport(cfg, *exportFmt, *exportDir); err != nil {
			fmt.Fprintf(os.Stderr, "parley: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// The authentication mode is decided here, once, and fixed for the
	// lifetime of the process.
	creds := gateway.ResolveCredentials(cfg.Provider.APIKey)
	gw := gateway.New(gateway.Options{
		Endpoint:     cfg.Provider.Endpoint,
		Deployment:   cfg.Provider.Deployment,
		Instructions: cfg.Provider.Instructions,
		Credentials:  creds,
		Timeout:      time.Duration(cfg.Provider.TimeoutSecs) * time.Second,
	})

	if *serveMode {
		if err := runServer(cfg, gw, *addrFlag); err != nil {
			fmt.Fprintf(os.Stderr, "parley: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runTUI(cfg, gw); err != nil {
		fmt.Fprintf(os.Stderr, "parley: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// =============================================================================
// EXPORT MODE
// =============================================================================

// runExport writes every non-empty conversation in the snapshot to dir.
func runExport(cfg *config.Config, format, dir string) error {
	exporter, err := export.ForFormat(format)
	if err != nil {
		return err
	}

	state := storage.NewAdapter(cfg.Storage.Path).Load()
	exported := 0
	for _, conv := range state.Conversations {
		if len(conv.Messages) == 0 {
			continue
		}
		path, err := export.ToFile(conv, exporter, dir)
		if err != nil {
			return err
		}
		fmt.Println(path)
		exported++
	}

	if exported == 0 {
		return fmt.Errorf("no conversations to export")
	}
	return nil
}

// =============================================================================
// SERVER MODE
// =============================================================================

// runServer runs the bridge server until SIGINT or SIGTERM.
func runServer(cfg *config.Config, gw *gateway.Gateway, addrOverride string) error {
	addr := cfg.Server.Addr
	if addrOverride != "" {
		addr = addrOverride
	}

	srv := server.NewServer(gw, server.Options{
		Addr:      addr,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
		AuthMode:  gw.AuthMode().String(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("SIGNAL_RECEIVED | signal=%s", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// =============================================================================
// TUI MODE
// =============================================================================

// runTUI starts the chat interface. When no external bridge is configured an
// in-process one is served on a loopback listener.
func runTUI(cfg *config.Config, gw *gateway.Gateway) error {
	// Bubble Tea owns the terminal; route logs to a file instead.
	restore := redirectLogs()
	defer restore()

	serverURL := cfg.Chat.ServerURL
	var bridge *loopbackBridge
	if serverURL == "" {
		var err error
		bridge, err = startLoopbackBridge(gw)
		if err != nil {
			return fmt.Errorf("failed to start embedded bridge: %w", err)
		}
		defer bridge.Close()
		serverURL = bridge.URL
	}

	client := api.NewClient(serverURL,
		api.WithTimeout(time.Duration(cfg.Chat.TimeoutSecs)*time.Second))

	adapter := storage.NewAdapter(cfg.Storage.Path)
	var persister store.Persister = adapter
	if !cfg.Storage.PersistSelection {
		persister = sessionSelection{adapter}
	}
	st := store.New(persister)

	m := chat.New(st, client, chat.Options{
		ShowTimestamps: cfg.UI.ShowTimestamps,
		Theme:          cfg.UI.Theme,
		ExportDir:      filepath.Dir(adapter.Path()),
	})
	program := tea.NewProgram(m, tea.WithAltScreen())

	if cfg.Storage.WatchFile {
		watcher, err := storage.NewWatcher(adapter.Path(), func() {
			program.Send(chat.StoreChangedMsg{})
		})
		if err != nil {
			log.Printf("WATCHER_UNAVAILABLE | err=%v", err)
		} else {
			defer watcher.Close()
		}
	}

	_, err := program.Run()
	return err
}

// redirectLogs sends the standard logger to a file under the config
// directory, or discards output when the file cannot be opened. The returned
// function restores stderr logging.
func redirectLogs() func() {
	dir, err := config.ConfigDir()
	if err == nil {
		path := filepath.Join(dir, "parley.log")
		if f, ferr := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600); ferr == nil {
			log.SetOutput(f)
			return func() {
				log.SetOutput(os.Stderr)
				f.Close()
			}
		}
	}
	log.SetOutput(io.Discard)
	return func() { log.SetOutput(os.Stderr) }
}

// =============================================================================
// EMBEDDED BRIDGE
// =============================================================================

// loopbackBridge is the in-process bridge the TUI talks to when no external
// server is configured.
type loopbackBridge struct {
	URL    string
	server *http.Server
}

// startLoopbackBridge serves the bridge handler on an ephemeral loopback
// port. The rate limiter is left off; only this process can reach it.
func startLoopbackBridge(gw *gateway.Gateway) (*loopbackBridge, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	srv := server.NewServer(gw, server.Options{
		Addr:     ln.Addr().String(),
		AuthMode: gw.AuthMode().String(),
	})
	hs := &http.Server{
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	go func() {
		if err := hs.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("BRIDGE_STOPPED | err=%v", err)
		}
	}()

	log.Printf("BRIDGE_START | addr=%s", ln.Addr())
	return &loopbackBridge{
		URL:    "http://" + ln.Addr().String(),
		server: hs,
	}, nil
}

func (b *loopbackBridge) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.server.Shutdown(ctx)
}

// =============================================================================
// SELECTION SCOPING
// =============================================================================

// sessionSelection keeps the selected conversation out of the snapshot file
// so each session starts unselected.
type sessionSelection struct {
	adapter *storage.Adapter
}

func (p sessionSelection) Load() storage.State {
	state := p.adapter.Load()
	state.ActiveID = ""
	return state
}

func (p sessionSelection) Save(state storage.State) error {
	state.ActiveID = ""
	return p.adapter.Save(state)
}
