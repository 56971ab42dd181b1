// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/parley-chat/parley/internal/model"
	"github.com/parley-chat/parley/internal/util"
)

// State is the full persisted snapshot: every conversation plus which one is
// selected. It is written and read as one JSON document.
type State struct {
	Conversations []*model.Conversation `json:"conversations"`
	ActiveID      string                `json:"active_id,omitempty"`
}

// Adapter reads and writes the snapshot file.
type Adapter struct {
	path string
}

// NewAdapter creates an adapter persisting to the given file path. If path is
// empty the default location under the user's home directory is used.
func NewAdapter(path string) *Adapter {
	if path == "" {
		path = DefaultPath()
	}
	return &Adapter{path: path}
}

// DefaultPath returns ~/.parley/conversations.json, falling back to the
// current directory when the home directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "conversations.json"
	}
	return filepath.Join(home, ".parley", "conversations.json")
}

// Path returns the file the adapter reads and writes.
func (a *Adapter) Path() string {
	return a.path
}

// Load reads the snapshot from disk. A missing or unreadable file and a file
// that fails to parse all yield an empty state rather than an error, so a
// damaged file never blocks startup.
func (a *Adapter) Load() State {
	empty := State{Conversations: []*model.Conversation{}}

	data, err := os.ReadFile(a.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("STORAGE_READ_FAILED | path=%s error=%v", a.path, err)
		}
		return empty
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("STORAGE_CORRUPT | path=%s error=%v", a.path, err)
		return empty
	}

	if state.Conversations == nil {
		state.Conversations = []*model.Conversation{}
	}

	// Drop the active pointer if it no longer matches a conversation.
	if state.ActiveID != "" {
		found := false
		for _, conv := range state.Conversations {
			if conv.ID == state.ActiveID {
				found = true
				break
			}
		}
		if !found {
			state.ActiveID = ""
		}
	}

	return state
}

// Save writes the snapshot atomically. Callers treat persistence as
// best-effort; a failed save is logged and reported but must not interrupt
// the conversation flow.
func (a *Adapter) Save(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := util.AtomicWriteFile(a.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", a.path, err)
	}

	return nil
}
