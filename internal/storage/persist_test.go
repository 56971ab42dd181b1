// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parley-chat/parley/internal/model"
)

func tempAdapter(t *testing.T) *Adapter {
	t.Helper()
	return NewAdapter(filepath.Join(t.TempDir(), "conversations.json"))
}

func TestLoadMissingFile(t *testing.T) {
	a := tempAdapter(t)

	state := a.Load()
	if len(state.Conversations) != 0 {
		t.Errorf("missing file should load as empty, got %d conversations", len(state.Conversations))
	}
	if state.ActiveID != "" {
		t.Errorf("missing file should have no active ID, got %q", state.ActiveID)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a := tempAdapter(t)

	conv := model.NewConversation()
	conv.AddMessage(model.NewMessage(model.RoleUser, "hello"))
	conv.AddMessage(model.NewMessage(model.RoleAssistant, "hi there"))

	if err := a.Save(State{
		Conversations: []*model.Conversation{conv},
		ActiveID:      conv.ID,
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	state := a.Load()
	if len(state.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(state.Conversations))
	}
	got := state.Conversations[0]
	if got.ID != conv.ID {
		t.Errorf("ID = %q, want %q", got.ID, conv.ID)
	}
	if got.Title != conv.Title {
		t.Errorf("Title = %q, want %q", got.Title, conv.Title)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Content != "hello" || got.Messages[1].Content != "hi there" {
		t.Error("message contents did not survive the round trip")
	}
	if got.Messages[0].Role != model.RoleUser || got.Messages[1].Role != model.RoleAssistant {
		t.Error("message roles did not survive the round trip")
	}
	if state.ActiveID != conv.ID {
		t.Errorf("ActiveID = %q, want %q", state.ActiveID, conv.ID)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	a := tempAdapter(t)

	if err := os.MkdirAll(filepath.Dir(a.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(a.Path(), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	state := a.Load()
	if len(state.Conversations) != 0 {
		t.Errorf("corrupt file should load as empty, got %d conversations", len(state.Conversations))
	}
}

func TestLoadDropsDanglingActiveID(t *testing.T) {
	a := tempAdapter(t)

	conv := model.NewConversation()
	if err := a.Save(State{
		Conversations: []*model.Conversation{conv},
		ActiveID:      "conv_deadbeef00000000",
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	state := a.Load()
	if state.ActiveID != "" {
		t.Errorf("dangling active ID should be cleared, got %q", state.ActiveID)
	}
}

func TestSaveOverwrites(t *testing.T) {
	a := tempAdapter(t)

	first := model.NewConversation()
	second := model.NewConversation()

	if err := a.Save(State{Conversations: []*model.Conversation{first, second}}); err != nil {
		t.Fatal(err)
	}
	if err := a.Save(State{Conversations: []*model.Conversation{second}}); err != nil {
		t.Fatal(err)
	}

	state := a.Load()
	if len(state.Conversations) != 1 {
		t.Fatalf("expected 1 conversation after overwrite, got %d", len(state.Conversations))
	}
	if state.Conversations[0].ID != second.ID {
		t.Errorf("wrong conversation survived, got %q", state.Conversations[0].ID)
	}
}

func TestWatcherFiresOnSave(t *testing.T) {
	a := tempAdapter(t)

	// The watched directory must exist before the watcher starts.
	if err := a.Save(State{Conversations: []*model.Conversation{}}); err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(a.Path(), func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	conv := model.NewConversation()
	if err := a.Save(State{Conversations: []*model.Conversation{conv}}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the save")
	}
}
