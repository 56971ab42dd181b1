// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"log"
	"sync"

	"github.com/parley-chat/parley/internal/model"
	"github.com/parley-chat/parley/internal/storage"
)

// Persister saves and loads the full conversation snapshot. Implemented by
// storage.Adapter; test doubles substitute their own.
type Persister interface {
	Load() storage.State
	Save(storage.State) error
}

// Store holds every conversation plus the selection pointer. All methods are
// safe for concurrent use. Every mutation is written through to the persister;
// a failed save is logged and otherwise ignored so persistence problems never
// break the conversation flow.
type Store struct {
	mu      sync.RWMutex
	convs   []*model.Conversation
	active  string
	persist Persister
}

// New creates a store backed by the given persister, loading the existing
// snapshot from it.
func New(p Persister) *Store {
	s := &Store{persist: p}
	state := p.Load()
	s.convs = state.Conversations
	s.active = state.ActiveID
	return s
}

// Create adds a new empty conversation, places it first in the list, and
// selects it. Returns a copy of the new conversation.
func (s *Store) Create() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := model.NewConversation()
	// Newest first, matching the sidebar ordering.
	s.convs = append([]*model.Conversation{conv}, s.convs...)
	s.active = conv.ID
	s.saveLocked()

	log.Printf("CONVERSATION_CREATED | id=%s", conv.ID)
	return conv.Clone()
}

// Delete removes the conversation with the given ID. Deleting the selected
// conversation clears the selection; it is never moved to another
// conversation. Unknown IDs are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return
	}

	s.convs = append(s.convs[:idx], s.convs[idx+1:]...)
	if s.active == id {
		s.active = ""
	}
	s.saveLocked()

	log.Printf("CONVERSATION_DELETED | id=%s", id)
}

// Select makes the conversation with the given ID the active one. Existence
// is not checked; a stale ID is harmless because readers treat a dangling
// selection as no active conversation.
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == id {
		return
	}
	s.active = id
	s.saveLocked()
}

// Append adds a message to the conversation with the given ID. Appending to a
// conversation that no longer exists is a no-op: a reply can arrive after its
// conversation was deleted, and the late message is simply dropped.
func (s *Store) Append(id string, msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		log.Printf("MESSAGE_DROPPED | conversation=%s role=%s", id, msg.Role)
		return
	}

	s.convs[idx].AddMessage(msg)
	s.saveLocked()
}

// Get returns a deep copy of the conversation with the given ID.
func (s *Store) Get(id string) (*model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, false
	}
	return s.convs[idx].Clone(), true
}

// List returns deep copies of all conversations, newest first.
func (s *Store) List() []*model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Conversation, len(s.convs))
	for i, conv := range s.convs {
		out[i] = conv.Clone()
	}
	return out
}

// Active returns a deep copy of the selected conversation, or nil when
// nothing is selected.
func (s *Store) Active() *model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == "" {
		return nil
	}
	idx := s.indexLocked(s.active)
	if idx < 0 {
		return nil
	}
	return s.convs[idx].Clone()
}

// ActiveID returns the ID of the selected conversation, or "" when nothing
// is selected.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}

// Reload replaces the in-memory state with whatever the persister currently
// holds. Used when the snapshot file changes under a running session. The
// selection is process-local UI state: when the current selection still
// resolves to a conversation in the reloaded state it is kept, so a watcher
// event triggered by this process's own save cannot wipe it.
func (s *Store) Reload() {
	state := s.persist.Load()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs = state.Conversations

	prev := s.active
	s.active = state.ActiveID
	if prev != "" && s.indexLocked(prev) >= 0 {
		s.active = prev
	}

	log.Printf("STORE_RELOADED | conversations=%d", len(s.convs))
}

// indexLocked returns the position of the conversation with the given ID, or
// -1. Callers must hold the lock.
func (s *Store) indexLocked(id string) int {
	for i, conv := range s.convs {
		if conv.ID == id {
			return i
		}
	}
	return -1
}

// saveLocked writes the current state through to the persister. Callers must
// hold the write lock. Failures are logged, never propagated.
func (s *Store) saveLocked() {
	activeID := s.active
	if activeID != "" && s.indexLocked(activeID) < 0 {
		activeID = ""
	}
	err := s.persist.Save(storage.State{
		Conversations: s.convs,
		ActiveID:      activeID,
	})
	if err != nil {
		log.Printf("STORE_SAVE_FAILED | error=%v", err)
	}
}
