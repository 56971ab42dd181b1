// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// DefaultTitle is the title assigned to a conversation at creation, before
// any message has arrived to derive a better one from.
const DefaultTitle = "New conversation"

// Conversation is an ordered transcript of messages with identity metadata.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// NewConversation creates an empty conversation with a unique ID and the
// default title.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        generateConversationID(),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}
}

// AddMessage appends a message to the transcript and bumps UpdatedAt. The
// title is not touched; the sidebar previews the transcript instead.
func (c *Conversation) AddMessage(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

// LastMessage returns the most recent message, or a zero Message if the
// transcript is empty.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Clone returns a deep copy of the conversation. Callers can mutate the copy
// without affecting the original.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	clone.Messages = make([]Message, len(c.Messages))
	copy(clone.Messages, c.Messages)
	return &clone
}

// ExportMarkdown renders the transcript as a markdown document suitable for
// saving to a file.
func (c *Conversation) ExportMarkdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.Title)
	fmt.Fprintf(&b, "Created: %s\n\n", c.CreatedAt.Format(time.RFC3339))
	for _, msg := range c.Messages {
		if msg.Role == RoleSystem {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", roleLabel(msg.Role), msg.Content)
	}
	return b.String()
}

func roleLabel(r Role) string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// generateConversationID returns a unique ID like "conv_a1b2c3d4e5f60718".
func generateConversationID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fall back to a timestamp-based ID.
		return fmt.Sprintf("conv_%x", time.Now().UnixNano())
	}
	return "conv_" + hex.EncodeToString(b)
}
