// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/parley-chat/parley/internal/render"
	"github.com/parley-chat/parley/internal/store"
	"github.com/parley-chat/parley/internal/ui/styles"
)

// sidebarWidth is the fixed width of the conversation list column.
const sidebarWidth = 28

// Sender posts a user message and returns the assistant reply. Implemented by
// api.Client.
type Sender interface {
	Send(ctx context.Context, message string) (string, error)
}

// Options configures the chat model.
type Options struct {
	// ShowTimestamps displays message times in the transcript.
	ShowTimestamps bool
	// Theme is passed through to the markdown renderer.
	Theme string
	// ExportDir is where transcript exports are written. Empty means the
	// current directory.
	ExportDir string
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	store  *store.Store
	sender Sender
	md     *render.Markdown

	// Dimensions
	width  int
	height int
	ready  bool

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	keyMap KeyMap
	opts   Options

	// pending counts in-flight sends per conversation ID. Sends are not
	// serialized; a conversation can have several replies outstanding.
	pending map[string]int
}

// New creates a chat model over the given store and sender.
func New(st *store.Store, sender Sender, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = styles.InputPrompt
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Amber)

	return Model{
		store:   st,
		sender:  sender,
		md:      render.NewMarkdown(80, opts.Theme),
		input:   ti,
		spinner: sp,
		keyMap:  DefaultKeyMap(),
		opts:    opts,
		pending: make(map[string]int),
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// pendingCount reports in-flight sends for the selected conversation.
func (m Model) pendingCount() int {
	id := m.store.ActiveID()
	if id == "" {
		return 0
	}
	return m.pending[id]
}

// anyPending reports whether any conversation has an in-flight send.
func (m Model) anyPending() bool {
	for _, n := range m.pending {
		if n > 0 {
			return true
		}
	}
	return false
}
