// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/parley-chat/parley/internal/export"
	"github.com/parley-chat/parley/internal/model"
)

// ErrorPlaceholder is appended as the assistant reply when a send fails. The
// user's message stays in the transcript.
const ErrorPlaceholder = "Sorry, there was an error processing your message."

// Update handles all Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.anyPending() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ReplyMsg:
		m.settleReply(msg.ConvID, msg.Text)
		return m, nil

	case ReplyErrMsg:
		m.settleReply(msg.ConvID, ErrorPlaceholder)
		return m, nil

	case StoreChangedMsg:
		m.store.Reload()
		m.refreshViewport()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey dispatches keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.NewConv):
		m.store.Create()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.DelConv):
		if id := m.store.ActiveID(); id != "" {
			m.store.Delete(id)
			// Deleting clears the selection entirely; any in-flight reply
			// for this conversation will be dropped by the store.
			delete(m.pending, id)
			m.refreshViewport()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.NextConv):
		m.moveSelection(1)
		return m, nil

	case key.Matches(msg, m.keyMap.PrevConv):
		m.moveSelection(-1)
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Export):
		m.exportActive()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit performs an optimistic send: the user's message is appended and the
// input cleared before the network round trip starts. Nothing blocks further
// sends while the reply is outstanding.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	conv := m.store.Active()
	if conv == nil {
		// Nothing selected (or the selection is dangling); there is
		// nowhere to send from.
		return m, nil
	}
	convID := conv.ID

	m.store.Append(convID, model.NewMessage(model.RoleUser, text))
	m.input.Reset()
	m.pending[convID]++
	m.refreshViewport()

	return m, tea.Batch(m.sendCmd(convID, text), m.spinner.Tick)
}

// sendCmd runs the exchange off the update loop. The conversation ID is
// captured now so the reply lands where the question was asked, regardless of
// what is selected by then.
func (m Model) sendCmd(convID, text string) tea.Cmd {
	sender := m.sender
	return func() tea.Msg {
		reply, err := sender.Send(context.Background(), text)
		if err != nil {
			return ReplyErrMsg{ConvID: convID, Err: err}
		}
		return ReplyMsg{ConvID: convID, Text: reply}
	}
}

// settleReply appends an assistant message to the conversation the send
// originated from. Appending to a deleted conversation is a store-level
// no-op.
func (m *Model) settleReply(convID, text string) {
	if m.pending[convID] > 0 {
		m.pending[convID]--
		if m.pending[convID] == 0 {
			delete(m.pending, convID)
		}
	}
	m.store.Append(convID, model.NewMessage(model.RoleAssistant, text))
	if convID == m.store.ActiveID() {
		m.refreshViewport()
	}
}

// exportActive writes the selected conversation as markdown into the export
// directory, named by the conversation ID so repeated exports overwrite.
func (m *Model) exportActive() {
	conv := m.store.Active()
	if conv == nil || len(conv.Messages) == 0 {
		return
	}

	content, err := export.MarkdownExporter{}.Export(conv)
	if err != nil {
		log.Printf("EXPORT_FAILED | conv=%s err=%v", conv.ID, err)
		return
	}

	dir := m.opts.ExportDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, conv.ID+".md")
	if err := os.WriteFile(path, content, 0644); err != nil {
		log.Printf("EXPORT_FAILED | conv=%s err=%v", conv.ID, err)
		return
	}
	log.Printf("EXPORT_WRITTEN | conv=%s path=%s", conv.ID, path)
}

// moveSelection selects the conversation delta positions away in the list.
func (m *Model) moveSelection(delta int) {
	list := m.store.List()
	if len(list) == 0 {
		return
	}

	active := m.store.ActiveID()
	idx := -1
	for i, conv := range list {
		if conv.ID == active {
			idx = i
			break
		}
	}

	next := idx + delta
	if idx < 0 {
		next = 0
	}
	if next < 0 || next >= len(list) {
		return
	}

	m.store.Select(list[next].ID)
	m.refreshViewport()
}
