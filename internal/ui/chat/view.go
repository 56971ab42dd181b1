// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/parley-chat/parley/internal/model"
	"github.com/parley-chat/parley/internal/ui/styles"
	"github.com/parley-chat/parley/internal/util"
)

// chromeHeight is the rows taken by the input line and the status line.
const chromeHeight = 2

// handleResize recomputes the layout for a new terminal size.
func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	contentWidth := m.width - sidebarWidth - 2
	if contentWidth < 20 {
		contentWidth = 20
	}
	contentHeight := m.height - chromeHeight
	if contentHeight < 3 {
		contentHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, contentHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = contentHeight
	}
	m.input.Width = m.width - 4
	m.md = m.md.WithWidth(contentWidth)

	m.refreshViewport()
	return m
}

// refreshViewport rebuilds the transcript for the selected conversation and
// scrolls to the newest message.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the full chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	main := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderSidebar(),
		m.viewport.View(),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		main,
		m.input.View(),
		m.renderStatus(),
	)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar() string {
	inner := sidebarWidth - 2
	height := m.height - chromeHeight
	active := m.store.ActiveID()

	var b strings.Builder
	b.WriteString(styles.SidebarTitle.Render("Conversations"))
	b.WriteString("\n\n")

	for _, conv := range m.store.List() {
		title := util.TruncateWidth(conv.Title, inner)
		if conv.ID == active {
			b.WriteString(styles.SidebarSelected.Width(inner).Render(title))
		} else {
			b.WriteString(styles.SidebarItem.Render(title))
		}
		b.WriteString("\n")

		if last, ok := conv.LastMessage(); ok {
			preview := fmt.Sprintf("(%d) %s", len(conv.Messages), util.FirstLine(last.Content))
			b.WriteString(styles.SidebarPreview.Render(util.TruncateWidth(preview, inner)))
			b.WriteString("\n")
		}
	}

	return styles.Sidebar.
		Width(sidebarWidth).
		Height(height).
		Render(b.String())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m Model) renderTranscript() string {
	conv := m.store.Active()
	if conv == nil {
		return styles.Help.Render("No conversation selected. Ctrl+N starts one.")
	}
	if len(conv.Messages) == 0 {
		return styles.Help.Render("Type a message and press Enter.")
	}

	var b strings.Builder
	for i, msg := range conv.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if n := m.pendingCount(); n > 0 {
		b.WriteString("\n")
		b.WriteString(m.spinner.View())
		b.WriteString(styles.StatusPending.Render("Assistant is thinking..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderMessage(msg model.Message) string {
	var label string
	switch msg.Role {
	case model.RoleUser:
		label = styles.UserLabel.Render("You")
	case model.RoleAssistant:
		label = styles.AssistantLabel.Render("Assistant")
	default:
		label = styles.Timestamp.Render(string(msg.Role))
	}

	if m.opts.ShowTimestamps {
		label += " " + styles.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}

	body := msg.Content
	if msg.Role == model.RoleAssistant {
		if msg.Content == ErrorPlaceholder {
			body = styles.ErrorText.Render(msg.Content)
		} else {
			body = m.md.Render(msg.Content)
		}
	}

	return label + "\n" + body
}

// =============================================================================
// STATUS LINE
// =============================================================================

func (m Model) renderStatus() string {
	var parts []string
	if n := m.pendingCount(); n > 0 {
		parts = append(parts, styles.StatusPending.Render(fmt.Sprintf("%d pending", n)))
	}

	var hints []string
	for _, binding := range m.keyMap.ShortHelp() {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s %s", h.Key, h.Desc))
	}
	parts = append(parts, styles.Help.Render(strings.Join(hints, " | ")))

	return styles.StatusBar.Render(strings.Join(parts, "  "))
}
