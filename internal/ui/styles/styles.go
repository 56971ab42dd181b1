// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// SIDEBAR STYLES
// =============================================================================

// Sidebar is the conversation list column.
var Sidebar = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderRight(true).
	BorderForeground(Overlay).
	PaddingRight(1)

// SidebarTitle heads the conversation list.
var SidebarTitle = lipgloss.NewStyle().
	Foreground(Cyan).
	Bold(true)

// SidebarItem is an unselected conversation row.
var SidebarItem = lipgloss.NewStyle().
	Foreground(TextSecondary)

// SidebarSelected is the selected conversation row.
var SidebarSelected = lipgloss.NewStyle().
	Foreground(TextPrimary).
	Background(SelectionBg).
	Bold(true)

// SidebarPreview is the last-message preview under a conversation title.
var SidebarPreview = lipgloss.NewStyle().
	Foreground(TextMuted)

// =============================================================================
// TRANSCRIPT STYLES
// =============================================================================

// UserLabel marks messages typed by the user.
var UserLabel = lipgloss.NewStyle().
	Foreground(UserFg).
	Bold(true)

// AssistantLabel marks assistant replies.
var AssistantLabel = lipgloss.NewStyle().
	Foreground(AssistantFg).
	Bold(true)

// Timestamp renders message times.
var Timestamp = lipgloss.NewStyle().
	Foreground(TextMuted)

// ErrorText renders failure notices.
var ErrorText = lipgloss.NewStyle().
	Foreground(Rose)

// =============================================================================
// CHROME STYLES
// =============================================================================

// StatusBar is the bottom status line.
var StatusBar = lipgloss.NewStyle().
	Foreground(TextSecondary)

// StatusPending highlights in-flight sends.
var StatusPending = lipgloss.NewStyle().
	Foreground(Amber)

// InputPrompt styles the input line prompt.
var InputPrompt = lipgloss.NewStyle().
	Foreground(Cyan).
	Bold(true)

// Help renders the key hint line.
var Help = lipgloss.NewStyle().
	Foreground(TextMuted)
