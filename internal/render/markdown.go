// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// headingRegex matches a full markdown heading line, trailing newline
// included.
var headingRegex = regexp.MustCompile(`(?m)^#{1,6}\s.*\n?`)

// StripHeadings removes markdown heading lines from assistant replies.
// Headings render as oversized banner text in a chat transcript, so the
// whole line is dropped and the remainder trimmed.
func StripHeadings(s string) string {
	return strings.TrimSpace(headingRegex.ReplaceAllString(s, ""))
}

// Markdown renders assistant replies as styled terminal text.
type Markdown struct {
	renderer *glamour.TermRenderer
	width    int
	theme    string
}

// NewMarkdown creates a renderer for the given wrap width and theme ("dark",
// "light" or "auto"). A renderer that fails to initialize degrades to
// passing text through unchanged.
func NewMarkdown(width int, theme string) *Markdown {
	if width <= 0 {
		width = 80
	}

	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(width),
	}
	switch strings.ToLower(theme) {
	case "dark":
		opts = append(opts, glamour.WithStandardStyle("dark"))
	case "light":
		opts = append(opts, glamour.WithStandardStyle("light"))
	default:
		if termenv.HasDarkBackground() {
			opts = append(opts, glamour.WithStandardStyle("dark"))
		} else {
			opts = append(opts, glamour.WithStandardStyle("light"))
		}
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		renderer = nil
	}
	return &Markdown{renderer: renderer, width: width, theme: theme}
}

// WithWidth returns a renderer rewrapped to the given width. The receiver is
// returned unchanged when the width already matches.
func (m *Markdown) WithWidth(width int) *Markdown {
	if width <= 0 || width == m.width {
		return m
	}
	return NewMarkdown(width, m.theme)
}

// Render formats a reply for display. Heading lines are dropped first; on
// any rendering failure the stripped text is returned as-is.
func (m *Markdown) Render(content string) string {
	content = StripHeadings(content)

	if m.renderer == nil {
		return content
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}
