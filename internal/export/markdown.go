// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"github.com/parley-chat/parley/internal/model"
)

// MarkdownExporter renders a conversation as a markdown document with the
// title as the top heading and one section per message.
type MarkdownExporter struct{}

// Export converts the conversation to markdown. System messages are omitted.
func (MarkdownExporter) Export(conv *model.Conversation) ([]byte, error) {
	return []byte(conv.ExportMarkdown()), nil
}

// FileExtension returns ".md".
func (MarkdownExporter) FileExtension() string {
	return ".md"
}
