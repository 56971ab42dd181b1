// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"

	"github.com/parley-chat/parley/internal/model"
)

// JSONExporter renders a conversation as indented JSON, the same shape the
// snapshot file uses for a single conversation.
type JSONExporter struct{}

// Export marshals the conversation.
func (JSONExporter) Export(conv *model.Conversation) ([]byte, error) {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal conversation: %w", err)
	}
	return append(data, '\n'), nil
}

// FileExtension returns ".json".
func (JSONExporter) FileExtension() string {
	return ".json"
}
