// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// =============================================================================
// EXCHANGE MESSAGES
// =============================================================================

// ReplyMsg delivers an assistant reply. ConvID pins the reply to the
// conversation the request was sent from, not whichever is selected when it
// arrives.
type ReplyMsg struct {
	ConvID string
	Text   string
}

// ReplyErrMsg signals that a send failed. The conversation gets a fixed
// placeholder reply; the user's message is never rolled back.
type ReplyErrMsg struct {
	ConvID string
	Err    error
}

// =============================================================================
// STORE MESSAGES
// =============================================================================

// StoreChangedMsg signals that the snapshot file was modified by another
// process and the store should be reloaded.
type StoreChangedMsg struct{}
