// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view: a conversation sidebar, a
// transcript viewport, and an input line.
//
// Sends are optimistic. The user's message lands in the transcript the moment
// it is submitted; the reply (or a failure placeholder) arrives later as a
// Bubble Tea message tagged with the conversation it belongs to. Multiple
// sends may be in flight at once and replies land in whatever order they
// complete.
package chat
