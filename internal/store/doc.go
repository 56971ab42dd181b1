// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store manages the set of conversations and the selection pointer,
// writing every mutation through to persistent storage.
package store
