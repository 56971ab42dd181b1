// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations out as standalone files. Markdown and
// JSON exporters are provided; both work from a snapshot copy so an export
// never observes a half-applied mutation.
package export
