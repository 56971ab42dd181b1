// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway talks to the Azure OpenAI chat completions API. The
// authentication mode (API key or ambient CLI credential) is resolved once at
// construction and never re-evaluated.
package gateway
