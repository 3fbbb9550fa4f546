// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog holds the fixed provider/model table and the selection
// policy built on it.
//
// The table is the single source of truth for which models each provider
// offers. Account settings and chat selection both read it, so a selection
// produced here is always a valid (provider, model) pair.
//
// # Key Types
//
//   - Provider: an LLM provider id (openai, gemini, claude, groq)
//   - Model: a selectable model (id + display label)
//   - Selection: immutable active (provider, model) pair
//   - Settings: account-level LLM defaults and configured-key flags
//
// # Usage
//
//	sel := catalog.Initialize(settings)
//	sel = sel.SelectProvider(catalog.Gemini)
//	if !sel.Configured(settings) {
//	    // show a hint; submission is not blocked
//	}
package catalog
