// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the reusable pieces of the docent screens.
//
// # Key Types
//
//   - Header: title bar with document name and signed-in user
//   - StatusBar: status text plus key hints from bubbles/key bindings
//   - Spinner: loading indicator built on bubbles/spinner
//   - ToastManager: non-blocking notifications that dismiss themselves
//   - ChunkList: read-only document context with loading, empty and list
//     renderings
//
// # Usage
//
//	toasts := components.NewToastManager()
//	toasts.AddError("Failed to load chunks")
//	view := components.RenderToastStack(toasts.Toasts(), width)
package components
