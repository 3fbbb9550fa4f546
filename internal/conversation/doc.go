// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the per-document chat state: readiness, the
// send state machine and the all-or-nothing initial load.
//
// # Key Types
//
//   - Readiness: whether the document is indexed and may be asked about
//   - Controller: idle/sending state machine owning draft and history
//   - Request, Outcome: one submission and its terminal result
//   - Snapshot: the four reads a chat view needs, loaded together
//   - InitError: which of those reads failed
//
// # Usage
//
//	snap, err := conversation.Load(ctx, client, docID)
//	if err != nil {
//	    // navigate back to the document list
//	}
//	ctrl := conversation.NewController(snap, cfg.Chat.Provider, cfg.Chat.Model)
//	ctrl.SetDraft("What is the termination clause?")
//	req, err := ctrl.Submit()
//	if err == nil {
//	    ctrl.Resolve(conversation.Send(ctx, client, req))
//	}
//
// The controller is safe for concurrent use, but it assumes a single logical
// owner: the chat screen or the REPL.
package conversation
