// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/conversation"
)

// LoadedMsg carries a complete initial snapshot.
type LoadedMsg struct {
	DocumentID int64
	Snapshot   *conversation.Snapshot
}

// InitFailedMsg reports a failed initial load. The root model navigates back
// to the document list and shows Err.
type InitFailedMsg struct {
	DocumentID int64
	Err        error
}

// AnswerMsg carries the outcome of one send.
type AnswerMsg struct {
	Outcome conversation.Outcome
}

// DocumentRefreshedMsg carries a re-fetched document for the readiness tracker.
type DocumentRefreshedMsg struct {
	Document *api.Document
	Err      error
}

// ChunksRefreshedMsg carries chunks re-fetched after the document became ready.
type ChunksRefreshedMsg struct {
	Chunks []api.Chunk
	Err    error
}

// BackMsg asks the root model to return to the document list.
type BackMsg struct{}
