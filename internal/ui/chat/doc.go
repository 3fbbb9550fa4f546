// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the conversation screen for one document.

# Key Components

## Model (model.go)

The Model owns a conversation.Controller once the initial load completes.
Until then it renders only a loading spinner; a failed load is reported with
InitFailedMsg and never rendered.

## Update Loop (update.go)

  - enter submits the draft through the controller
  - ctrl+p and ctrl+n cycle provider and model
  - tab toggles the document context pane
  - ctrl+r re-fetches the document to refresh readiness
  - esc returns to the document list

## View Rendering (view.go)

Questions and answers in append order. Answers are rendered as markdown with
glamour when enabled, followed by their source excerpts.

# Usage

	m := chat.New(chat.Options{Client: client, DocumentID: 7, Theme: theme})
	cmd := m.Init() // starts the four initial reads
*/
package chat
