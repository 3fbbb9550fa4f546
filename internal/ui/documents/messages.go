// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import "github.com/jeranaias/docent-tui/internal/api"

// OpenMsg asks the app to open the chat screen for Document.
type OpenMsg struct {
	Document api.Document
}

// SignOutMsg asks the app to end the session.
type SignOutMsg struct{}

type listedMsg struct {
	docs []api.Document
	err  error
}

type deletedMsg struct {
	id   int64
	name string
	err  error
}

type uploadedMsg struct {
	doc *api.Document
	err error
}
