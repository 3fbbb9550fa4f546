// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package documents provides the document list screen: every upload of the
// signed-in user with its size, upload date and indexing badge.
//
// From here a document is opened in the chat screen (OpenMsg), deleted
// after a y/n confirmation, or a new file is uploaded from a local path.
package documents
