// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across docent.
//
// # Key Functions
//
// Text:
//   - Truncate: display-width aware truncation with ellipsis
//   - PadRight: pad to a display width
//   - FirstLine: first non-empty line of a block of text
//
// Formatting:
//   - FormatBytes: human readable byte counts
//   - FormatTimestamp: backend ISO timestamps for display
//
// Files:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	label := util.Truncate(doc.OriginalName, 40)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
