// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders document transcripts to files.
//
// # Key Types
//
//   - Exporter: Interface implemented by each output format
//   - MarkdownExporter: Human-readable transcript with source excerpts
//   - JSONExporter: Complete transcript data
//
// # Usage
//
//	exporter, err := export.ForFormat("md", nil)
//	data, err := exporter.Export(transcript)
//
// Or write straight to a file:
//
//	path, err := export.ExportToFile(transcript, exporter, &export.Options{OutputDir: "."})
package export
