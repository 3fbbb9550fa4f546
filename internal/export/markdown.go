// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/storage"
	"github.com/jeranaias/docent-tui/internal/util"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(t *storage.Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}

	var sb strings.Builder
	doc := t.Document

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(doc.OriginalName)))
	sb.WriteString(fmt.Sprintf("- **Document ID**: %d\n", doc.ID))
	if doc.UploadDate != "" {
		sb.WriteString(fmt.Sprintf("- **Uploaded**: %s\n", util.FormatTimestamp(doc.UploadDate)))
	}
	if doc.FileSize > 0 {
		sb.WriteString(fmt.Sprintf("- **Size**: %s\n", util.FormatBytes(doc.FileSize)))
	}
	sb.WriteString(fmt.Sprintf("- **Exchanges**: %d\n", len(t.History)))
	sb.WriteString("\n---\n\n")

	if len(t.History) == 0 {
		sb.WriteString("*No questions have been asked about this document yet.*\n")
	}

	for i, entry := range t.History {
		if e.options.IncludeTimestamps && entry.CreatedAt != "" {
			sb.WriteString(fmt.Sprintf("### Question %d <sub>%s</sub>\n\n", i+1, util.FormatTimestamp(entry.CreatedAt)))
		} else {
			sb.WriteString(fmt.Sprintf("### Question %d\n\n", i+1))
		}
		sb.WriteString(quote(entry.Question))
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(entry.Answer))
		sb.WriteString("\n\n")

		if e.options.IncludeContexts && len(entry.Contexts) > 0 {
			sb.WriteString("<details><summary>Sources</summary>\n\n")
			for _, c := range entry.Contexts {
				sb.WriteString(formatContext(c))
			}
			sb.WriteString("</details>\n\n")
		}

		if i < len(t.History)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from docent on %s*\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func quote(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

func formatContext(c api.Chunk) string {
	var label []string
	keys := make([]string, 0, len(c.Metadata))
	for k := range c.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		label = append(label, fmt.Sprintf("%s: %s", k, c.MetaString(k)))
	}

	var sb strings.Builder
	if len(label) > 0 {
		sb.WriteString(fmt.Sprintf("**Excerpt %d** (%s)\n\n", c.ID+1, strings.Join(label, ", ")))
	} else {
		sb.WriteString(fmt.Sprintf("**Excerpt %d**\n\n", c.ID+1))
	}
	sb.WriteString(quote(c.Text))
	sb.WriteString("\n\n")
	return sb.String()
}

// escapeMarkdown escapes characters that would change heading rendering.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
		"#", "\\#",
		"[", "\\[",
		"]", "\\]",
	)
	return replacer.Replace(s)
}
