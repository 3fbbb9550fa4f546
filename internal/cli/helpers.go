// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Rendering shared by the document and chat commands.

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/util"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderMarkdown renders answers with glamour when writing to a terminal
// with ui.markdown on. Piped output stays raw markdown.
func (e *Env) renderMarkdown(content string) string {
	if !e.Config.UI.Markdown || !e.outIsTerminal() {
		return ensureNewline(content)
	}

	width := e.Config.UI.WordWrap
	if width <= 0 {
		width = GetTerminalWidth() - 4
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return ensureNewline(content)
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return ensureNewline(content)
	}
	return rendered
}

func (e *Env) outIsTerminal() bool {
	f, ok := e.Out.(*os.File)
	return ok && isTerminalFile(f)
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// indexState is the readiness word shown next to a document.
func indexState(doc api.Document) string {
	if doc.Indexed {
		return "indexed"
	}
	return "indexing"
}

// printDocuments prints a document table.
func (e *Env) printDocuments(docs []api.Document) {
	if len(docs) == 0 {
		e.printf("%s\n", DimStyle.Render("No documents yet. Upload one with `docent docs upload <file>`."))
		return
	}
	nameWidth := 12
	for _, d := range docs {
		if w := util.Width(d.OriginalName); w > nameWidth {
			nameWidth = min(w, 36)
		}
	}
	e.printf("%s\n", DimStyle.Render(fmt.Sprintf("%-6s %s %10s  %-16s  %s",
		"ID", util.PadRight("NAME", nameWidth), "SIZE", "UPLOADED", "STATUS")))
	for _, d := range docs {
		e.printf("%-6d %s %10s  %-16s  %s %s\n",
			d.ID,
			util.PadRight(d.OriginalName, nameWidth),
			util.FormatBytes(d.FileSize),
			util.FormatTimestamp(d.UploadDate),
			RenderStatus(indexState(d)),
			indexState(d),
		)
	}
}

// printDocument prints one document's details.
func (e *Env) printDocument(doc api.Document) {
	e.printf("%s\n", TitleStyle.Render(doc.OriginalName))
	e.field("ID", doc.ID)
	e.field("Size", util.FormatBytes(doc.FileSize))
	if doc.UploadDate != "" {
		e.field("Uploaded", util.FormatTimestamp(doc.UploadDate))
	}
	e.field("Status", RenderStatus(indexState(doc))+" "+indexState(doc))
}

// =============================================================================
// TRANSCRIPTS
// =============================================================================

// chunkSource labels a chunk by its page or source metadata.
func chunkSource(c api.Chunk) string {
	var parts []string
	if page := c.MetaString("page"); page != "" {
		parts = append(parts, "page "+page)
	}
	if para := c.MetaString("paragraph"); para != "" {
		parts = append(parts, "paragraph "+para)
	}
	if src := c.MetaString("source"); src != "" && len(parts) == 0 {
		parts = append(parts, src)
	}
	return strings.Join(parts, ", ")
}

// printChunks prints numbered excerpts.
func (e *Env) printChunks(chunks []api.Chunk, limit int) {
	for i, c := range chunks {
		label := fmt.Sprintf("[%d]", i+1)
		if src := chunkSource(c); src != "" {
			label += " " + src
		}
		e.printf("%s\n", DimStyle.Render(label))
		text := c.Text
		if limit > 0 {
			text = util.Truncate(strings.Join(strings.Fields(text), " "), limit)
		}
		e.printf("%s\n\n", text)
	}
}

// printEntry prints one exchange with its answer rendered as markdown.
func (e *Env) printEntry(entry api.HistoryEntry) {
	e.printf("%s %s\n", QuestionStyle.Render("You:"), entry.Question)
	e.printf("%s\n", AnswerStyle.Render("Docent:"))
	e.printf("%s", e.renderMarkdown(entry.Answer))
	if len(entry.Contexts) > 0 {
		e.printf("%s\n", DimStyle.Render(fmt.Sprintf("Sources (%d):", len(entry.Contexts))))
		e.printChunks(entry.Contexts, 200)
	}
}
