// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/ui/styles"
)

// EmptyChunksText is shown when a document has no chunks.
const EmptyChunksText = "No chunks available: the document has not been indexed yet or has no extractable text."

// ChunkState says which of the three renderings applies.
type ChunkState int

const (
	ChunksLoading ChunkState = iota
	ChunksLoaded
)

// ChunkList renders a document's chunks read-only. It has no cursor and no
// editing; text is shown verbatim, wrapped to the width.
type ChunkList struct {
	state   ChunkState
	chunks  []api.Chunk
	spinner Spinner
	width   int
	theme   *styles.Theme
}

// NewChunkList creates a list in the loading state.
func NewChunkList(theme *styles.Theme) ChunkList {
	return ChunkList{spinner: NewSpinner("Loading document context"), theme: theme, width: 60}
}

// SetChunks moves to the loaded state. A nil or empty slice renders the
// empty placeholder.
func (c *ChunkList) SetChunks(chunks []api.Chunk) {
	c.state = ChunksLoaded
	c.chunks = append([]api.Chunk(nil), chunks...)
	c.spinner.Stop()
}

// SetLoading returns to the loading state and starts the spinner.
func (c *ChunkList) SetLoading() tea.Cmd {
	c.state = ChunksLoading
	c.chunks = nil
	return c.spinner.Start()
}

// Update drives the loading spinner.
func (c ChunkList) Update(msg tea.Msg) (ChunkList, tea.Cmd) {
	var cmd tea.Cmd
	c.spinner, cmd = c.spinner.Update(msg)
	return c, cmd
}

// SetWidth sets the render width.
func (c *ChunkList) SetWidth(width int) {
	c.width = width
}

// State returns the current state.
func (c ChunkList) State() ChunkState {
	return c.state
}

// Len returns the number of chunks.
func (c ChunkList) Len() int {
	return len(c.chunks)
}

// View renders the loading, empty or list state.
func (c ChunkList) View() string {
	switch {
	case c.state == ChunksLoading:
		if c.spinner.IsActive() {
			return c.spinner.View()
		}
		return c.theme.Placeholder.Render("Loading document context...")
	case len(c.chunks) == 0:
		return c.theme.Placeholder.Render(Wrap(EmptyChunksText, c.width-4))
	}

	textWidth := c.width - 4
	if textWidth < 10 {
		textWidth = 10
	}
	blocks := make([]string, 0, len(c.chunks))
	for i, ch := range c.chunks {
		header := c.theme.ChunkHeader.Render(fmt.Sprintf("Chunk %d/%d", i+1, len(c.chunks))) +
			c.theme.ChunkMeta.Render(fmt.Sprintf("  #%d", ch.ID))
		if meta := FormatChunkMetadata(ch.Metadata); meta != "" {
			header += c.theme.ChunkMeta.Render("  " + meta)
		}
		body := c.theme.ChunkText.Render(Wrap(ch.Text, textWidth))
		blocks = append(blocks, c.theme.ChunkBox.Width(c.width-2).Render(header+"\n"+body))
	}
	return strings.Join(blocks, "\n")
}

// FormatChunkMetadata renders metadata as "page 3 · source a.pdf · k=v".
// page and source lead; other keys follow in sorted order.
func FormatChunkMetadata(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	var parts []string
	for _, k := range []string{"page", "source"} {
		if v, ok := meta[k]; ok {
			parts = append(parts, k+" "+formatMetaValue(v))
		}
	}
	var rest []string
	for k := range meta {
		if k != "page" && k != "source" {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		parts = append(parts, k+"="+formatMetaValue(meta[k]))
	}
	return strings.Join(parts, " · ")
}

func formatMetaValue(v any) string {
	// JSON numbers decode as float64; show whole numbers without a fraction.
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}
