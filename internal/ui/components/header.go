// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docent-tui/internal/ui/styles"
	"github.com/jeranaias/docent-tui/internal/util"
)

// Header is the one-line title bar shown on every screen.
type Header struct {
	Title    string // screen title, e.g. the document name
	Subtitle string // e.g. "indexed" or the document count
	User     string // signed-in user, right aligned
	Width    int
	theme    *styles.Theme
}

// NewHeader creates a header.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{Width: 80, theme: theme}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// View renders "docent > title  subtitle ... user".
func (h *Header) View() string {
	width := h.Width
	if width < 20 {
		width = 20
	}

	left := h.theme.HeaderBrand.Render("docent")
	if h.Title != "" {
		left += h.theme.ShortcutDesc.Render(" > ") + h.theme.HeaderTitle.Render(util.Truncate(h.Title, width/2))
	}
	if h.Subtitle != "" {
		left += "  " + h.theme.HeaderSubtitle.Render(h.Subtitle)
	}

	right := ""
	if h.User != "" {
		right = h.theme.HeaderSubtitle.Render(util.Truncate(h.User, width/4))
	}

	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		right = ""
		gap = 1
	}
	return h.theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
