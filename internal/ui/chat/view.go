// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/catalog"
	"github.com/jeranaias/docent-tui/internal/conversation"
	"github.com/jeranaias/docent-tui/internal/ui/components"
	"github.com/jeranaias/docent-tui/internal/ui/styles"
	"github.com/jeranaias/docent-tui/internal/util"
)

// maxSourceExcerpt bounds each source excerpt shown under an answer.
const maxSourceExcerpt = 160

// View renders the chat screen. Before the initial load completes only the
// loading state is shown.
func (m Model) View() string {
	if m.ctrl == nil {
		m.header.Title = ""
		m.header.Subtitle = ""
		body := lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, m.loading.View())
		return lipgloss.JoinVertical(lipgloss.Left, m.header.View(), body)
	}

	ready := m.ctrl.Readiness().Ready()
	m.header.Title = m.snap.Document.OriginalName
	m.header.Subtitle = m.readinessBadge(ready)

	parts := []string{m.header.View(), m.viewport.View(), m.selectorLine()}
	if !ready {
		parts = append(parts, m.theme.Notice.Width(m.width-2).Render(conversation.IndexingNotice))
	}
	parts = append(parts, m.inputView(ready))

	m.statusBar.Status = m.statusText()
	parts = append(parts, m.statusBar.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) readinessBadge(ready bool) string {
	if ready {
		return m.theme.BadgeReady.Render("indexed")
	}
	return m.theme.BadgeIndexing.Render("indexing")
}

func (m Model) inputView(ready bool) string {
	var line string
	switch {
	case m.ctrl.State() == conversation.Sending:
		line = m.thinking.View()
	case !ready:
		line = m.theme.InputDisabled.Render("Questions are disabled until indexing finishes.")
	default:
		line = m.input.View()
	}
	return m.theme.InputContainer.Width(m.width).Render(line)
}

// selectorLine shows the active pair. Narrow terminals drop the field names
// and shorten the missing-key hint.
func (m Model) selectorLine() string {
	sel := m.ctrl.Selection()
	provider := m.theme.SelectorActive.Render(sel.Provider().Label())
	model := m.theme.SelectorActive.Render(catalog.ModelLabel(sel.Provider(), sel.Model()))

	var line string
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		line = provider + m.theme.ShortcutDesc.Render(" / ") + model
		if !m.ctrl.Configured() {
			line += " " + m.theme.SelectorHint.Render("(no API key)")
		}
	} else {
		line = m.theme.ShortcutDesc.Render("Provider ") + provider +
			m.theme.ShortcutDesc.Render("  Model ") + model
		if !m.ctrl.Configured() {
			line += "  " + m.theme.SelectorHint.Render(fmt.Sprintf("no API key configured for %s", sel.Provider().Label()))
		}
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(line)
}

func (m Model) statusText() string {
	n := len(m.ctrl.History())
	if m.showContext {
		return fmt.Sprintf("context: %d chunks", m.chunks.Len())
	}
	if n == 1 {
		return "1 question"
	}
	return fmt.Sprintf("%d questions", n)
}

// layout sizes the viewport to the space left by the fixed rows.
func (m *Model) layout() {
	fixed := 1 + 1 + 2 + 1 // header, selector, input, status bar
	if m.ctrl != nil && !m.ctrl.Readiness().Ready() {
		fixed += lipgloss.Height(m.theme.Notice.Width(m.width - 2).Render(conversation.IndexingNotice))
	}
	h := m.height - fixed
	if h < 3 {
		h = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
	m.header.SetWidth(m.width)
	m.statusBar.SetWidth(m.width)
	m.chunks.SetWidth(m.width - 2)
	m.input.Width = m.width - 6
}

// refreshContent re-renders the viewport body.
func (m *Model) refreshContent() {
	if m.ctrl == nil {
		return
	}
	if m.showContext {
		m.viewport.SetContent(m.chunks.View())
		return
	}

	history := m.ctrl.History()
	var b strings.Builder
	if len(history) == 0 && m.ctrl.Pending() == "" {
		b.WriteString(m.theme.Placeholder.Render(
			components.Wrap(fmt.Sprintf("No questions yet. Ask anything about %s.", m.snap.Document.OriginalName), m.width-6)))
	}
	for _, e := range history {
		b.WriteString(m.renderEntry(e))
		b.WriteString("\n")
	}
	if q := m.ctrl.Pending(); q != "" {
		b.WriteString(m.renderQuestion(q, ""))
	}
	m.viewport.SetContent(b.String())
}

func (m Model) renderQuestion(question, createdAt string) string {
	label := m.theme.UserLabel.Render("You")
	if createdAt != "" {
		label += " " + m.theme.Timestamp.Render(util.FormatTimestamp(createdAt))
	}
	return label + "\n" + m.theme.UserBubble.Render(components.Wrap(question, m.width-6)) + "\n"
}

func (m Model) renderEntry(e api.HistoryEntry) string {
	var b strings.Builder
	b.WriteString(m.renderQuestion(e.Question, e.CreatedAt))
	b.WriteString(m.theme.AssistantLabel.Render("Assistant"))
	b.WriteString("\n")
	b.WriteString(m.theme.AssistantBubble.Render(m.renderAnswer(e.Answer)))
	b.WriteString("\n")

	if len(e.Contexts) > 0 {
		b.WriteString(m.theme.SourceHeader.Render(fmt.Sprintf("Sources (%d)", len(e.Contexts))))
		b.WriteString("\n")
		for _, c := range e.Contexts {
			excerpt := util.Truncate(strings.Join(strings.Fields(c.Text), " "), maxSourceExcerpt)
			if meta := components.FormatChunkMetadata(c.Metadata); meta != "" {
				excerpt = "[" + meta + "] " + excerpt
			}
			b.WriteString(m.theme.SourceText.Render(components.Wrap("- "+excerpt, m.width-8)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderAnswer(answer string) string {
	if m.renderer != nil {
		if out, err := m.renderer.Render(answer); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return components.Wrap(answer, m.width-6)
}
