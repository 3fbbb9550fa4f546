// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/conversation"
	"github.com/jeranaias/docent-tui/internal/ui/components"
)

// Update handles messages for the chat screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case LoadedMsg:
		return m.handleLoaded(msg)

	case AnswerMsg:
		return m.handleAnswer(msg)

	case DocumentRefreshedMsg:
		return m.handleDocumentRefreshed(msg)

	case ChunksRefreshedMsg:
		if msg.Err == nil {
			m.chunks.SetChunks(msg.Chunks)
			m.refreshContent()
		}
		return m, nil

	case spinner.TickMsg:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.loading, cmd = m.loading.Update(msg)
		cmds = append(cmds, cmd)
		m.thinking, cmd = m.thinking.Update(msg)
		cmds = append(cmds, cmd)
		m.chunks, cmd = m.chunks.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.renderer = newRenderer(m.theme, m.width, m.markdown)
	m.layout()
	m.refreshContent()
	return m, nil
}

func (m Model) handleLoaded(msg LoadedMsg) (Model, tea.Cmd) {
	if msg.DocumentID != m.docID || m.ctrl != nil {
		return m, nil
	}
	m.snap = msg.Snapshot
	m.ctrl = conversation.NewController(msg.Snapshot, m.provider, m.model)
	m.loading.Stop()
	m.chunks.SetChunks(msg.Snapshot.Chunks)
	m.cacheHistory()

	m.layout()
	m.refreshContent()
	m.viewport.GotoBottom()
	cmd := m.input.Focus()
	return m, cmd
}

func (m Model) handleAnswer(msg AnswerMsg) (Model, tea.Cmd) {
	if m.ctrl == nil || !m.ctrl.Resolve(msg.Outcome) {
		return m, nil
	}
	m.thinking.Stop()
	m.input.SetValue(m.ctrl.Draft())
	m.input.CursorEnd()
	m.refreshContent()
	m.viewport.GotoBottom()

	if msg.Outcome.Err != nil {
		return m, components.ShowToast(components.NewErrorToast(m.ctrl.Notice()))
	}
	history := m.ctrl.History()
	m.cacheEntry(history[len(history)-1])
	return m, nil
}

func (m Model) handleDocumentRefreshed(msg DocumentRefreshedMsg) (Model, tea.Cmd) {
	if m.ctrl == nil {
		return m, nil
	}
	if msg.Err != nil {
		return m, components.ShowToast(components.NewErrorToast(api.Message(msg.Err, "Failed to refresh the document.")))
	}
	m.snap.Document = *msg.Document
	changed := m.ctrl.Readiness().Update(*msg.Document)
	m.layout()
	m.refreshContent()

	if !m.ctrl.Readiness().Ready() {
		return m, components.ShowToast(components.NewStatusToast("Still indexing. Try again shortly."))
	}
	if !changed {
		return m, nil
	}
	spin := m.chunks.SetLoading()
	focus := m.input.Focus()
	return m, tea.Batch(
		components.ShowToast(components.NewSuccessToast("Document indexed. You can ask questions now.")),
		spin,
		focus,
		m.chunksCmd(),
	)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.Close()
		return m, func() tea.Msg { return BackMsg{} }
	}
	if m.ctrl == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Provider):
		m.ctrl.SetSelection(m.ctrl.Selection().NextProvider())
		return m, nil

	case key.Matches(msg, m.keys.Model):
		m.ctrl.SetSelection(m.ctrl.Selection().NextModel())
		return m, nil

	case key.Matches(msg, m.keys.Context):
		m.showContext = !m.showContext
		m.refreshContent()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	if m.ctrl.State() == conversation.Sending || !m.ctrl.Readiness().Ready() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit hands the draft to the controller. Refusals build no request.
func (m Model) submit() (Model, tea.Cmd) {
	if m.ctrl.State() == conversation.Sending {
		return m, nil
	}
	m.ctrl.SetDraft(m.input.Value())
	req, err := m.ctrl.Submit()
	switch {
	case errors.Is(err, conversation.ErrNotReady):
		return m, components.ShowToast(components.NewWarningToast(conversation.IndexingNotice))
	case err != nil:
		return m, nil
	}

	m.input.SetValue("")
	m.refreshContent()
	m.viewport.GotoBottom()
	tick := m.thinking.Start()
	return m, tea.Batch(tick, m.sendCmd(req))
}
