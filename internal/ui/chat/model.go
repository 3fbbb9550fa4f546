// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/conversation"
	"github.com/jeranaias/docent-tui/internal/ui/components"
	"github.com/jeranaias/docent-tui/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Client is what the chat screen needs from the backend.
type Client interface {
	conversation.Loader
	conversation.Asker
}

// TranscriptWriter receives conversation history for offline use. It may be nil.
type TranscriptWriter interface {
	ReplaceHistory(doc api.Document, entries []api.HistoryEntry) error
	AppendEntry(documentID int64, e api.HistoryEntry) error
}

// Options configure a chat screen.
type Options struct {
	Client     Client
	Cache      TranscriptWriter
	DocumentID int64
	Theme      *styles.Theme

	// Provider and Model override the account defaults for this run.
	Provider string
	Model    string

	// Markdown renders answers with glamour.
	Markdown   bool
	ShowChunks bool
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat screen.
type Model struct {
	client   Client
	cache    TranscriptWriter
	docID    int64
	theme    *styles.Theme
	keys     KeyMap
	provider string
	model    string
	markdown bool

	ctx    context.Context
	cancel context.CancelFunc

	// Set once the initial load completes.
	snap *conversation.Snapshot
	ctrl *conversation.Controller

	input       textinput.Model
	viewport    viewport.Model
	chunks      components.ChunkList
	loading     components.Spinner
	thinking    components.Spinner
	header      *components.Header
	statusBar   *components.StatusBar
	renderer    *glamour.TermRenderer
	showContext bool

	initCmds []tea.Cmd

	width  int
	height int
}

// New creates a chat screen. Call Init to start loading.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	input := textinput.New()
	input.Placeholder = "Ask a question about this document"
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.CharLimit = 4000

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		client:      opts.Client,
		cache:       opts.Cache,
		docID:       opts.DocumentID,
		theme:       theme,
		keys:        DefaultKeyMap(),
		provider:    opts.Provider,
		model:       opts.Model,
		markdown:    opts.Markdown,
		ctx:         ctx,
		cancel:      cancel,
		input:       input,
		viewport:    viewport.New(80, 20),
		chunks:      components.NewChunkList(theme),
		loading:     components.NewSpinner("Loading conversation"),
		thinking:    components.NewThinkingSpinner(),
		header:      components.NewHeader(theme),
		statusBar:   components.NewStatusBar(theme),
		showContext: opts.ShowChunks,
		width:       80,
		height:      24,
	}
	m.statusBar.Bindings = m.keys.ShortHelp()
	m.renderer = newRenderer(theme, m.width, m.markdown)
	m.initCmds = []tea.Cmd{m.loading.Start(), m.chunks.SetLoading()}
	m.layout()
	return m
}

// Init starts the initial load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(append(m.initCmds, m.loadCmd())...)
}

// DocumentID returns the document this screen is about.
func (m Model) DocumentID() int64 { return m.docID }

// Loaded reports whether the initial load has completed.
func (m Model) Loaded() bool { return m.ctrl != nil }

// Controller returns the conversation controller, nil until loaded.
func (m Model) Controller() *conversation.Controller { return m.ctrl }

// Close tears the screen down. In-flight requests are cancelled and their
// outcomes discarded.
func (m Model) Close() {
	if m.ctrl != nil {
		m.ctrl.Close()
	}
	m.cancel()
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) loadCmd() tea.Cmd {
	ctx, client, id := m.ctx, m.client, m.docID
	return func() tea.Msg {
		snap, err := conversation.Load(ctx, client, id)
		if err != nil {
			return InitFailedMsg{DocumentID: id, Err: err}
		}
		return LoadedMsg{DocumentID: id, Snapshot: snap}
	}
}

func (m Model) sendCmd(req conversation.Request) tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		return AnswerMsg{Outcome: conversation.Send(ctx, client, req)}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	ctx, client, id := m.ctx, m.client, m.docID
	return func() tea.Msg {
		doc, err := client.Document(ctx, id)
		return DocumentRefreshedMsg{Document: doc, Err: err}
	}
}

func (m Model) chunksCmd() tea.Cmd {
	ctx, client, id := m.ctx, m.client, m.docID
	return func() tea.Msg {
		chunks, err := client.Chunks(ctx, id)
		return ChunksRefreshedMsg{Chunks: chunks, Err: err}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func newRenderer(theme *styles.Theme, width int, enabled bool) *glamour.TermRenderer {
	if !enabled {
		return nil
	}
	wrap := width - 6
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.MarkdownStyle()),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		log.Printf("chat: markdown renderer unavailable: %v", err)
		return nil
	}
	return r
}

func (m Model) cacheHistory() {
	if m.cache == nil || m.snap == nil {
		return
	}
	if err := m.cache.ReplaceHistory(m.snap.Document, m.snap.History); err != nil {
		log.Printf("chat: cache history for document %d: %v", m.docID, err)
	}
}

func (m Model) cacheEntry(e api.HistoryEntry) {
	if m.cache == nil {
		return
	}
	if err := m.cache.AppendEntry(m.docID, e); err != nil {
		log.Printf("chat: cache entry %d: %v", e.ID, err)
	}
}
