// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/session"
	"github.com/jeranaias/docent-tui/internal/ui/chat"
	"github.com/jeranaias/docent-tui/internal/ui/components"
	"github.com/jeranaias/docent-tui/internal/ui/documents"
	"github.com/jeranaias/docent-tui/internal/ui/signin"
	"github.com/jeranaias/docent-tui/internal/ui/styles"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Backend is every backend call the screens make.
type Backend interface {
	chat.Client
	documents.Client
}

// Cache mirrors documents and transcripts locally.
type Cache interface {
	chat.TranscriptWriter
	documents.DocumentWriter
}

// Options configure the application.
type Options struct {
	Gate   *session.Gate
	Client Backend
	Cache  Cache // optional
	Theme  *styles.Theme

	// Per-run provider and model override for new chats.
	Provider string
	Model    string

	Markdown   bool
	ShowChunks bool
}

// =============================================================================
// MODEL
// =============================================================================

// State is the active screen.
type State int

const (
	StateGate State = iota // verifying the held credential
	StateSignIn
	StateDocuments
	StateChat
)

func (s State) String() string {
	switch s {
	case StateGate:
		return "gate"
	case StateSignIn:
		return "signin"
	case StateDocuments:
		return "documents"
	case StateChat:
		return "chat"
	default:
		return "unknown"
	}
}

type gateCheckedMsg struct {
	decision session.Decision
	err      error
}

// Model is the root application model.
type Model struct {
	opts    Options
	gate    *session.Gate
	watcher *session.Watcher
	theme   *styles.Theme

	state    State
	checking components.Spinner
	signin   signin.Model
	docs     documents.Model
	chat     chat.Model

	toasts  *components.ToastManager
	ticking bool

	// lastEmail pre-fills the sign-in form after a redirect.
	lastEmail string
	userName  string

	width  int
	height int
}

// New creates the root model and subscribes to session changes.
func New(opts Options) *Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	opts.Theme = theme
	return &Model{
		opts:     opts,
		gate:     opts.Gate,
		watcher:  session.Watch(opts.Gate.Store()),
		theme:    theme,
		state:    StateGate,
		checking: components.NewSpinner("Checking your session"),
		toasts:   components.NewToastManager(),
		width:    80,
		height:   24,
	}
}

// State returns the active screen.
func (m *Model) State() State { return m.state }

// Toasts returns the visible toasts.
func (m *Model) Toasts() []components.Toast { return m.toasts.Toasts() }

// Shutdown releases the session subscription and cancels in-flight requests.
func (m *Model) Shutdown() {
	m.leave()
	m.watcher.Stop()
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the gate check and the session subscription.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.checking.Start(),
		m.checkCmd(),
		m.watcher.Next(),
	)
}

func (m *Model) checkCmd() tea.Cmd {
	gate := m.gate
	return func() tea.Msg {
		decision, err := gate.Check(context.Background())
		return gateCheckedMsg{decision: decision, err: err}
	}
}

// Update routes messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		return m, m.forward(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.Shutdown()
			return m, tea.Quit
		}
		return m, m.forward(msg)

	case gateCheckedMsg:
		return m.handleGateChecked(msg)

	case session.ChangedMsg:
		return m.handleSessionChanged(msg)

	case signin.AuthenticatedMsg:
		if m.state != StateSignIn {
			return m, nil
		}
		if msg.User != nil {
			m.userName = msg.User.DisplayName()
			m.lastEmail = msg.User.Email
		}
		return m, m.toDocuments()

	case documents.OpenMsg:
		if m.state != StateDocuments {
			return m, nil
		}
		return m, m.toChat(msg.Document.ID)

	case documents.SignOutMsg:
		m.gate.SignOut()
		cmd := m.toSignIn()
		return m, tea.Batch(cmd, components.ShowToast(components.NewStatusToast("Signed out.")))

	case chat.BackMsg:
		if m.state != StateChat {
			return m, nil
		}
		return m, m.toDocuments()

	case chat.InitFailedMsg:
		return m.handleChatInitFailed(msg)

	case components.ToastMsg:
		m.toasts.Add(msg.Toast)
		if m.ticking {
			return m, nil
		}
		m.ticking = true
		return m, components.ToastTickCmd()

	case components.ToastTickMsg:
		if m.toasts.Tick(msg.Time) {
			return m, components.ToastTickCmd()
		}
		m.ticking = false
		return m, nil

	case spinner.TickMsg:
		if m.state == StateGate {
			var cmd tea.Cmd
			m.checking, cmd = m.checking.Update(msg)
			return m, cmd
		}
	}

	return m, m.forward(msg)
}

func (m *Model) handleGateChecked(msg gateCheckedMsg) (tea.Model, tea.Cmd) {
	if m.state != StateGate {
		return m, nil
	}
	m.checking.Stop()

	if msg.decision == session.Allowed {
		if u := m.gate.Store().Current().User; u != nil {
			m.userName = u.DisplayName()
			m.lastEmail = u.Email
		}
		return m, m.toDocuments()
	}

	cmd := m.toSignIn()
	switch {
	case msg.err == nil, errors.Is(msg.err, session.ErrNoCredential):
		return m, cmd
	case errors.Is(msg.err, session.ErrExpired), errors.Is(msg.err, api.ErrUnauthorized):
		return m, tea.Batch(cmd, components.ShowToast(
			components.NewWarningToast("Your session has expired. Please sign in again.")))
	default:
		return m, tea.Batch(cmd, components.ShowToast(
			components.NewErrorToast("Could not verify your session: "+api.Message(msg.err, "the server is unreachable."))))
	}
}

// handleSessionChanged redirects protected screens when the session ends.
// Transitions that match the active screen are no-ops, so repeated
// notifications never bounce between screens.
func (m *Model) handleSessionChanged(msg session.ChangedMsg) (tea.Model, tea.Cmd) {
	next := m.watcher.Next()
	s := msg.Session
	if s.User != nil {
		m.userName = s.User.DisplayName()
		m.lastEmail = s.User.Email
	}

	switch {
	case s.IsLoading:
		return m, next

	case !s.IsAuthenticated && (m.state == StateDocuments || m.state == StateChat):
		cmd := m.toSignIn()
		return m, tea.Batch(next, cmd, components.ShowToast(
			components.NewWarningToast("Your session has ended. Please sign in again.")))

	case s.IsAuthenticated && m.state == StateSignIn:
		cmd := m.toDocuments()
		return m, tea.Batch(next, cmd)
	}
	return m, next
}

func (m *Model) handleChatInitFailed(msg chat.InitFailedMsg) (tea.Model, tea.Cmd) {
	if m.state != StateChat || m.chat.DocumentID() != msg.DocumentID {
		return m, nil
	}
	// The 401 handler has already cleared the session; the change
	// notification performs the redirect.
	if errors.Is(msg.Err, api.ErrUnauthorized) {
		return m, nil
	}
	text := "Could not open the document: " + api.Message(msg.Err, "please try again.")
	cmd := m.toDocuments()
	return m, tea.Batch(cmd, components.ShowToast(components.NewErrorToast(text)))
}

// =============================================================================
// ROUTING
// =============================================================================

// leave tears down the active screen.
func (m *Model) leave() {
	switch m.state {
	case StateSignIn:
		m.signin.Close()
	case StateDocuments:
		m.docs.Close()
	case StateChat:
		m.chat.Close()
	}
}

func (m *Model) size() tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: m.width, Height: m.height}
}

func (m *Model) toSignIn() tea.Cmd {
	m.leave()
	m.state = StateSignIn
	m.signin = signin.New(m.gate, m.theme, m.lastEmail)
	m.signin, _ = m.signin.Update(m.size())
	return m.signin.Init()
}

func (m *Model) toDocuments() tea.Cmd {
	m.leave()
	m.state = StateDocuments
	m.docs = documents.New(m.opts.Client, m.documentCache(), m.theme)
	m.docs.SetUser(m.userName)
	m.docs, _ = m.docs.Update(m.size())
	return m.docs.Init()
}

func (m *Model) toChat(id int64) tea.Cmd {
	m.leave()
	m.state = StateChat
	m.chat = chat.New(chat.Options{
		Client:     m.opts.Client,
		Cache:      m.transcriptCache(),
		DocumentID: id,
		Theme:      m.theme,
		Provider:   m.opts.Provider,
		Model:      m.opts.Model,
		Markdown:   m.opts.Markdown,
		ShowChunks: m.opts.ShowChunks,
	})
	m.chat, _ = m.chat.Update(m.size())
	return m.chat.Init()
}

func (m *Model) documentCache() documents.DocumentWriter {
	if m.opts.Cache == nil {
		return nil
	}
	return m.opts.Cache
}

func (m *Model) transcriptCache() chat.TranscriptWriter {
	if m.opts.Cache == nil {
		return nil
	}
	return m.opts.Cache
}

// forward delivers msg to the active screen.
func (m *Model) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.state {
	case StateSignIn:
		m.signin, cmd = m.signin.Update(msg)
	case StateDocuments:
		m.docs, cmd = m.docs.Update(msg)
	case StateChat:
		m.chat, cmd = m.chat.Update(msg)
	}
	return cmd
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the active screen with the toast stack over its top rows.
func (m *Model) View() string {
	var content string
	switch m.state {
	case StateSignIn:
		content = m.signin.View()
	case StateDocuments:
		content = m.docs.View()
	case StateChat:
		content = m.chat.View()
	default:
		content = lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.checking.View())
	}
	return overlay(content, components.RenderToastStack(m.toasts.Toasts(), m.width), 1)
}

// overlay replaces the lines of base starting at row with the lines of top.
func overlay(base, top string, row int) string {
	if top == "" {
		return base
	}
	lines := strings.Split(base, "\n")
	for i, l := range strings.Split(top, "\n") {
		if row+i < len(lines) {
			lines[row+i] = l
		} else {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}
