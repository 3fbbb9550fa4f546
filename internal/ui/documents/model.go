// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/ui/components"
	"github.com/jeranaias/docent-tui/internal/ui/styles"
	"github.com/jeranaias/docent-tui/internal/util"
)

// Client is what the list needs from the backend.
type Client interface {
	Documents(ctx context.Context) ([]api.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
	UploadFile(ctx context.Context, path string) (*api.Document, error)
}

// DocumentWriter mirrors the list into the local cache. It may be nil.
type DocumentWriter interface {
	PutDocuments(docs ...api.Document) error
	DeleteDocument(id int64) error
}

type mode int

const (
	modeBrowse mode = iota
	modeConfirmDelete
	modeUpload
)

// Model is the document list screen.
type Model struct {
	client Client
	cache  DocumentWriter
	theme  *styles.Theme
	keys   KeyMap

	ctx    context.Context
	cancel context.CancelFunc

	docs    []api.Document
	cursor  int
	offset  int
	mode    mode
	loaded  bool
	busy    bool
	loadErr string

	path      textinput.Model
	spinner   components.Spinner
	header    *components.Header
	statusBar *components.StatusBar

	initCmds []tea.Cmd

	width  int
	height int
}

// New creates the list. Call Init to fetch.
func New(client Client, cache DocumentWriter, theme *styles.Theme) Model {
	if theme == nil {
		theme = styles.NewTheme()
	}
	ctx, cancel := context.WithCancel(context.Background())

	path := textinput.New()
	path.Placeholder = "path/to/file.pdf"
	path.Prompt = "Upload: "
	path.PromptStyle = theme.InputPrompt
	path.CharLimit = 1024

	m := Model{
		client:    client,
		cache:     cache,
		theme:     theme,
		keys:      DefaultKeyMap(),
		ctx:       ctx,
		cancel:    cancel,
		path:      path,
		spinner:   components.NewSpinner("Loading documents"),
		header:    components.NewHeader(theme),
		statusBar: components.NewStatusBar(theme),
		width:     80,
		height:    24,
	}
	m.header.Title = "Documents"
	m.statusBar.Bindings = m.keys.ShortHelp()
	m.busy = true
	m.initCmds = []tea.Cmd{m.spinner.Start()}
	return m
}

// Init fetches the list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(append(m.initCmds, m.listCmd())...)
}

// SetUser shows the signed-in user in the header.
func (m *Model) SetUser(name string) { m.header.User = name }

// Documents returns the loaded list.
func (m Model) Documents() []api.Document { return m.docs }

// Selected returns the document under the cursor.
func (m Model) Selected() (api.Document, bool) {
	if m.cursor < 0 || m.cursor >= len(m.docs) {
		return api.Document{}, false
	}
	return m.docs[m.cursor], true
}

// Busy reports whether a request is in flight.
func (m Model) Busy() bool { return m.busy }

// Close cancels in-flight requests.
func (m Model) Close() { m.cancel() }

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) listCmd() tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		docs, err := client.Documents(ctx)
		return listedMsg{docs: docs, err: err}
	}
}

func (m Model) deleteCmd(doc api.Document) tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		err := client.DeleteDocument(ctx, doc.ID)
		return deletedMsg{id: doc.ID, name: doc.OriginalName, err: err}
	}
}

func (m Model) uploadCmd(path string) tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		doc, err := client.UploadFile(ctx, path)
		return uploadedMsg{doc: doc, err: err}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages for the list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.header.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.path.Width = msg.Width - 12
		m.clampOffset()
		return m, nil

	case listedMsg:
		return m.handleListed(msg)

	case deletedMsg:
		return m.handleDeleted(msg)

	case uploadedMsg:
		return m.handleUploaded(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.mode == modeUpload {
		var cmd tea.Cmd
		m.path, cmd = m.path.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleListed(msg listedMsg) (Model, tea.Cmd) {
	m.busy = false
	m.spinner.Stop()
	if msg.err != nil {
		m.loadErr = api.Message(msg.err, "Failed to load documents.")
		return m, components.ShowToast(components.NewErrorToast(m.loadErr))
	}
	m.loaded = true
	m.loadErr = ""

	var selected int64
	if doc, ok := m.Selected(); ok {
		selected = doc.ID
	}
	m.docs = msg.docs
	m.cursor = 0
	for i, d := range m.docs {
		if d.ID == selected {
			m.cursor = i
		}
	}
	m.clampOffset()
	m.header.Subtitle = countLabel(len(m.docs))

	if m.cache != nil && len(m.docs) > 0 {
		if err := m.cache.PutDocuments(m.docs...); err != nil {
			log.Printf("documents: cache list: %v", err)
		}
	}
	return m, nil
}

func (m Model) handleDeleted(msg deletedMsg) (Model, tea.Cmd) {
	m.busy = false
	m.spinner.Stop()
	if msg.err != nil {
		return m, components.ShowToast(components.NewErrorToast(api.Message(msg.err, "Failed to delete document.")))
	}
	for i, d := range m.docs {
		if d.ID == msg.id {
			m.docs = append(m.docs[:i:i], m.docs[i+1:]...)
			break
		}
	}
	if m.cursor >= len(m.docs) {
		m.cursor = len(m.docs) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampOffset()
	m.header.Subtitle = countLabel(len(m.docs))

	if m.cache != nil {
		if err := m.cache.DeleteDocument(msg.id); err != nil {
			log.Printf("documents: cache delete %d: %v", msg.id, err)
		}
	}
	return m, components.ShowToast(components.NewSuccessToast(fmt.Sprintf("Deleted %s", msg.name)))
}

func (m Model) handleUploaded(msg uploadedMsg) (Model, tea.Cmd) {
	m.busy = false
	m.spinner.Stop()
	if msg.err != nil {
		return m, components.ShowToast(components.NewErrorToast(api.Message(msg.err, "Upload failed.")))
	}
	m.docs = append([]api.Document{*msg.doc}, m.docs...)
	m.cursor = 0
	m.offset = 0
	m.header.Subtitle = countLabel(len(m.docs))
	if m.cache != nil {
		if err := m.cache.PutDocuments(*msg.doc); err != nil {
			log.Printf("documents: cache upload %d: %v", msg.doc.ID, err)
		}
	}
	return m, components.ShowToast(components.NewSuccessToast(
		fmt.Sprintf("Uploaded %s. Indexing has started.", msg.doc.OriginalName)))
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case modeConfirmDelete:
		return m.handleConfirmKey(msg)
	case modeUpload:
		return m.handleUploadKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.SignOut):
		m.Close()
		return m, func() tea.Msg { return SignOutMsg{} }

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.clampOffset()
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.docs)-1 {
			m.cursor++
			m.clampOffset()
		}
		return m, nil
	}

	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Open):
		doc, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return OpenMsg{Document: doc} }

	case key.Matches(msg, m.keys.Refresh):
		m.busy = true
		m.spinner.SetMessage("Loading documents")
		tick := m.spinner.Start()
		return m, tea.Batch(tick, m.listCmd())

	case key.Matches(msg, m.keys.Delete):
		if _, ok := m.Selected(); ok {
			m.mode = modeConfirmDelete
		}
		return m, nil

	case key.Matches(msg, m.keys.Upload):
		m.mode = modeUpload
		m.path.SetValue("")
		cmd := m.path.Focus()
		return m, cmd
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.mode = modeBrowse
		doc, ok := m.Selected()
		if !ok {
			return m, nil
		}
		m.busy = true
		m.spinner.SetMessage("Deleting " + doc.OriginalName)
		tick := m.spinner.Start()
		return m, tea.Batch(tick, m.deleteCmd(doc))

	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
	}
	return m, nil
}

func (m Model) handleUploadKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.path.Blur()
		return m, nil

	case tea.KeyEnter:
		path := expandHome(strings.TrimSpace(m.path.Value()))
		if path == "" {
			return m, nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return m, components.ShowToast(components.NewErrorToast(fmt.Sprintf("Cannot read %s", path)))
		}
		if err := api.ValidateUpload(path, info.Size()); err != nil {
			return m, components.ShowToast(components.NewWarningToast(err.Error()))
		}
		m.mode = modeBrowse
		m.path.Blur()
		m.busy = true
		m.spinner.SetMessage("Uploading " + filepath.Base(path))
		tick := m.spinner.Start()
		return m, tea.Batch(tick, m.uploadCmd(path))
	}

	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// =============================================================================
// VIEW
// =============================================================================

// visibleRows is the number of list rows that fit between header and footer.
func (m Model) visibleRows() int {
	rows := m.height - 5
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) clampOffset() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// View renders the list.
func (m Model) View() string {
	parts := []string{m.header.View(), m.body()}

	switch {
	case m.mode == modeConfirmDelete:
		doc, _ := m.Selected()
		parts = append(parts, m.theme.WarningStyle.Render(
			fmt.Sprintf("Delete %s and its conversation history? (y/n)", doc.OriginalName)))
	case m.mode == modeUpload:
		parts = append(parts, m.path.View())
	case m.busy:
		parts = append(parts, m.spinner.View())
	default:
		parts = append(parts, "")
	}

	parts = append(parts, m.statusBar.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) body() string {
	height := m.visibleRows() + 1
	if !m.loaded {
		text := m.spinner.View()
		if m.loadErr != "" {
			text = m.theme.ErrorStyle.Render(m.loadErr) + "\n" + m.theme.Placeholder.Render("Press r to retry.")
		}
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, text)
	}
	if len(m.docs) == 0 {
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center,
			m.theme.Placeholder.Render("No documents yet. Press u to upload one."))
	}

	nameWidth := m.width - 42
	if nameWidth < 12 {
		nameWidth = 12
	}

	lines := []string{m.theme.ListMeta.Render(
		"  " + util.PadRight("NAME", nameWidth) + "  " + util.PadRight("SIZE", 9) + "  " + util.PadRight("UPLOADED", 16) + "  STATUS")}
	end := m.offset + m.visibleRows()
	if end > len(m.docs) {
		end = len(m.docs)
	}
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.row(m.docs[i], i == m.cursor, nameWidth))
	}
	return lipgloss.NewStyle().Height(height).Render(strings.Join(lines, "\n"))
}

func (m Model) row(doc api.Document, selected bool, nameWidth int) string {
	badge := m.theme.BadgeIndexing.Render("indexing")
	if doc.Indexed {
		badge = m.theme.BadgeReady.Render("indexed")
	}
	text := util.PadRight(util.Truncate(doc.OriginalName, nameWidth), nameWidth) + "  " +
		util.PadRight(util.FormatBytes(doc.FileSize), 9) + "  " +
		util.PadRight(util.FormatTimestamp(doc.UploadDate), 16) + "  "
	if selected {
		return m.theme.ListItemSelected.Render("> "+text) + badge
	}
	return m.theme.ListItem.Render("  "+text) + badge
}

func countLabel(n int) string {
	if n == 1 {
		return "1 document"
	}
	return fmt.Sprintf("%d documents", n)
}
