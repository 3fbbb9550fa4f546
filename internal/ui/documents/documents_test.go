// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/ui/components"
	"github.com/jeranaias/docent-tui/internal/ui/styles"
)

type fakeClient struct {
	docs      []api.Document
	listErr   error
	deleted   []int64
	deleteErr error
	uploaded  []string
}

func (f *fakeClient) Documents(ctx context.Context) ([]api.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]api.Document(nil), f.docs...), nil
}

func (f *fakeClient) DeleteDocument(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeClient) UploadFile(ctx context.Context, path string) (*api.Document, error) {
	f.uploaded = append(f.uploaded, path)
	return &api.Document{ID: 99, OriginalName: filepath.Base(path), FileSize: 5}, nil
}

type memCache struct {
	put     []int64
	deleted []int64
}

func (c *memCache) PutDocuments(docs ...api.Document) error {
	for _, d := range docs {
		c.put = append(c.put, d.ID)
	}
	return nil
}

func (c *memCache) DeleteDocument(id int64) error {
	c.deleted = append(c.deleted, id)
	return nil
}

func sampleDocs() []api.Document {
	return []api.Document{
		{ID: 3, OriginalName: "contract.pdf", FileSize: 2048, UploadDate: "2024-12-02T09:00:00", Indexed: true},
		{ID: 2, OriginalName: "notes.txt", FileSize: 120, UploadDate: "2024-12-01T09:00:00"},
		{ID: 1, OriginalName: "old.docx", FileSize: 4096, UploadDate: "2024-11-30T09:00:00", Indexed: true},
	}
}

func runAll(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runAll(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// settle runs cmd and feeds the screen's own result messages back in,
// returning everything else that was produced.
func settle(m Model, cmd tea.Cmd) (Model, []tea.Msg) {
	var out []tea.Msg
	for _, msg := range runAll(cmd) {
		switch msg.(type) {
		case listedMsg, deletedMsg, uploadedMsg:
			var next tea.Cmd
			m, next = m.Update(msg)
			out = append(out, runAll(next)...)
		default:
			out = append(out, msg)
		}
	}
	return m, out
}

func toastKinds(msgs []tea.Msg) []components.ToastKind {
	var kinds []components.ToastKind
	for _, msg := range msgs {
		if tm, ok := msg.(components.ToastMsg); ok {
			kinds = append(kinds, tm.Toast.Kind)
		}
	}
	return kinds
}

func loadedModel(t *testing.T, client *fakeClient, cache DocumentWriter) Model {
	t.Helper()
	m := New(client, cache, styles.NewThemeForMode("dark"))
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	m, _ = settle(m, m.Init())
	require.False(t, m.Busy())
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLoadListsDocuments(t *testing.T) {
	cache := &memCache{}
	m := loadedModel(t, &fakeClient{docs: sampleDocs()}, cache)

	assert.Len(t, m.Documents(), 3)
	assert.Equal(t, []int64{3, 2, 1}, cache.put)

	view := m.View()
	assert.Contains(t, view, "contract.pdf")
	assert.Contains(t, view, "2.0 KB")
	assert.Contains(t, view, "indexed")
	assert.Contains(t, view, "indexing")
	assert.Contains(t, view, "3 documents")
}

func TestLoadFailureShowsRetry(t *testing.T) {
	client := &fakeClient{listErr: &api.APIError{Status: 500, Message: "Database unavailable"}}
	m := New(client, nil, styles.NewThemeForMode("dark"))
	m, msgs := settle(m, m.Init())

	assert.Equal(t, []components.ToastKind{components.ToastKindError}, toastKinds(msgs))
	assert.Contains(t, m.View(), "Database unavailable")
	assert.Contains(t, m.View(), "Press r to retry")

	client.listErr = nil
	client.docs = sampleDocs()
	m, cmd := m.Update(runes("r"))
	m, _ = settle(m, cmd)
	assert.Len(t, m.Documents(), 3)
}

func TestEmptyList(t *testing.T) {
	m := loadedModel(t, &fakeClient{}, nil)
	assert.Contains(t, m.View(), "No documents yet")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestNavigateAndOpen(t *testing.T) {
	m := loadedModel(t, &fakeClient{docs: sampleDocs()}, nil)
	m, _ = m.Update(runes("j"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	doc, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(1), doc.ID, "cursor stops at the last row")

	m, _ = m.Update(runes("k"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msgs := runAll(cmd)
	require.Len(t, msgs, 1)
	open, ok := msgs[0].(OpenMsg)
	require.True(t, ok)
	assert.Equal(t, int64(2), open.Document.ID)
}

func TestRefreshKeepsSelection(t *testing.T) {
	client := &fakeClient{docs: sampleDocs()}
	m := loadedModel(t, client, nil)
	m, _ = m.Update(runes("j"))

	client.docs = append([]api.Document{{ID: 4, OriginalName: "new.pdf"}}, client.docs...)
	m, cmd := m.Update(runes("r"))
	assert.True(t, m.Busy())
	m, _ = settle(m, cmd)

	doc, _ := m.Selected()
	assert.Equal(t, int64(2), doc.ID)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	client := &fakeClient{docs: sampleDocs()}
	cache := &memCache{}
	m := loadedModel(t, client, cache)

	m, _ = m.Update(runes("d"))
	assert.Contains(t, m.View(), "Delete contract.pdf")
	m, _ = m.Update(runes("n"))
	assert.Empty(t, client.deleted)
	assert.NotContains(t, m.View(), "Delete contract.pdf")

	m, _ = m.Update(runes("d"))
	m, cmd := m.Update(runes("y"))
	m, msgs := settle(m, cmd)

	assert.Equal(t, []int64{3}, client.deleted)
	assert.Equal(t, []int64{3}, cache.deleted)
	assert.Len(t, m.Documents(), 2)
	assert.Equal(t, []components.ToastKind{components.ToastKindSuccess}, toastKinds(msgs))
	doc, _ := m.Selected()
	assert.Equal(t, int64(2), doc.ID)
}

func TestDeleteFailureKeepsRow(t *testing.T) {
	client := &fakeClient{docs: sampleDocs(), deleteErr: &api.APIError{Status: 404, Message: "Document not found"}}
	m := loadedModel(t, client, nil)
	m, _ = m.Update(runes("d"))
	m, cmd := m.Update(runes("y"))
	m, msgs := settle(m, cmd)

	assert.Len(t, m.Documents(), 3)
	assert.Equal(t, []components.ToastKind{components.ToastKindError}, toastKinds(msgs))
}

func TestUploadValidatesBeforeSending(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	exe := filepath.Join(dir, "tool.exe")
	require.NoError(t, os.WriteFile(exe, []byte("MZ"), 0o644))
	good := filepath.Join(dir, "brief.txt")
	require.NoError(t, os.WriteFile(good, []byte("hello"), 0o644))

	client := &fakeClient{docs: sampleDocs()}
	m := loadedModel(t, client, nil)

	for _, path := range []string{empty, exe} {
		m, _ = m.Update(runes("u"))
		m.path.SetValue(path)
		var cmd tea.Cmd
		m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.Equal(t, []components.ToastKind{components.ToastKindWarning}, toastKinds(runAll(cmd)), path)
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	}
	assert.Empty(t, client.uploaded)

	m, _ = m.Update(runes("u"))
	m.path.SetValue(good)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m, msgs := settle(m, cmd)

	assert.Equal(t, []string{good}, client.uploaded)
	assert.Equal(t, []components.ToastKind{components.ToastKindSuccess}, toastKinds(msgs))
	doc, _ := m.Selected()
	assert.Equal(t, "brief.txt", doc.OriginalName)
	assert.Len(t, m.Documents(), 4)
}

func TestUploadPromptCapturesLetters(t *testing.T) {
	client := &fakeClient{docs: sampleDocs()}
	m := loadedModel(t, client, nil)
	m, _ = m.Update(runes("u"))
	m, _ = m.Update(runes("d"))
	m, _ = m.Update(runes("r"))
	assert.Equal(t, "dr", m.path.Value())
	assert.Empty(t, client.deleted)
}

func TestSignOutKey(t *testing.T) {
	m := loadedModel(t, &fakeClient{}, nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	msgs := runAll(cmd)
	require.Len(t, msgs, 1)
	_, ok := msgs[0].(SignOutMsg)
	assert.True(t, ok)
}
