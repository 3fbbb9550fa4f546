// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/session"
	"github.com/jeranaias/docent-tui/internal/storage"
	"github.com/jeranaias/docent-tui/internal/ui/chat"
	"github.com/jeranaias/docent-tui/internal/ui/components"
	"github.com/jeranaias/docent-tui/internal/ui/documents"
	"github.com/jeranaias/docent-tui/internal/ui/signin"
	"github.com/jeranaias/docent-tui/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

// fakeBackend serves both the gate and the screens.
type fakeBackend struct {
	mu        sync.Mutex
	token     string
	verifyErr error
	docErr    error
}

var ada = api.User{ID: 1, Email: "ada@example.com", Name: "Ada"}

func (f *fakeBackend) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeBackend) Verify(ctx context.Context) (*api.User, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	u := ada
	return &u, nil
}

func (f *fakeBackend) Me(ctx context.Context) (*api.User, error) {
	u := ada
	return &u, nil
}

func (f *fakeBackend) Login(ctx context.Context, creds api.Credentials) (*api.AuthResponse, error) {
	return &api.AuthResponse{Token: "fresh", User: ada}, nil
}

func (f *fakeBackend) Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error) {
	return &api.AuthResponse{Token: "fresh", User: api.User{ID: 2, Email: req.Email, Name: req.Name}}, nil
}

func (f *fakeBackend) Documents(ctx context.Context) ([]api.Document, error) {
	return []api.Document{{ID: 7, OriginalName: "contract.pdf", Indexed: true}}, nil
}

func (f *fakeBackend) DeleteDocument(ctx context.Context, id int64) error { return nil }

func (f *fakeBackend) UploadFile(ctx context.Context, path string) (*api.Document, error) {
	return nil, fmt.Errorf("not supported")
}

func (f *fakeBackend) Document(ctx context.Context, id int64) (*api.Document, error) {
	if f.docErr != nil {
		return nil, f.docErr
	}
	return &api.Document{ID: id, OriginalName: "contract.pdf", Indexed: true}, nil
}

func (f *fakeBackend) History(ctx context.Context, id int64) ([]api.HistoryEntry, error) {
	return nil, nil
}

func (f *fakeBackend) Account(ctx context.Context) (*api.Account, error) {
	return &api.Account{User: ada}, nil
}

func (f *fakeBackend) Chunks(ctx context.Context, id int64) ([]api.Chunk, error) {
	return nil, nil
}

func (f *fakeBackend) Ask(ctx context.Context, id int64, req api.AskRequest) (*api.AskResponse, error) {
	return &api.AskResponse{ChatID: 1, Answer: "ok"}, nil
}

type fixture struct {
	backend *fakeBackend
	store   *session.Store
	gate    *session.Gate
	creds   *storage.FileStore
	m       *Model
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	backend := &fakeBackend{}
	store := session.NewStore()
	creds := storage.NewFileStore(filepath.Join(t.TempDir(), "credentials.json"), "localhost:5000")
	if token != "" {
		require.NoError(t, creds.Save(storage.Credential{Token: token, Email: ada.Email, SavedAt: time.Now()}))
	}
	gate := session.NewGate(store, backend, creds)
	m := New(Options{Gate: gate, Client: backend, Theme: styles.NewThemeForMode("dark")})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	t.Cleanup(func() {
		m.Shutdown()
		store.Close()
	})
	return &fixture{backend: backend, store: store, gate: gate, creds: creds, m: m}
}

// check runs the gate check directly and delivers its outcome.
func (f *fixture) check() tea.Cmd {
	_, cmd := f.m.Update(f.m.checkCmd()())
	return cmd
}

// notify delivers the store's current state as a change notification.
func (f *fixture) notify() tea.Cmd {
	_, cmd := f.m.Update(session.ChangedMsg{Session: f.store.Current()})
	return cmd
}

// nonBlocking runs cmd and its batched children, keeping only the messages
// produced promptly. Session waits and timers are left behind.
func nonBlocking(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, nonBlocking(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

func toasts(msgs []tea.Msg) []components.Toast {
	var out []components.Toast
	for _, msg := range msgs {
		if tm, ok := msg.(components.ToastMsg); ok {
			out = append(out, tm.Toast)
		}
	}
	return out
}

// =============================================================================
// GATE
// =============================================================================

func TestStartsOnGateScreen(t *testing.T) {
	f := newFixture(t, "")
	f.m.Init()
	assert.Equal(t, StateGate, f.m.State())
	assert.Contains(t, f.m.View(), "Checking your session")
}

func TestNoCredentialRoutesToSignIn(t *testing.T) {
	f := newFixture(t, "")
	cmd := f.check()
	assert.Equal(t, StateSignIn, f.m.State())
	assert.Empty(t, toasts(nonBlocking(cmd)))
	assert.Contains(t, f.m.View(), "Sign in")
}

func TestValidCredentialRoutesToDocuments(t *testing.T) {
	f := newFixture(t, "opaque-token")
	f.check()
	assert.Equal(t, StateDocuments, f.m.State())
	assert.True(t, f.store.Current().IsAuthenticated)
	assert.Contains(t, f.m.View(), "Ada")
}

func TestRejectedCredentialWarns(t *testing.T) {
	f := newFixture(t, "stale")
	f.backend.verifyErr = &api.APIError{Status: http.StatusUnauthorized, Message: "Invalid token"}
	cmd := f.check()

	assert.Equal(t, StateSignIn, f.m.State())
	ts := toasts(nonBlocking(cmd))
	require.Len(t, ts, 1)
	assert.Equal(t, components.ToastKindWarning, ts[0].Kind)
}

func TestUnreachableServerShowsError(t *testing.T) {
	f := newFixture(t, "opaque-token")
	f.backend.verifyErr = fmt.Errorf("%w: connection refused", api.ErrNetwork)
	cmd := f.check()

	assert.Equal(t, StateSignIn, f.m.State())
	ts := toasts(nonBlocking(cmd))
	require.Len(t, ts, 1)
	assert.Equal(t, components.ToastKindError, ts[0].Kind)
	assert.True(t, strings.HasPrefix(ts[0].Message, "Could not verify your session"))

	_, err := f.creds.Load()
	assert.NoError(t, err, "credential survives a transport failure")
}

// =============================================================================
// ROUTING
// =============================================================================

func TestSignInRoutesToDocuments(t *testing.T) {
	f := newFixture(t, "")
	f.check()
	require.Equal(t, StateSignIn, f.m.State())

	_, err := f.gate.SignIn(context.Background(), "ada@example.com", "Secret123")
	require.NoError(t, err)
	f.m.Update(signin.AuthenticatedMsg{User: &ada})
	assert.Equal(t, StateDocuments, f.m.State())

	// The store notification that follows is a no-op.
	f.notify()
	assert.Equal(t, StateDocuments, f.m.State())
}

func TestSessionChangeAloneRoutesFromSignIn(t *testing.T) {
	f := newFixture(t, "")
	f.check()
	_, err := f.gate.SignIn(context.Background(), "ada@example.com", "Secret123")
	require.NoError(t, err)
	f.notify()
	assert.Equal(t, StateDocuments, f.m.State())
}

func TestUnauthorizedRedirectsFromDocuments(t *testing.T) {
	f := newFixture(t, "opaque-token")
	f.check()
	require.Equal(t, StateDocuments, f.m.State())

	f.gate.HandleUnauthorized()
	cmd := f.notify()
	assert.Equal(t, StateSignIn, f.m.State())
	ts := toasts(nonBlocking(cmd))
	require.Len(t, ts, 1)
	assert.Equal(t, components.ToastKindWarning, ts[0].Kind)

	// Further notifications do not bounce between screens.
	f.gate.HandleUnauthorized()
	cmd = f.notify()
	assert.Equal(t, StateSignIn, f.m.State())
	assert.Empty(t, toasts(nonBlocking(cmd)))

	assert.Equal(t, "ada@example.com", f.m.lastEmail, "sign-in is pre-filled")
}

func TestUnauthorizedRedirectsFromChat(t *testing.T) {
	f := newFixture(t, "opaque-token")
	f.check()
	f.m.Update(documents.OpenMsg{Document: api.Document{ID: 7}})
	require.Equal(t, StateChat, f.m.State())

	f.gate.HandleUnauthorized()
	f.notify()
	assert.Equal(t, StateSignIn, f.m.State())
}

func TestSignOutFromDocuments(t *testing.T) {
	f := newFixture(t, "opaque-token")
	f.check()
	_, cmd := f.m.Update(documents.SignOutMsg{})

	assert.Equal(t, StateSignIn, f.m.State())
	assert.False(t, f.store.Current().IsAuthenticated)
	_, err := f.creds.Load()
	assert.ErrorIs(t, err, storage.ErrNoCredential)
	ts := toasts(nonBlocking(cmd))
	require.Len(t, ts, 1)
	assert.Equal(t, "Signed out.", ts[0].Message)
}

func TestOpenChatAndBack(t *testing.T) {
	f := newFixture(t, "opaque-token")
	f.check()
	f.m.Update(documents.OpenMsg{Document: api.Document{ID: 7}})
	require.Equal(t, StateChat, f.m.State())
	assert.Equal(t, int64(7), f.m.chat.DocumentID())

	f.m.Update(chat.BackMsg{})
	assert.Equal(t, StateDocuments, f.m.State())
}

func TestChatInitFailureReturnsToDocuments(t *testing.T) {
	f := newFixture(t, "opaque-token")
	f.check()
	f.m.Update(documents.OpenMsg{Document: api.Document{ID: 7}})

	_, cmd := f.m.Update(chat.InitFailedMsg{DocumentID: 7, Err: &api.APIError{Status: 404, Message: "Document not found"}})
	assert.Equal(t, StateDocuments, f.m.State())
	ts := toasts(nonBlocking(cmd))
	require.Len(t, ts, 1)
	assert.Equal(t, components.ToastKindError, ts[0].Kind)
	assert.Contains(t, ts[0].Message, "Document not found")
}

func TestStaleChatInitFailureIgnored(t *testing.T) {
	f := newFixture(t, "opaque-token")
	f.check()
	f.m.Update(documents.OpenMsg{Document: api.Document{ID: 7}})
	f.m.Update(chat.InitFailedMsg{DocumentID: 8, Err: api.ErrNotFound})
	assert.Equal(t, StateChat, f.m.State())
}

func TestChatInitUnauthorizedWaitsForSession(t *testing.T) {
	f := newFixture(t, "opaque-token")
	f.check()
	f.m.Update(documents.OpenMsg{Document: api.Document{ID: 7}})
	f.m.Update(chat.InitFailedMsg{DocumentID: 7, Err: &api.APIError{Status: 401}})
	assert.Equal(t, StateChat, f.m.State())
}

// =============================================================================
// TOASTS
// =============================================================================

func TestToastStackAndExpiry(t *testing.T) {
	f := newFixture(t, "")
	f.check()

	_, cmd := f.m.Update(components.ToastMsg{Toast: components.NewErrorToast("first problem")})
	assert.NotNil(t, cmd, "first toast starts the tick")
	_, cmd = f.m.Update(components.ToastMsg{Toast: components.NewStatusToast("second")})
	assert.Nil(t, cmd, "tick already running")

	assert.Len(t, f.m.Toasts(), 2)
	assert.Contains(t, f.m.View(), "first problem")

	_, cmd = f.m.Update(components.ToastTickMsg{Time: time.Now().Add(5 * time.Second)})
	assert.NotNil(t, cmd)
	assert.Len(t, f.m.Toasts(), 1)

	_, cmd = f.m.Update(components.ToastTickMsg{Time: time.Now().Add(time.Minute)})
	assert.Nil(t, cmd)
	assert.Empty(t, f.m.Toasts())
}

func TestCtrlCQuits(t *testing.T) {
	f := newFixture(t, "")
	_, cmd := f.m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestOverlay(t *testing.T) {
	got := overlay("a\nb\nc", "X\nY\nZ", 1)
	assert.Equal(t, "a\nX\nY\nZ", got)
	assert.Equal(t, "a\nb", overlay("a\nb", "", 1))
}
