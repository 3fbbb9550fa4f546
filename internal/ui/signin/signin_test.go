// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package signin

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/ui/styles"
	"github.com/jeranaias/docent-tui/internal/validate"
)

type fakeAuth struct {
	signIns []api.Credentials
	signUps []api.SignupRequest
	err     error
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*api.User, error) {
	f.signIns = append(f.signIns, api.Credentials{Email: email, Password: password})
	if f.err != nil {
		return nil, f.err
	}
	return &api.User{ID: 1, Email: email}, nil
}

func (f *fakeAuth) SignUp(ctx context.Context, req api.SignupRequest) (*api.User, error) {
	f.signUps = append(f.signUps, req)
	if f.err != nil {
		return nil, f.err
	}
	return &api.User{ID: 2, Email: req.Email, Name: req.Name}, nil
}

func newModel(auth Authenticator, email string) Model {
	m := New(auth, styles.NewThemeForMode("dark"), email)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func typeText(m Model, s string) Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func press(m Model, t tea.KeyType) (Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: t})
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

func hasResult(msgs []tea.Msg) bool {
	for _, msg := range msgs {
		if _, ok := msg.(resultMsg); ok {
			return true
		}
	}
	return false
}

// deliver feeds every resultMsg produced by cmd back into m.
func deliver(m Model, cmd tea.Cmd) (Model, []tea.Msg) {
	var out []tea.Msg
	for _, msg := range runAll(cmd) {
		if r, ok := msg.(resultMsg); ok {
			var next tea.Cmd
			m, next = m.Update(r)
			out = append(out, runAll(next)...)
		}
	}
	return m, out
}

func TestNewPrefillsEmailAndFocusesPassword(t *testing.T) {
	m := newModel(&fakeAuth{}, "ada@example.com")
	assert.Equal(t, fieldPassword, m.focus)
	assert.Equal(t, "ada@example.com", m.value(fieldEmail))

	m = newModel(&fakeAuth{}, "")
	assert.Equal(t, fieldEmail, m.focus)
}

func TestSignInValidationBlocksRequest(t *testing.T) {
	auth := &fakeAuth{}
	m := newModel(auth, "")
	m = typeText(m, "not-an-email")
	m, _ = press(m, tea.KeyTab)
	m, cmd := press(m, tea.KeyEnter)

	assert.False(t, hasResult(runAll(cmd)))
	assert.Empty(t, auth.signIns)
	assert.Equal(t, "Invalid email address", m.Errors().Field(validate.FieldEmail))
	assert.Equal(t, "Password is required", m.Errors().Field(validate.FieldPassword))
	assert.Equal(t, fieldEmail, m.focus, "focus moves to the first invalid field")
	assert.Contains(t, m.View(), "Invalid email address")
}

func TestSignInSuccess(t *testing.T) {
	auth := &fakeAuth{}
	m := newModel(auth, "ada@example.com")
	m = typeText(m, "whatever1")
	m, cmd := press(m, tea.KeyEnter)
	require.True(t, m.Submitting())

	m, msgs := deliver(m, cmd)
	assert.False(t, m.Submitting())
	require.Len(t, auth.signIns, 1)
	assert.Equal(t, api.Credentials{Email: "ada@example.com", Password: "whatever1"}, auth.signIns[0])

	var got *AuthenticatedMsg
	for _, msg := range msgs {
		if a, ok := msg.(AuthenticatedMsg); ok {
			got = &a
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, "ada@example.com", got.User.Email)
}

func TestSignInServerRejection(t *testing.T) {
	auth := &fakeAuth{err: &api.APIError{Status: 401, Message: "Invalid email or password"}}
	m := newModel(auth, "ada@example.com")
	m = typeText(m, "wrong")
	m, cmd := press(m, tea.KeyEnter)
	m, msgs := deliver(m, cmd)

	for _, msg := range msgs {
		_, ok := msg.(AuthenticatedMsg)
		assert.False(t, ok)
	}
	assert.Equal(t, "Invalid email or password", m.ServerError())
	assert.Empty(t, m.value(fieldPassword))
	assert.Equal(t, "ada@example.com", m.value(fieldEmail))
	assert.Contains(t, m.View(), "Invalid email or password")
}

func TestSignUpFlow(t *testing.T) {
	auth := &fakeAuth{}
	m := newModel(auth, "")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	require.Equal(t, ModeSignUp, m.Mode())
	assert.Equal(t, fieldName, m.focus)

	m = typeText(m, "Ada")
	m, _ = press(m, tea.KeyEnter)
	m = typeText(m, "Ada@Example.com")
	m, _ = press(m, tea.KeyEnter)
	m = typeText(m, "Secret123")
	m, _ = press(m, tea.KeyEnter)
	m = typeText(m, "Secret124")
	m, cmd := press(m, tea.KeyEnter)

	assert.False(t, hasResult(runAll(cmd)))
	assert.Equal(t, "Passwords do not match", m.Errors().Field(validate.FieldConfirm))
	assert.Equal(t, fieldConfirm, m.focus)

	m.inputs[fieldConfirm].SetValue("Secret123")
	m, cmd = press(m, tea.KeyEnter)
	m, msgs := deliver(m, cmd)

	require.Len(t, auth.signUps, 1)
	assert.Equal(t, "Ada", auth.signUps[0].Name)
	assert.False(t, m.Errors().Any())
	found := false
	for _, msg := range msgs {
		if _, ok := msg.(AuthenticatedMsg); ok {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSignUpWeakPassword(t *testing.T) {
	m := newModel(&fakeAuth{}, "")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m.inputs[fieldName].SetValue("Ada")
	m.inputs[fieldEmail].SetValue("ada@example.com")
	m.inputs[fieldPassword].SetValue("secret")
	m, _ = m.focusField(fieldConfirm)
	m, _ = press(m, tea.KeyEnter)

	assert.Equal(t, "Password must be at least 8 characters long", m.Errors().Field(validate.FieldPassword))
	assert.Equal(t, fieldPassword, m.focus)
}

func TestToggleClearsErrors(t *testing.T) {
	m := newModel(&fakeAuth{}, "")
	m, _ = m.focusField(fieldPassword)
	m, _ = press(m, tea.KeyEnter)
	require.True(t, m.Errors().Any())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.False(t, m.Errors().Any())
	assert.True(t, strings.Contains(m.View(), "Create account"))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, ModeSignIn, m.Mode())
	assert.NotContains(t, m.View(), "Confirm password")
}

func TestStaleResultIgnored(t *testing.T) {
	m := newModel(&fakeAuth{}, "")
	m, cmd := m.Update(resultMsg{mode: ModeSignIn, user: &api.User{ID: 1}})
	assert.Nil(t, cmd)
	assert.False(t, m.Submitting())
}

func TestKeysIgnoredWhileSubmitting(t *testing.T) {
	m := newModel(&fakeAuth{}, "ada@example.com")
	m = typeText(m, "pw")
	m, _ = press(m, tea.KeyEnter)
	require.True(t, m.Submitting())

	m = typeText(m, "xyz")
	assert.Equal(t, "pw", m.value(fieldPassword))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, ModeSignIn, m.Mode())
}
