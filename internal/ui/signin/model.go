// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package signin

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/ui/components"
	"github.com/jeranaias/docent-tui/internal/ui/styles"
	"github.com/jeranaias/docent-tui/internal/validate"
)

// Authenticator establishes a session. *session.Gate satisfies it.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*api.User, error)
	SignUp(ctx context.Context, req api.SignupRequest) (*api.User, error)
}

// Mode selects between the two forms.
type Mode int

const (
	ModeSignIn Mode = iota
	ModeSignUp
)

func (m Mode) String() string {
	if m == ModeSignUp {
		return "Create account"
	}
	return "Sign in"
}

// AuthenticatedMsg is emitted once the backend accepts the credentials.
type AuthenticatedMsg struct {
	User *api.User
}

type resultMsg struct {
	mode Mode
	user *api.User
	err  error
}

// Form fields in display order.
const (
	fieldName = iota
	fieldEmail
	fieldPassword
	fieldConfirm
	fieldCount
)

var fieldKeys = [fieldCount]string{
	validate.FieldName,
	validate.FieldEmail,
	validate.FieldPassword,
	validate.FieldConfirm,
}

var fieldLabels = [fieldCount]string{"Name", "Email", "Password", "Confirm password"}

// Model is the sign-in screen.
type Model struct {
	auth  Authenticator
	theme *styles.Theme
	keys  KeyMap

	ctx    context.Context
	cancel context.CancelFunc

	mode       Mode
	inputs     [fieldCount]textinput.Model
	focus      int
	errs       validate.Errors
	serverErr  string
	submitting bool
	spinner    components.Spinner
	statusBar  *components.StatusBar

	width  int
	height int
}

// New creates the screen in sign-in mode with email pre-filled.
func New(auth Authenticator, theme *styles.Theme, email string) Model {
	if theme == nil {
		theme = styles.NewTheme()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		auth:      auth,
		theme:     theme,
		keys:      DefaultKeyMap(),
		ctx:       ctx,
		cancel:    cancel,
		mode:      ModeSignIn,
		focus:     fieldEmail,
		spinner:   components.NewSpinner("Signing in"),
		statusBar: components.NewStatusBar(theme),
		width:     80,
		height:    24,
	}
	for i := range m.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 256
		in.Width = 40
		if i == fieldPassword || i == fieldConfirm {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		m.inputs[i] = in
	}
	m.inputs[fieldEmail].SetValue(email)
	if email != "" {
		m.focus = fieldPassword
	}
	m.inputs[m.focus].Focus()
	m.statusBar.Bindings = m.keys.ShortHelp()
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Mode returns the active form.
func (m Model) Mode() Mode { return m.mode }

// Submitting reports whether a request is in flight.
func (m Model) Submitting() bool { return m.submitting }

// Errors returns the current inline validation errors.
func (m Model) Errors() validate.Errors { return m.errs }

// ServerError returns the last backend rejection, or "".
func (m Model) ServerError() string { return m.serverErr }

// Close cancels any in-flight request.
func (m Model) Close() { m.cancel() }

// fields returns the visible fields for the active mode.
func (m Model) fields() []int {
	if m.mode == ModeSignUp {
		return []int{fieldName, fieldEmail, fieldPassword, fieldConfirm}
	}
	return []int{fieldEmail, fieldPassword}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages for the sign-in screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.statusBar.SetWidth(msg.Width)
		return m, nil

	case resultMsg:
		return m.handleResult(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		return m.toggle()

	case key.Matches(msg, m.keys.Next):
		return m.move(1)

	case key.Matches(msg, m.keys.Prev):
		return m.move(-1)

	case key.Matches(msg, m.keys.Submit):
		fields := m.fields()
		if m.focus != fields[len(fields)-1] {
			return m.move(1)
		}
		return m.submit()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) move(delta int) (Model, tea.Cmd) {
	fields := m.fields()
	pos := 0
	for i, f := range fields {
		if f == m.focus {
			pos = i
		}
	}
	pos = (pos + delta + len(fields)) % len(fields)
	return m.focusField(fields[pos])
}

func (m Model) focusField(f int) (Model, tea.Cmd) {
	m.inputs[m.focus].Blur()
	m.focus = f
	cmd := m.inputs[m.focus].Focus()
	return m, cmd
}

func (m Model) toggle() (Model, tea.Cmd) {
	if m.mode == ModeSignIn {
		m.mode = ModeSignUp
		m.spinner.SetMessage("Creating account")
	} else {
		m.mode = ModeSignIn
		m.spinner.SetMessage("Signing in")
	}
	m.errs = nil
	m.serverErr = ""
	m.inputs[fieldConfirm].SetValue("")
	if m.mode == ModeSignUp {
		return m.focusField(fieldName)
	}
	return m.focusField(fieldEmail)
}

func (m Model) value(f int) string { return m.inputs[f].Value() }

// submit validates and, when the form is clean, starts the request.
func (m Model) submit() (Model, tea.Cmd) {
	m.serverErr = ""
	if m.mode == ModeSignUp {
		m.errs = validate.Signup(validate.SignupForm{
			Name:     m.value(fieldName),
			Email:    m.value(fieldEmail),
			Password: m.value(fieldPassword),
			Confirm:  m.value(fieldConfirm),
		})
	} else {
		m.errs = validate.SignIn(m.value(fieldEmail), m.value(fieldPassword))
	}
	if m.errs.Any() {
		for _, f := range m.fields() {
			if m.errs.Field(fieldKeys[f]) != "" {
				return m.focusField(f)
			}
		}
		return m, nil
	}

	m.submitting = true
	tick := m.spinner.Start()
	return m, tea.Batch(tick, m.authCmd())
}

func (m Model) authCmd() tea.Cmd {
	ctx, auth, mode := m.ctx, m.auth, m.mode
	email, password := m.value(fieldEmail), m.value(fieldPassword)
	name := strings.TrimSpace(m.value(fieldName))
	return func() tea.Msg {
		var user *api.User
		var err error
		if mode == ModeSignUp {
			user, err = auth.SignUp(ctx, api.SignupRequest{Email: email, Password: password, Name: name})
		} else {
			user, err = auth.SignIn(ctx, email, password)
		}
		return resultMsg{mode: mode, user: user, err: err}
	}
}

func (m Model) handleResult(msg resultMsg) (Model, tea.Cmd) {
	if !m.submitting || msg.mode != m.mode {
		return m, nil
	}
	m.submitting = false
	m.spinner.Stop()

	if msg.err != nil {
		fallback := "Sign in failed. Please try again."
		if msg.mode == ModeSignUp {
			fallback = "Sign up failed. Please try again."
		}
		m.serverErr = api.Message(msg.err, fallback)
		m.inputs[fieldPassword].SetValue("")
		m.inputs[fieldConfirm].SetValue("")
		return m.focusField(fieldPassword)
	}

	user := msg.user
	return m, func() tea.Msg { return AuthenticatedMsg{User: user} }
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the centred form.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.theme.FormTitle.Render(m.mode.String()))
	b.WriteString("\n\n")

	if m.serverErr != "" {
		b.WriteString(m.theme.ErrorStyle.Render(m.serverErr))
		b.WriteString("\n\n")
	}

	for _, f := range m.fields() {
		label := m.theme.FormLabel
		if f == m.focus {
			label = m.theme.FormLabelFocused
		}
		b.WriteString(label.Render(fieldLabels[f]))
		b.WriteString("\n")
		b.WriteString(m.inputs[f].View())
		b.WriteString("\n")
		if msg := m.errs.Field(fieldKeys[f]); msg != "" {
			b.WriteString(m.theme.FieldError.Render(msg))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.submitting {
		b.WriteString(m.spinner.View())
	} else if m.mode == ModeSignIn {
		b.WriteString(m.theme.Placeholder.Render("No account? Press ctrl+t to create one."))
	} else {
		b.WriteString(m.theme.Placeholder.Render("Have an account? Press ctrl+t to sign in."))
	}

	form := m.theme.FormBox.Render(b.String())
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, form)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar.View())
}
