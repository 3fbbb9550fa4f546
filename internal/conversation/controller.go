// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/catalog"
)

// =============================================================================
// STATE
// =============================================================================

// State is the send state of a conversation.
type State int

const (
	Idle State = iota
	Sending
)

func (s State) String() string {
	if s == Sending {
		return "sending"
	}
	return "idle"
}

// User-facing failure notices.
const (
	GenericFailure = "Failed to get a response. Please try again."
	TimeoutFailure = "The request timed out. Please try again."
)

// Submit refusals. None of them builds a request.
var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrNotReady      = errors.New("document is still being indexed")
	ErrInFlight      = errors.New("a question is already being answered")
	ErrClosed        = errors.New("conversation closed")
)

// =============================================================================
// REQUEST / OUTCOME
// =============================================================================

// Request is one outbound question.
type Request struct {
	Seq        uint64
	DocumentID int64
	Question   string
	Provider   catalog.Provider
	Model      string
}

// AskRequest converts to the wire body. An empty model is omitted.
func (r Request) AskRequest() api.AskRequest {
	return api.AskRequest{
		Question:  r.Question,
		Provider:  string(r.Provider),
		ModelName: r.Model,
	}
}

// Outcome is the terminal result of a Request.
type Outcome struct {
	Seq      uint64
	Response *api.AskResponse
	Err      error
}

// Asker sends one question.
type Asker interface {
	Ask(ctx context.Context, documentID int64, req api.AskRequest) (*api.AskResponse, error)
}

// Send performs req and wraps the result. It never retries.
func Send(ctx context.Context, asker Asker, req Request) Outcome {
	resp, err := asker.Ask(ctx, req.DocumentID, req.AskRequest())
	if err == nil && resp == nil {
		err = errors.New("empty response")
	}
	return Outcome{Seq: req.Seq, Response: resp, Err: err}
}

// FailureNotice picks the message shown for a failed send.
func FailureNotice(err error) string {
	if errors.Is(err, api.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return TimeoutFailure
	}
	return api.Message(err, GenericFailure)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller is the idle/sending state machine of one document's chat.
type Controller struct {
	mu sync.Mutex

	documentID int64
	readiness  *Readiness
	selection  catalog.Selection
	settings   catalog.Settings

	state   State
	draft   string
	pending string
	seq     uint64
	history []api.HistoryEntry
	notice  string
	closed  bool
}

// NewController builds a controller from a loaded snapshot. A non-empty
// provider or model overrides the account defaults when the catalog allows it.
func NewController(snap *Snapshot, provider, model string) *Controller {
	settings := snap.Settings()
	return &Controller{
		documentID: snap.Document.ID,
		readiness:  NewReadiness(snap.Document),
		selection:  InitialSelection(settings, provider, model),
		settings:   settings,
		history:    append([]api.HistoryEntry(nil), snap.History...),
	}
}

// InitialSelection applies per-run overrides on top of the account settings.
func InitialSelection(settings catalog.Settings, provider, model string) catalog.Selection {
	sel := catalog.Initialize(settings)
	if provider != "" {
		if p, err := catalog.Parse(provider); err == nil {
			sel = sel.SelectProvider(p)
		}
	}
	if model != "" {
		if next, err := sel.SelectModel(model); err == nil {
			sel = next
		}
	}
	return sel
}

// DocumentID returns the document this conversation is about.
func (c *Controller) DocumentID() int64 { return c.documentID }

// Readiness returns the document's readiness tracker.
func (c *Controller) Readiness() *Readiness { return c.readiness }

// State returns the send state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Draft returns the current input text.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the input text.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

// Pending returns the question in flight, or "" when idle.
func (c *Controller) Pending() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// History returns a copy of the messages in append order.
func (c *Controller) History() []api.HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.HistoryEntry(nil), c.history...)
}

// Notice returns the last failure message, if any.
func (c *Controller) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// ClearNotice dismisses the failure message.
func (c *Controller) ClearNotice() {
	c.mu.Lock()
	c.notice = ""
	c.mu.Unlock()
}

// Selection returns the active provider and model.
func (c *Controller) Selection() catalog.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Settings returns the account settings the selection was seeded from.
func (c *Controller) Settings() catalog.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// SetSelection replaces the active pair. Invalid pairs are ignored.
func (c *Controller) SetSelection(sel catalog.Selection) {
	if !sel.Valid() {
		return
	}
	c.mu.Lock()
	c.selection = sel
	c.mu.Unlock()
}

// Configured reports whether the active provider has an API key on the account.
func (c *Controller) Configured() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.Configured(c.settings)
}

// Submit moves Idle to Sending and returns the one request to issue. The
// draft is cleared immediately; it comes back if the request fails.
func (c *Controller) Submit() (Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Request{}, ErrClosed
	}
	if c.state == Sending {
		return Request{}, ErrInFlight
	}
	question := strings.TrimSpace(c.draft)
	if question == "" {
		return Request{}, ErrEmptyQuestion
	}
	if !c.readiness.Ready() {
		return Request{}, ErrNotReady
	}

	c.seq++
	c.state = Sending
	c.pending = question
	c.draft = ""
	c.notice = ""

	return Request{
		Seq:        c.seq,
		DocumentID: c.documentID,
		Question:   question,
		Provider:   c.selection.Provider(),
		Model:      c.selection.Model(),
	}, nil
}

// Resolve applies the outcome of the in-flight request and returns to Idle.
// It reports false, changing nothing, when the controller is closed or the
// outcome belongs to another submission.
func (c *Controller) Resolve(out Outcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state != Sending || out.Seq != c.seq {
		return false
	}
	c.state = Idle
	question := c.pending
	c.pending = ""

	if out.Err != nil || out.Response == nil {
		c.draft = question
		c.notice = FailureNotice(out.Err)
		return true
	}

	c.history = append(c.history, api.HistoryEntry{
		ID:        out.Response.ChatID,
		Question:  question,
		Answer:    out.Response.Answer,
		CreatedAt: out.Response.CreatedAt,
		Contexts:  out.Response.Contexts,
	})
	return true
}

// Close tears the conversation down. Later outcomes are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Closed reports whether Close was called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
