// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This test file drives the backend commands against the in-memory
// development server.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/config"
	"github.com/jeranaias/docent-tui/internal/conversation"
	"github.com/jeranaias/docent-tui/internal/devserver"
	"github.com/jeranaias/docent-tui/internal/storage"
)

const testPassword = "Secret123"

// harness is one devserver plus the on-disk state commands share.
type harness struct {
	t       *testing.T
	baseURL string
	cfg     *config.Config
	creds   storage.CredentialStore
	cache   *storage.TranscriptCache
	dir     string
}

func newHarness(t *testing.T, indexDelay time.Duration) *harness {
	t.Helper()
	srv := devserver.New(devserver.Options{
		Secret:     []byte("cli-test-secret"),
		IndexDelay: indexDelay,
		BcryptCost: bcrypt.MinCost,
		EnvKeys:    map[string]string{"openai": "sk-test", "gemini": "g-test", "claude": "sk-ant", "groq": "gsk-test"},
		Logger:     log.New(io.Discard, "", 0),
	})
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	dir := t.TempDir()
	baseURL := hs.URL + "/api"
	cache, err := storage.OpenTranscriptCache(filepath.Join(dir, "cache.db"), baseURL)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	cfg.UI.Markdown = false

	h := &harness{t: t, baseURL: baseURL, cfg: cfg, cache: cache, dir: dir}
	h.creds = storage.NewFileStore(filepath.Join(dir, "credentials.json"), h.client().Host())
	return h
}

func (h *harness) client() *api.Client {
	return api.New(api.Options{BaseURL: h.baseURL, MaxRetries: 0})
}

// env builds a fresh Env, as a new process would, reading stdin from input.
func (h *harness) env(input string) (*Env, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	e := newEnv(h.cfg, h.client(), h.creds, h.cache)
	e.Out, e.Err, e.In = out, errOut, strings.NewReader(input)
	return e, out, errOut
}

func (h *harness) signup(email string) {
	h.t.Helper()
	e, _, _ := h.env(testPassword + "\n" + testPassword + "\n")
	require.NoError(h.t, e.Signup(context.Background(), Args{Raw: []string{"--name", "Ada Lovelace", "--email", email}}))
}

// upload writes a text file and uploads it, returning the document.
func (h *harness) upload(name, text string) api.Document {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(text), 0644))

	e, out, _ := h.env("")
	e.JSON = true
	require.NoError(h.t, e.Docs(context.Background(), Args{Raw: []string{"upload", path}}))

	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			Path     string       `json:"path"`
			Document api.Document `json:"document"`
		} `json:"data"`
	}
	require.NoError(h.t, json.Unmarshal(out.Bytes(), &resp))
	require.True(h.t, resp.Success)
	require.Len(h.t, resp.Data, 1)
	return resp.Data[0].Document
}

const contractText = "The notice period is thirty days. Either party may terminate in writing."

// =============================================================================
// SESSION COMMANDS
// =============================================================================

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t, 0)
	h.signup("ada@example.com")

	// A new process finds the persisted token.
	e, out, _ := h.env("")
	require.NoError(t, e.Whoami(context.Background(), Args{}))
	assert.Contains(t, out.String(), "ada@example.com")
	assert.Contains(t, out.String(), "Ada Lovelace")

	e, out, _ = h.env("")
	require.NoError(t, e.Logout(context.Background(), Args{}))
	assert.Contains(t, out.String(), "Signed out")

	e, _, _ = h.env("")
	err := e.Whoami(context.Background(), Args{})
	require.Error(t, err)
	assert.Equal(t, ExitAuthError, GetExitCode(err))

	e, out, _ = h.env(testPassword + "\n")
	require.NoError(t, e.Login(context.Background(), Args{Raw: []string{"--email", "  ADA@example.com "}}))
	assert.Contains(t, out.String(), "Signed in as Ada Lovelace")

	cred, err := h.creds.Load()
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", cred.Email)
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newHarness(t, 0)
	h.signup("ada@example.com")

	e, _, _ := h.env("Wrong1234\n")
	err := e.Login(context.Background(), Args{Raw: []string{"-e", "ada@example.com"}})
	require.Error(t, err)
	assert.Equal(t, ExitAuthError, GetExitCode(err))
}

func TestSignup_ValidatesBeforeSending(t *testing.T) {
	h := newHarness(t, 0)

	e, _, _ := h.env("short\nshort\n")
	err := e.Signup(context.Background(), Args{Raw: []string{"--name", "Ada", "--email", "not-an-email"}})
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, loadErr := h.creds.Load()
	assert.ErrorIs(t, loadErr, storage.ErrNoCredential)
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func TestDocsUploadAndList(t *testing.T) {
	h := newHarness(t, 0)
	h.signup("ada@example.com")
	doc := h.upload("contract.txt", contractText)
	assert.Equal(t, "contract.txt", doc.OriginalName)

	e, out, _ := h.env("")
	require.NoError(t, e.Docs(context.Background(), Args{Raw: []string{"list"}}))
	assert.Contains(t, out.String(), "contract.txt")

	// The listing was written through to the cache.
	e, out, _ = h.env("")
	require.NoError(t, e.Docs(context.Background(), Args{Raw: []string{"list", "--offline"}}))
	assert.Contains(t, out.String(), "contract.txt")
}

func TestDocsUpload_RejectsBeforeSending(t *testing.T) {
	h := newHarness(t, 0)
	h.signup("ada@example.com")

	good := filepath.Join(h.dir, "good.txt")
	bad := filepath.Join(h.dir, "slides.pptx")
	require.NoError(t, os.WriteFile(good, []byte(contractText), 0644))
	require.NoError(t, os.WriteFile(bad, []byte("pptx"), 0644))

	e, _, _ := h.env("")
	err := e.Docs(context.Background(), Args{Raw: []string{"upload", good, bad}})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnsupportedFileType)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	docs, err := h.cache.Documents()
	require.NoError(t, err)
	assert.Empty(t, docs, "nothing should have been uploaded")
}

func TestDocsDelete_RequiresConfirmation(t *testing.T) {
	h := newHarness(t, 0)
	h.signup("ada@example.com")
	doc := h.upload("contract.txt", contractText)
	id := strconv.FormatInt(doc.ID, 10)

	e, out, _ := h.env("n\n")
	require.NoError(t, e.Docs(context.Background(), Args{Raw: []string{"delete", id}}))
	assert.NotContains(t, out.String(), "Deleted")

	e, out, _ = h.env("")
	require.NoError(t, e.Docs(context.Background(), Args{Raw: []string{"delete", id, "--yes"}}))
	assert.Contains(t, out.String(), "Deleted contract.txt")

	_, err := h.cache.Transcript(doc.ID)
	assert.ErrorIs(t, err, storage.ErrNotCached)

	e, _, _ = h.env("")
	err = e.Docs(context.Background(), Args{Raw: []string{"show", id}})
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

// =============================================================================
// QUESTIONS
// =============================================================================

func TestAsk_AnswersAndCaches(t *testing.T) {
	h := newHarness(t, 0)
	h.signup("ada@example.com")
	doc := h.upload("contract.txt", contractText)
	id := strconv.FormatInt(doc.ID, 10)

	e, out, _ := h.env("")
	require.NoError(t, e.Ask(context.Background(), Args{Raw: []string{id, "What", "is", "the", "notice", "period?"}}))
	assert.Contains(t, out.String(), `You asked: "What is the notice period?"`)
	assert.Contains(t, out.String(), "Sources (")

	t1, err := h.cache.Transcript(doc.ID)
	require.NoError(t, err)
	require.Len(t, t1.History, 1)
	assert.Equal(t, "What is the notice period?", t1.History[0].Question)

	// History works offline from the cache.
	e, out, _ = h.env("")
	require.NoError(t, e.History(context.Background(), Args{Raw: []string{id, "--offline"}}))
	assert.Contains(t, out.String(), "What is the notice period?")
}

func TestAsk_ProviderOverride(t *testing.T) {
	h := newHarness(t, 0)
	h.signup("ada@example.com")
	doc := h.upload("contract.txt", contractText)
	id := strconv.FormatInt(doc.ID, 10)

	e, out, _ := h.env("")
	require.NoError(t, e.Ask(context.Background(), Args{Raw: []string{id, "Who signs?", "--provider", "groq"}}))
	assert.Contains(t, out.String(), "groq / `llama3-70b-8192`")

	e, _, _ = h.env("")
	err := e.Ask(context.Background(), Args{Raw: []string{id, "Who signs?", "--provider", "groq", "--model", "gpt-4o"}})
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestAsk_NotIndexed(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.signup("ada@example.com")
	doc := h.upload("contract.txt", contractText)
	require.False(t, doc.Indexed)

	e, _, _ := h.env("")
	err := e.Ask(context.Background(), Args{Raw: []string{strconv.FormatInt(doc.ID, 10), "Anything?"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, conversation.ErrNotReady))
	assert.Equal(t, ExitNotReadyError, GetExitCode(err))
}

func TestAsk_RequiresSession(t *testing.T) {
	h := newHarness(t, 0)

	e, _, _ := h.env("")
	err := e.Ask(context.Background(), Args{Raw: []string{"1", "Anything?"}})
	require.Error(t, err)
	assert.Equal(t, ExitAuthError, GetExitCode(err))

	err = e.Ask(context.Background(), Args{Raw: []string{"1"}})
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestExport_WritesJSON(t *testing.T) {
	h := newHarness(t, 0)
	h.signup("ada@example.com")
	doc := h.upload("contract.txt", contractText)
	id := strconv.FormatInt(doc.ID, 10)

	e, _, _ := h.env("")
	require.NoError(t, e.Ask(context.Background(), Args{Raw: []string{id, "Summarise"}}))

	path := filepath.Join(h.dir, "out", "contract.json")
	e, out, _ := h.env("")
	require.NoError(t, e.Export(context.Background(), Args{Raw: []string{id, "--format", "json", "--output", path}}))
	assert.Contains(t, out.String(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var exported map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Contains(t, string(data), "Summarise")

	e, _, _ = h.env("")
	err = e.Export(context.Background(), Args{Raw: []string{id, "--format", "pdf"}})
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// ACCOUNT
// =============================================================================

func TestAccountLLM(t *testing.T) {
	h := newHarness(t, 0)
	h.signup("ada@example.com")

	e, out, _ := h.env("")
	require.NoError(t, e.Account(context.Background(), Args{Raw: []string{"llm", "--provider", "groq"}}))
	assert.Contains(t, out.String(), "LLM settings updated")
	assert.Contains(t, out.String(), "Llama 3 70B")

	e, _, _ = h.env("")
	err := e.Account(context.Background(), Args{Raw: []string{"llm", "--provider", "mistral"}})
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	// A bare --model is checked against the account's provider (now groq).
	e, _, _ = h.env("")
	err = e.Account(context.Background(), Args{Raw: []string{"llm", "--model", "gpt-4o"}})
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	e, _, _ = h.env("")
	err = e.Account(context.Background(), Args{Raw: []string{"llm"}})
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestAccountDelete_NeedsConfirm(t *testing.T) {
	h := newHarness(t, 0)
	h.signup("ada@example.com")

	e, _, _ := h.env(testPassword + "\n")
	err := e.Account(context.Background(), Args{Raw: []string{"delete"}})
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	e, _, _ = h.env(testPassword + "\n")
	require.NoError(t, e.Account(context.Background(), Args{Raw: []string{"delete", "--confirm"}}))

	_, err = h.creds.Load()
	assert.ErrorIs(t, err, storage.ErrNoCredential)
}

// =============================================================================
// CHAT REPL
// =============================================================================

// scriptedInput feeds fixed lines to the REPL, then EOF. It records the
// draft each prompt was pre-filled with.
type scriptedInput struct {
	lines  []string
	drafts []string
}

func (s *scriptedInput) ReadInput(_, draft string) (string, error) {
	s.drafts = append(s.drafts, draft)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func TestChatSession_Script(t *testing.T) {
	h := newHarness(t, 0)
	h.signup("ada@example.com")
	doc := h.upload("contract.txt", contractText)

	e, out, _ := h.env("")
	ctx := context.Background()
	snap, ctrl, err := e.openConversation(ctx, NewArgParser([]string{strconv.FormatInt(doc.ID, 10)}))
	require.NoError(t, err)
	defer ctrl.Close()

	s := &chatSession{env: e, doc: snap.Document, ctrl: ctrl, chunks: snap.Chunks}
	in := &scriptedInput{lines: []string{
		"/provider groq",
		"/model nope",
		"/model llama-3.1-8b-instant",
		"What is the notice period?",
		"/sources",
		"/bogus",
		"",
		"quit",
		"never read",
	}}
	require.NoError(t, s.run(ctx, in))

	text := out.String()
	assert.Contains(t, text, "Groq / Llama 3 70B")
	assert.Contains(t, text, "Groq / Llama 3.1 8B Instant")
	assert.Contains(t, text, "groq / `llama-3.1-8b-instant`")
	assert.Contains(t, text, "unknown command /bogus")
	assert.Equal(t, []string{"never read"}, in.lines)

	history := ctrl.History()
	require.Len(t, history, 1)
	assert.Equal(t, "What is the notice period?", history[0].Question)
}

func TestChatSession_FailedQuestionRefillsPrompt(t *testing.T) {
	h := newHarness(t, 0)
	h.signup("ada@example.com")
	doc := h.upload("contract.txt", contractText)

	e, out, _ := h.env("")
	ctx := context.Background()
	snap, ctrl, err := e.openConversation(ctx, NewArgParser([]string{strconv.FormatInt(doc.ID, 10)}))
	require.NoError(t, err)
	defer ctrl.Close()

	// The backend goes away after the conversation has loaded.
	gone := httptest.NewServer(http.NotFoundHandler())
	gone.Close()
	e.Client = api.New(api.Options{BaseURL: gone.URL + "/api", MaxRetries: 0})

	s := &chatSession{env: e, doc: snap.Document, ctrl: ctrl, chunks: snap.Chunks}
	in := &scriptedInput{lines: []string{"  Summarize section 2  "}}
	require.NoError(t, s.run(ctx, in))

	assert.Contains(t, out.String(), "[Error]")
	require.Len(t, in.drafts, 2)
	assert.Equal(t, "", in.drafts[0])
	assert.Equal(t, "Summarize section 2", in.drafts[1])
	assert.Equal(t, "Summarize section 2", ctrl.Draft())
	assert.Empty(t, ctrl.History())
}

func TestChatSession_EmptyLineClearsDraft(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.signup("ada@example.com")
	doc := h.upload("contract.txt", contractText)

	e, _, _ := h.env("")
	ctx := context.Background()
	snap, ctrl, err := e.openConversation(ctx, NewArgParser([]string{strconv.FormatInt(doc.ID, 10)}))
	require.NoError(t, err)
	defer ctrl.Close()

	s := &chatSession{env: e, doc: snap.Document, ctrl: ctrl}
	in := &scriptedInput{lines: []string{"Anything?", ""}}
	require.NoError(t, s.run(ctx, in))

	// A refused question stays in the prompt until it is cleared.
	assert.Equal(t, []string{"", "Anything?", ""}, in.drafts)
}

func TestChatSession_NotIndexed(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.signup("ada@example.com")
	doc := h.upload("contract.txt", contractText)

	e, out, _ := h.env("")
	ctx := context.Background()
	snap, ctrl, err := e.openConversation(ctx, NewArgParser([]string{strconv.FormatInt(doc.ID, 10)}))
	require.NoError(t, err)
	defer ctrl.Close()

	s := &chatSession{env: e, doc: snap.Document, ctrl: ctrl}
	require.NoError(t, s.run(ctx, &scriptedInput{lines: []string{"Anything?", "/refresh"}}))

	assert.Contains(t, out.String(), conversation.IndexingNotice)
	assert.Contains(t, out.String(), "Still indexing.")
	assert.Empty(t, ctrl.History())
}
