// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat about one document.
//
// Command: chat
// Short:   Line-oriented conversation with history and model switching
//
// Examples:
//   docent chat 12
//   docent chat 12 --provider claude
//
// Interactive Commands (during chat):
//   /help, /h              Show available commands
//   /provider [name]       Show or switch provider
//   /model [id]            Show or switch model
//   /models                List the active provider's models
//   /sources               Show the sources of the last answer
//   /chunks                Show the document's chunks
//   /history               Reprint the conversation
//   /refresh, /r           Re-check whether indexing finished
//   /quit, /q              Exit chat
//   Ctrl+C                 Cancel the pending question, or exit at the prompt
//   Ctrl+D                 Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/catalog"
	"github.com/jeranaias/docent-tui/internal/config"
	"github.com/jeranaias/docent-tui/internal/conversation"
	"github.com/jeranaias/docent-tui/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader reads one line of chat input, pre-filled with draft.
type lineReader interface {
	ReadInput(prompt, draft string) (string, error)
}

// ChatCLI provides line editing and persistent input history.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor with history loaded from disk.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile, err := config.HistoryFilePath()
	if err != nil {
		historyFile = ""
	}
	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line, starting from draft when it is non-empty.
// Non-empty lines join the history.
func (c *ChatCLI) ReadInput(prompt, draft string) (string, error) {
	var input string
	var err error
	if draft != "" {
		input, err = c.line.PromptWithSuggestion(prompt, draft, -1)
	} else {
		input, err = c.line.Prompt(prompt)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with mode 0600.
func (c *ChatCLI) SaveHistory() {
	if c.historyFile == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// chatPrompt stays unstyled: liner refuses prompts with escape sequences.
const chatPrompt = "docent> "

// chatSession is one REPL over a conversation controller.
type chatSession struct {
	env  *Env
	doc  api.Document
	ctrl *conversation.Controller

	// chunks is the document's chunk list, reloaded on /chunks.
	chunks []api.Chunk
}

// Chat runs the interactive REPL.
func (e *Env) Chat(ctx context.Context, args Args) error {
	if e.JSON {
		return NewValidationError("flag", "--json", "chat is interactive; use `docent ask --json`")
	}
	p := NewArgParser(args.Raw)

	snap, ctrl, err := e.openConversation(ctx, p)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	input := NewChatCLI()
	defer input.Close()

	s := &chatSession{env: e, doc: snap.Document, ctrl: ctrl, chunks: snap.Chunks}
	return s.run(ctx, input)
}

// run is the read-eval loop. It returns nil on /quit, Ctrl+C or EOF.
func (s *chatSession) run(ctx context.Context, in lineReader) error {
	e := s.env
	if !e.Quiet {
		s.printWelcome()
	}

	for {
		line, err := in.ReadInput(chatPrompt, s.ctrl.Draft())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				e.printf("\n")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			s.ctrl.SetDraft("")
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}
		if strings.HasPrefix(line, "/") {
			if !s.handleSlashCommand(ctx, line) {
				return nil
			}
			continue
		}

		s.ask(ctx, line)
	}
}

// ask submits one question. Ctrl+C while waiting cancels the request only.
func (s *chatSession) ask(ctx context.Context, question string) {
	e := s.env

	s.ctrl.SetDraft(question)
	req, err := s.ctrl.Submit()
	switch {
	case errors.Is(err, conversation.ErrNotReady):
		e.printf("%s\n", WarningStyle.Render(conversation.IndexingNotice))
		return
	case err != nil:
		e.printf("%s %v\n", ErrorStyle.Render("[Error]"), err)
		return
	}

	e.printf("%s\n", DimStyle.Render("Thinking... (Ctrl+C to cancel)"))
	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	out := conversation.Send(sendCtx, e.Client, req)
	stop()

	s.ctrl.Resolve(out)
	if out.Err != nil {
		// The restored draft pre-fills the next prompt, except after Ctrl+C.
		if errors.Is(out.Err, context.Canceled) {
			s.ctrl.SetDraft("")
			e.printf("%s\n", WarningStyle.Render("[Cancelled]"))
			return
		}
		e.printf("%s %s\n", ErrorStyle.Render("[Error]"), s.ctrl.Notice())
		if errors.Is(out.Err, api.ErrUnauthorized) {
			e.printf("%s\n", DimStyle.Render("Your session ended. Run `docent login` and try again."))
		}
		return
	}

	history := s.ctrl.History()
	entry := history[len(history)-1]
	e.cacheEntry(s.doc, entry)
	e.printf("%s\n", AnswerStyle.Render("Docent:"))
	e.printf("%s", e.renderMarkdown(entry.Answer))
	if n := len(entry.Contexts); n > 0 {
		e.printf("%s\n", DimStyle.Render(fmt.Sprintf("%d source excerpt(s). Type /sources to read them.", n)))
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand runs one /command and reports whether to continue.
func (s *chatSession) handleSlashCommand(ctx context.Context, line string) bool {
	e := s.env
	fields := strings.Fields(line)
	cmd, rest := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "/quit", "/q", "/exit":
		return false
	case "/help", "/h", "/?":
		s.printHelp()
	case "/provider", "/p":
		s.switchProvider(rest)
	case "/model", "/m":
		s.switchModel(rest)
	case "/models":
		s.printModels()
	case "/sources":
		s.printSources()
	case "/chunks":
		s.printDocChunks(ctx)
	case "/history":
		for _, entry := range s.ctrl.History() {
			e.printEntry(entry)
		}
	case "/refresh", "/r":
		s.refresh(ctx)
	default:
		e.printf("%s unknown command %s (try /help)\n", ErrorStyle.Render("[Error]"), cmd)
	}
	return true
}

func (s *chatSession) switchProvider(args []string) {
	e := s.env
	sel := s.ctrl.Selection()
	if len(args) == 0 {
		e.printf("Provider: %s\n", sel.Provider().Label())
		return
	}
	p, err := catalog.Parse(args[0])
	if err != nil {
		e.printf("%s %v\n", ErrorStyle.Render("[Error]"), err)
		return
	}
	s.ctrl.SetSelection(sel.SelectProvider(p))
	s.printSelection()
}

func (s *chatSession) switchModel(args []string) {
	e := s.env
	sel := s.ctrl.Selection()
	if len(args) == 0 {
		e.printf("Model: %s\n", catalog.ModelLabel(sel.Provider(), sel.Model()))
		return
	}
	next, err := sel.SelectModel(args[0])
	if err != nil {
		e.printf("%s %v (see /models)\n", ErrorStyle.Render("[Error]"), err)
		return
	}
	s.ctrl.SetSelection(next)
	s.printSelection()
}

func (s *chatSession) printModels() {
	sel := s.ctrl.Selection()
	for _, m := range catalog.Models(sel.Provider()) {
		marker := "  "
		if m.ID == sel.Model() {
			marker = "* "
		}
		s.env.printf("%s%-28s %s\n", marker, m.ID, DimStyle.Render(m.Label))
	}
}

func (s *chatSession) printSelection() {
	e := s.env
	sel := s.ctrl.Selection()
	e.printf("%s %s / %s\n", SuccessStyle.Render("[OK]"),
		sel.Provider().Label(), catalog.ModelLabel(sel.Provider(), sel.Model()))
	if !s.ctrl.Configured() {
		e.printf("%s\n", WarningStyle.Render(fmt.Sprintf("No API key configured for %s.", sel.Provider().Label())))
	}
}

func (s *chatSession) printSources() {
	history := s.ctrl.History()
	if len(history) == 0 || len(history[len(history)-1].Contexts) == 0 {
		s.env.printf("%s\n", DimStyle.Render("The last answer has no source excerpts."))
		return
	}
	s.env.printChunks(history[len(history)-1].Contexts, 0)
}

func (s *chatSession) printDocChunks(ctx context.Context) {
	e := s.env
	chunks, err := e.Client.Chunks(ctx, s.doc.ID)
	if err != nil {
		e.printf("%s %s\n", ErrorStyle.Render("[Error]"), errorText(err))
		return
	}
	s.chunks = chunks
	if len(chunks) == 0 {
		e.printf("%s\n", DimStyle.Render("No chunks yet."))
		return
	}
	e.printChunks(chunks, 300)
}

// refresh re-reads the document and enables questions once it is indexed.
func (s *chatSession) refresh(ctx context.Context) {
	e := s.env
	doc, err := e.Client.Document(ctx, s.doc.ID)
	if err != nil {
		e.printf("%s %s\n", ErrorStyle.Render("[Error]"), errorText(err))
		return
	}
	s.doc = *doc
	e.cacheDocuments(*doc)
	if s.ctrl.Readiness().Update(*doc) {
		e.printf("%s Indexing finished. Ask away.\n", SuccessStyle.Render("[OK]"))
		return
	}
	if s.ctrl.Readiness().Ready() {
		e.printf("Document is indexed.\n")
		return
	}
	e.printf("%s\n", WarningStyle.Render("Still indexing."))
}

// =============================================================================
// OUTPUT
// =============================================================================

func (s *chatSession) printWelcome() {
	e := s.env
	e.printf("%s\n", TitleStyle.Render("docent chat: "+s.doc.OriginalName))
	s.printSelection()
	if !s.ctrl.Readiness().Ready() {
		e.printf("%s\n", WarningStyle.Render(conversation.IndexingNotice))
	}
	if history := s.ctrl.History(); len(history) > 0 {
		e.printf("%s\n", DimStyle.Render(fmt.Sprintf("%d earlier exchange(s). Type /history to read them. Last asked:", len(history))))
		e.printf("  %s\n", util.Truncate(util.FirstLine(history[len(history)-1].Question), 72))
	}
	e.printf("%s\n\n", DimStyle.Render("Type a question, /help for commands, /quit to leave."))
}

func (s *chatSession) printHelp() {
	e := s.env
	e.printf("%s\n", SectionStyle.Render("Commands"))
	for _, row := range [][2]string{
		{"/provider [name]", "show or switch provider"},
		{"/model [id]", "show or switch model"},
		{"/models", "list the provider's models"},
		{"/sources", "source excerpts of the last answer"},
		{"/chunks", "the document's chunks"},
		{"/history", "reprint the conversation"},
		{"/refresh", "re-check indexing"},
		{"/quit", "leave"},
	} {
		e.printf("  %s %s\n", RenderLabel(row[0]), DimStyle.Render(row[1]))
	}
}
