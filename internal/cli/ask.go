// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One question about one document.
//
// Examples:
//   docent ask 12 "What is the notice period?"
//   docent ask 12 What is the notice period --provider groq
//   docent ask 12 "Summarise section 4" --model gpt-4o --json

package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/conversation"
	"github.com/jeranaias/docent-tui/internal/validate"
)

// openConversation loads a document's chat and applies the provider and
// model overrides. Overrides given as flags must be valid; those from the
// config file are applied only when the catalog allows them.
func (e *Env) openConversation(ctx context.Context, p *ArgParser) (*conversation.Snapshot, *conversation.Controller, error) {
	id, err := ParseDocumentID(p.Positional(0))
	if err != nil {
		return nil, nil, err
	}
	if _, err := e.requireSession(ctx); err != nil {
		return nil, nil, err
	}

	provider := p.Flag("provider")
	model := p.Flag("model")
	if provider != "" {
		if _, errs := validate.LLMChoice(provider, model); errs.Any() {
			return nil, nil, errs
		}
	}

	snap, err := conversation.Load(ctx, e.Client, id)
	if err != nil {
		return nil, nil, err
	}
	e.cacheTranscript(snap.Document, snap.History)

	if provider == "" && model != "" {
		if _, errs := validate.LLMChoice(snap.Account.LLM.PreferredProvider, model); errs.Any() {
			return nil, nil, errs
		}
	}
	if provider == "" && model == "" {
		provider, model = e.Config.Chat.Provider, e.Config.Chat.Model
	}
	return snap, conversation.NewController(snap, provider, model), nil
}

// Ask sends one question and prints the answer.
func (e *Env) Ask(ctx context.Context, args Args) error {
	p := NewArgParser(args.Raw)

	question := JoinPositionalArgs(p, 1)
	if question == "" {
		return ErrMissingArgument("question", `docent ask 12 "What is the notice period?"`)
	}

	snap, ctrl, err := e.openConversation(ctx, p)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	sel := ctrl.Selection()
	if !ctrl.Configured() {
		e.notef("%s\n", WarningStyle.Render(fmt.Sprintf("No API key configured for %s. Add one with `docent account llm --%s -`.",
			sel.Provider().Label(), keyFlag(sel.Provider()))))
	}

	ctrl.SetDraft(question)
	req, err := ctrl.Submit()
	if err != nil {
		return err
	}

	e.notef("%s\n", DimStyle.Render(fmt.Sprintf("Asking %s about %s...", sel, snap.Document.OriginalName)))
	out := conversation.Send(ctx, e.Client, req)
	ctrl.Resolve(out)
	if out.Err != nil {
		return out.Err
	}

	history := ctrl.History()
	entry := history[len(history)-1]
	e.cacheEntry(snap.Document, entry)

	return e.emit("ask", out.Response, func() {
		e.printEntry(entry)
	})
}

// =============================================================================
// CACHE WRITE-THROUGH
// =============================================================================

func (e *Env) cacheTranscript(doc api.Document, history []api.HistoryEntry) {
	if e.Cache == nil {
		return
	}
	if err := e.Cache.ReplaceHistory(doc, history); err != nil {
		log.Printf("cache: %v", err)
	}
}

func (e *Env) cacheEntry(doc api.Document, entry api.HistoryEntry) {
	if e.Cache == nil {
		return
	}
	if err := e.Cache.PutDocuments(doc); err != nil {
		log.Printf("cache: %v", err)
		return
	}
	if err := e.Cache.AppendEntry(doc.ID, entry); err != nil {
		log.Printf("cache: %v", err)
	}
}
