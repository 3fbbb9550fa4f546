// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// PROVIDERS AND MODELS
// =============================================================================

// Provider identifies an LLM provider known to the backend.
type Provider string

const (
	OpenAI Provider = "openai"
	Gemini Provider = "gemini"
	Claude Provider = "claude"
	Groq   Provider = "groq"
)

// Model is one selectable model of a provider.
type Model struct {
	ID    string
	Label string
}

// entry is one row of the catalog table.
type entry struct {
	provider Provider
	label    string
	models   []Model // first entry is the provider default
}

// table is ordered; the first provider is the global fallback.
var table = []entry{
	{OpenAI, "OpenAI", []Model{
		{"gpt-4o-mini", "GPT-4o mini"},
		{"gpt-4o", "GPT-4o"},
	}},
	{Gemini, "Google Gemini", []Model{
		{"gemini-1.5-flash-latest", "Gemini 1.5 Flash"},
		{"gemini-1.5-pro-latest", "Gemini 1.5 Pro"},
	}},
	{Claude, "Anthropic Claude", []Model{
		{"claude-3-5-sonnet-20241022", "Claude 3.5 Sonnet"},
		{"claude-3-opus-20240229", "Claude 3 Opus"},
	}},
	{Groq, "Groq", []Model{
		{"llama3-70b-8192", "Llama 3 70B"},
		{"llama-3.1-8b-instant", "Llama 3.1 8B Instant"},
	}},
}

// Errors returned by Parse and Selection.SelectModel.
var (
	ErrUnknownProvider = errors.New("unknown LLM provider")
	ErrUnknownModel    = errors.New("model not offered by provider")
)

var titleCaser = cases.Title(language.English)

// Providers returns all providers in catalog order.
func Providers() []Provider {
	out := make([]Provider, len(table))
	for i, e := range table {
		out[i] = e.provider
	}
	return out
}

// FirstProvider is the fallback when account settings name no known provider.
func FirstProvider() Provider {
	return table[0].provider
}

func lookup(p Provider) (entry, bool) {
	for _, e := range table {
		if e.provider == p {
			return e, true
		}
	}
	return entry{}, false
}

// Known reports whether p is in the catalog.
func Known(p Provider) bool {
	_, ok := lookup(p)
	return ok
}

// Parse normalises user or server input into a known provider.
func Parse(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !Known(p) {
		return "", fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownProvider, s, providerList())
	}
	return p, nil
}

func providerList() string {
	names := make([]string, len(table))
	for i, e := range table {
		names[i] = string(e.provider)
	}
	return strings.Join(names, ", ")
}

// Label returns the display name of p. Unknown providers are title-cased.
func (p Provider) Label() string {
	if e, ok := lookup(p); ok {
		return e.label
	}
	return titleCaser.String(string(p))
}

// Models returns the catalog models of p, default first. Nil when unknown.
func Models(p Provider) []Model {
	e, ok := lookup(p)
	if !ok {
		return nil
	}
	out := make([]Model, len(e.models))
	copy(out, e.models)
	return out
}

// DefaultModel returns the first catalog model of p.
func DefaultModel(p Provider) Model {
	e, ok := lookup(p)
	if !ok {
		return Model{}
	}
	return e.models[0]
}

// Offers reports whether model id belongs to p's catalog.
func Offers(p Provider, id string) bool {
	return indexOf(p, id) >= 0
}

// ModelLabel returns the display label for id under p, or id itself.
func ModelLabel(p Provider, id string) string {
	e, ok := lookup(p)
	if !ok {
		return id
	}
	for _, m := range e.models {
		if m.ID == id {
			return m.Label
		}
	}
	return id
}

func indexOf(p Provider, id string) int {
	e, ok := lookup(p)
	if !ok {
		return -1
	}
	for i, m := range e.models {
		if m.ID == id {
			return i
		}
	}
	return -1
}
