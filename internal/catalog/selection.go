// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import "fmt"

// =============================================================================
// ACCOUNT SETTINGS
// =============================================================================

// Settings are the account-level LLM defaults as reported by the backend.
type Settings struct {
	PreferredProvider string
	ModelName         string
	Configured        map[Provider]bool
}

// =============================================================================
// SELECTION
// =============================================================================

// Selection is the active (provider, model) pair of one conversation.
// The zero value is not valid; obtain one from Initialize or Default.
// Every method returns a new Selection, so the pair is never half-updated.
type Selection struct {
	provider Provider
	model    string
}

// Default returns the first provider with its default model.
func Default() Selection {
	p := FirstProvider()
	return Selection{provider: p, model: DefaultModel(p).ID}
}

// Initialize seeds a selection from account settings.
//
// The provider is the preferred provider, or the first catalog provider when
// that is empty or unknown. The model is the account model name when it is
// non-empty and offered by that provider, otherwise the provider default.
func Initialize(s Settings) Selection {
	p, err := Parse(s.PreferredProvider)
	if err != nil {
		p = FirstProvider()
	}
	sel := Selection{provider: p, model: DefaultModel(p).ID}
	if s.ModelName != "" && Offers(p, s.ModelName) {
		sel.model = s.ModelName
	}
	return sel
}

// Provider returns the active provider.
func (s Selection) Provider() Provider { return s.provider }

// Model returns the active model id.
func (s Selection) Model() string { return s.model }

// Valid reports whether the pair is drawn from the catalog.
func (s Selection) Valid() bool {
	return Offers(s.provider, s.model)
}

// SelectProvider switches to p, keeping the current model only when p offers
// it; otherwise the model resets to p's default. Unknown providers leave the
// selection unchanged.
func (s Selection) SelectProvider(p Provider) Selection {
	if !Known(p) {
		return s
	}
	if Offers(p, s.model) {
		return Selection{provider: p, model: s.model}
	}
	return Selection{provider: p, model: DefaultModel(p).ID}
}

// SelectModel switches the model within the active provider.
func (s Selection) SelectModel(id string) (Selection, error) {
	if !Offers(s.provider, id) {
		return s, fmt.Errorf("%w: %s does not offer %q", ErrUnknownModel, s.provider.Label(), id)
	}
	return Selection{provider: s.provider, model: id}, nil
}

// NextProvider cycles to the following provider in catalog order.
func (s Selection) NextProvider() Selection {
	providers := Providers()
	for i, p := range providers {
		if p == s.provider {
			return s.SelectProvider(providers[(i+1)%len(providers)])
		}
	}
	return s.SelectProvider(FirstProvider())
}

// NextModel cycles to the following model of the active provider.
func (s Selection) NextModel() Selection {
	models := Models(s.provider)
	if len(models) == 0 {
		return s
	}
	i := indexOf(s.provider, s.model)
	return Selection{provider: s.provider, model: models[(i+1)%len(models)].ID}
}

// PrevProvider cycles to the preceding provider in catalog order.
func (s Selection) PrevProvider() Selection {
	providers := Providers()
	for i, p := range providers {
		if p == s.provider {
			return s.SelectProvider(providers[(i+len(providers)-1)%len(providers)])
		}
	}
	return s.SelectProvider(FirstProvider())
}

// PrevModel cycles to the preceding model of the active provider.
func (s Selection) PrevModel() Selection {
	models := Models(s.provider)
	if len(models) == 0 {
		return s
	}
	i := indexOf(s.provider, s.model)
	return Selection{provider: s.provider, model: models[(i+len(models)-1)%len(models)].ID}
}

// Configured reports whether the active provider has an API key configured
// for the account. It is informational; callers must not block on it.
func (s Selection) Configured(settings Settings) bool {
	return settings.Configured[s.provider]
}

// String renders the selection for status lines.
func (s Selection) String() string {
	return s.provider.Label() + " / " + ModelLabel(s.provider, s.model)
}
