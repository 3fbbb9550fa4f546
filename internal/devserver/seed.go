// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/validate"
)

// Seed is the startup state loaded from a TOML file:
//
//	[[users]]
//	email = "ada@example.com"
//	name = "Ada"
//	password = "Analytical1"
//	provider = "openai"
//	openai_api_key = "sk-dev"
//
//	  [[users.documents]]
//	  path = "testdata/contract.txt"
type Seed struct {
	Users []SeedUser `toml:"users"`
}

// SeedUser is one account with its documents.
type SeedUser struct {
	Email        string         `toml:"email"`
	Name         string         `toml:"name"`
	Password     string         `toml:"password"`
	Provider     string         `toml:"provider"`
	Model        string         `toml:"model"`
	OpenAIAPIKey string         `toml:"openai_api_key"`
	GeminiAPIKey string         `toml:"gemini_api_key"`
	ClaudeAPIKey string         `toml:"claude_api_key"`
	GroqAPIKey   string         `toml:"groq_api_key"`
	Documents    []SeedDocument `toml:"documents"`
}

// SeedDocument is a file to preload, already indexed.
type SeedDocument struct {
	Path string `toml:"path"`
}

// LoadSeed reads a seed file. Relative document paths resolve against the
// seed file's directory.
func LoadSeed(path string) (*Seed, error) {
	var seed Seed
	if _, err := toml.DecodeFile(path, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range seed.Users {
		for j := range seed.Users[i].Documents {
			p := seed.Users[i].Documents[j].Path
			if p != "" && !filepath.IsAbs(p) {
				seed.Users[i].Documents[j].Path = filepath.Join(base, p)
			}
		}
	}
	return &seed, nil
}

// Load applies seed to the server. Seeded documents are indexed at once.
func (s *Server) Load(seed *Seed) error {
	for _, su := range seed.Users {
		email := validate.NormalizeEmail(su.Email)
		if msg := validate.Email(email); msg != "" {
			return fmt.Errorf("seed user %q: %s", su.Email, msg)
		}
		hash, err := s.hashPassword(su.Password)
		if err != nil {
			return err
		}
		u, err := s.store.createUser(email, su.Name, hash, s.now())
		if err != nil {
			return fmt.Errorf("seed user %q: %w", email, err)
		}

		keys := map[string]string{
			"openai": su.OpenAIAPIKey,
			"gemini": su.GeminiAPIKey,
			"claude": su.ClaudeAPIKey,
			"groq":   su.GroqAPIKey,
		}
		upd := llmUpdate{model: su.Model, keys: make(map[string]*string)}
		for p, k := range keys {
			if k != "" {
				k := k
				upd.keys[p] = &k
			}
		}
		if su.Provider != "" {
			upd.provider = su.Provider
			if !knownProvider(su.Provider) {
				return fmt.Errorf("seed user %q: unknown provider %q", email, su.Provider)
			}
		}
		if _, err := s.store.updateLLM(u.ID, upd, s.opts.EnvKeys); err != nil {
			return fmt.Errorf("seed user %q: %w", email, err)
		}

		for _, sd := range su.Documents {
			data, err := os.ReadFile(sd.Path)
			if err != nil {
				return fmt.Errorf("seed document: %w", err)
			}
			name := filepath.Base(sd.Path)
			if err := api.ValidateUpload(name, int64(len(data))); err != nil {
				return fmt.Errorf("seed document: %w", err)
			}
			s.store.addDocument(u.ID, name, name, int64(len(data)), chunkText(name, data), s.now(), 0)
		}
	}
	return nil
}
