// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/catalog"
)

// Step names one of the initial reads.
type Step string

const (
	StepDocument Step = "document"
	StepHistory  Step = "history"
	StepAccount  Step = "account settings"
	StepChunks   Step = "chunks"
)

// InitError reports the read that failed during Load.
type InitError struct {
	Step Step
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Step, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Loader fetches what a chat view needs.
type Loader interface {
	Document(ctx context.Context, id int64) (*api.Document, error)
	History(ctx context.Context, documentID int64) ([]api.HistoryEntry, error)
	Account(ctx context.Context) (*api.Account, error)
	Chunks(ctx context.Context, id int64) ([]api.Chunk, error)
}

// Snapshot is a complete initial state for one document's chat.
type Snapshot struct {
	Document api.Document
	History  []api.HistoryEntry
	Account  api.Account
	Chunks   []api.Chunk
}

// Settings converts the account's LLM block for the catalog.
func (s *Snapshot) Settings() catalog.Settings {
	configured := make(map[catalog.Provider]bool)
	for name, ok := range s.Account.LLM.ConfiguredMap() {
		configured[catalog.Provider(name)] = ok
	}
	return catalog.Settings{
		PreferredProvider: s.Account.LLM.PreferredProvider,
		ModelName:         s.Account.LLM.ModelName,
		Configured:        configured,
	}
}

// Load issues the four reads concurrently. It returns either a complete
// snapshot or an *InitError naming the first read that failed; the remaining
// reads are cancelled.
func Load(ctx context.Context, loader Loader, documentID int64) (*Snapshot, error) {
	g, ctx := errgroup.WithContext(ctx)
	snap := &Snapshot{}

	g.Go(func() error {
		doc, err := loader.Document(ctx, documentID)
		if err != nil {
			return &InitError{Step: StepDocument, Err: err}
		}
		snap.Document = *doc
		return nil
	})
	g.Go(func() error {
		history, err := loader.History(ctx, documentID)
		if err != nil {
			return &InitError{Step: StepHistory, Err: err}
		}
		snap.History = history
		return nil
	})
	g.Go(func() error {
		account, err := loader.Account(ctx)
		if err != nil {
			return &InitError{Step: StepAccount, Err: err}
		}
		snap.Account = *account
		return nil
	})
	g.Go(func() error {
		chunks, err := loader.Chunks(ctx, documentID)
		if err != nil {
			return &InitError{Step: StepChunks, Err: err}
		}
		snap.Chunks = chunks
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}
