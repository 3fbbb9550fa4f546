// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"sync"

	"github.com/jeranaias/docent-tui/internal/api"
)

// IndexingNotice is shown in place of the input while a document is not ready.
const IndexingNotice = "This document is still being indexed. Questions are disabled until indexing finishes (ctrl+r to refresh)."

// Readiness tracks the indexed flag of the loaded document. It is never
// polled; callers refresh it by re-fetching the document.
type Readiness struct {
	mu      sync.RWMutex
	indexed bool
}

// NewReadiness returns a tracker seeded from a document.
func NewReadiness(doc api.Document) *Readiness {
	return &Readiness{indexed: doc.Indexed}
}

// Ready reports whether questions may be submitted.
func (r *Readiness) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexed
}

// Update applies a re-fetched document and reports whether readiness changed.
func (r *Readiness) Update(doc api.Document) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := r.indexed != doc.Indexed
	r.indexed = doc.Indexed
	return changed
}
