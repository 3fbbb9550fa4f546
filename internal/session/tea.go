// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// ChangedMsg carries one session transition into a Bubble Tea program.
type ChangedMsg struct {
	Session Session
}

// Watcher forwards store transitions to a Bubble Tea model. Re-issue Next
// after each ChangedMsg to keep receiving.
type Watcher struct {
	ch          chan Session
	done        chan struct{}
	unsubscribe func()
}

// Watch subscribes to the store. Stop must be called on teardown.
func Watch(store *Store) *Watcher {
	w := &Watcher{
		ch:   make(chan Session, 16),
		done: make(chan struct{}),
	}
	w.unsubscribe = store.Subscribe(func(s Session) {
		select {
		case w.ch <- s:
		case <-w.done:
		}
	})
	return w
}

// Next waits for the following transition.
func (w *Watcher) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-w.ch:
			return ChangedMsg{Session: s}
		case <-w.done:
			return nil
		}
	}
}

// Stop unsubscribes and releases any blocked writer.
func (w *Watcher) Stop() {
	w.unsubscribe()
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}
