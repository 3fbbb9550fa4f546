// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"

	"github.com/jeranaias/docent-tui/internal/api"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is a snapshot of the client identity. IsAuthenticated is true only
// after a successful verify, login or signup.
type Session struct {
	User            *api.User
	Token           string
	IsAuthenticated bool
	IsLoading       bool
}

// clone copies the user so readers never share the store's pointer.
func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// =============================================================================
// STORE
// =============================================================================

// Store is the process-wide session holder. Transitions are serialized and
// every subscriber observes each one in order.
type Store struct {
	// writeMu serializes transitions together with their notification.
	writeMu sync.Mutex

	mu     sync.RWMutex
	state  Session
	subs   map[int]func(Session)
	nextID int
	closed bool
}

// NewStore creates an empty, unauthenticated store.
func NewStore() *Store {
	return &Store{subs: make(map[int]func(Session))}
}

// Current returns a copy of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers fn for every subsequent transition and returns the
// function that removes it. fn runs on the writer's goroutine, outside the
// state lock, and must not write to the store.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close ends the store's lifecycle. Subscribers are dropped and later
// transitions are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]func(Session))
}

// update applies one transition and notifies subscribers. It reports false
// when the store is closed.
func (s *Store) update(fn func(*Session)) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	fn(&s.state)
	snapshot := s.state.clone()
	subs := make([]func(Session), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if sub, ok := s.subs[id]; ok {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot.clone())
	}
	return true
}

// setAuthenticated sets user and token together.
func (s *Store) setAuthenticated(user api.User, token string) {
	s.update(func(st *Session) {
		u := user
		*st = Session{User: &u, Token: token, IsAuthenticated: true}
	})
}

// setPending records a held but unverified token.
func (s *Store) setPending(token string) {
	s.update(func(st *Session) {
		*st = Session{Token: token, IsLoading: true}
	})
}

// clear drops user and token together.
func (s *Store) clear() {
	s.update(func(st *Session) {
		*st = Session{}
	})
}

// setUser replaces the profile of an authenticated session.
func (s *Store) setUser(user api.User) {
	s.update(func(st *Session) {
		if !st.IsAuthenticated {
			return
		}
		u := user
		st.User = &u
	})
}
