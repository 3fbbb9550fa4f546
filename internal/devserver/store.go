// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/docent-tui/internal/api"
)

// timestampLayout matches the backend's naive-UTC isoformat() output.
const timestampLayout = "2006-01-02T15:04:05.000000"

// Store errors. Handlers map them onto status codes.
var (
	errEmailTaken   = errors.New("email already registered")
	errNoUser       = errors.New("user not found")
	errNoDocument   = errors.New("document not found")
	errStillIndexed = errors.New("document is still being indexed")
)

// providerKeys are the per-provider API key slots in catalog order.
var providerKeys = []string{"openai", "gemini", "claude", "groq"}

// defaultModels is the backend's model fallback when neither the request
// nor the account names one.
var defaultModels = map[string]string{
	"openai": "gpt-4o-mini",
	"gemini": "gemini-1.5-pro-latest",
	"claude": "claude-3-5-sonnet-20241022",
	"groq":   "llama3-70b-8192",
}

// ============================================================================
// RECORDS
// ============================================================================

type user struct {
	id       int64
	email    string
	name     string
	hash     []byte
	created  time.Time
	provider string
	model    string
	keys     map[string]string
}

func (u *user) public() api.User {
	return api.User{
		ID:        u.id,
		Email:     u.email,
		Name:      u.name,
		CreatedAt: u.created.UTC().Format(timestampLayout),
	}
}

// llm mirrors the public LLM settings view; keys are reported only as
// configured flags. envKeys count as configured for every account.
func (u *user) llm(envKeys map[string]string) api.LLMSettings {
	has := func(p string) bool { return u.keys[p] != "" || envKeys[p] != "" }
	return api.LLMSettings{
		PreferredProvider: u.provider,
		ModelName:         u.model,
		OpenAIConfigured:  has("openai"),
		GeminiConfigured:  has("gemini"),
		ClaudeConfigured:  has("claude"),
		GroqConfigured:    has("groq"),
	}
}

type document struct {
	id           int64
	userID       int64
	filename     string
	originalName string
	size         int64
	uploaded     time.Time
	readyAt      time.Time
	chunks       []api.Chunk
}

func (d *document) indexed(now time.Time) bool {
	return !now.Before(d.readyAt)
}

func (d *document) public(now time.Time) api.Document {
	return api.Document{
		ID:           d.id,
		UserID:       d.userID,
		Filename:     d.filename,
		OriginalName: d.originalName,
		FileSize:     d.size,
		UploadDate:   d.uploaded.UTC().Format(timestampLayout),
		Indexed:      d.indexed(now),
	}
}

// ============================================================================
// STORE
// ============================================================================

// store is the server's in-memory state. One counter issues every id so
// ids never collide across record kinds.
type store struct {
	mu        sync.RWMutex
	nextID    int64
	users     map[int64]*user
	documents map[int64]*document
	history   map[int64][]api.HistoryEntry
}

func newStore() *store {
	return &store{
		users:     make(map[int64]*user),
		documents: make(map[int64]*document),
		history:   make(map[int64][]api.HistoryEntry),
	}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *store) byEmailLocked(email string) *user {
	for _, u := range s.users {
		if strings.EqualFold(u.email, email) {
			return u
		}
	}
	return nil
}

// createUser registers a new account with the backend's default settings.
func (s *store) createUser(email, name string, hash []byte, now time.Time) (api.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byEmailLocked(email) != nil {
		return api.User{}, errEmailTaken
	}
	u := &user{
		id:       s.id(),
		email:    email,
		name:     name,
		hash:     hash,
		created:  now,
		provider: "openai",
		model:    defaultModels["openai"],
		keys:     make(map[string]string),
	}
	s.users[u.id] = u
	return u.public(), nil
}

// credentials returns the id and password hash for email.
func (s *store) credentials(email string) (int64, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.byEmailLocked(email)
	if u == nil {
		return 0, nil, false
	}
	return u.id, u.hash, true
}

func (s *store) hashOf(id int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, errNoUser
	}
	return u.hash, nil
}

func (s *store) user(id int64) (api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return api.User{}, errNoUser
	}
	return u.public(), nil
}

func (s *store) account(id int64, envKeys map[string]string) (api.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return api.Account{}, errNoUser
	}
	return api.Account{User: u.public(), LLM: u.llm(envKeys)}, nil
}

func (s *store) updateProfile(id int64, name, email string) (api.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return api.User{}, errNoUser
	}
	if other := s.byEmailLocked(email); other != nil && other.id != id {
		return api.User{}, errEmailTaken
	}
	u.email = email
	u.name = name
	return u.public(), nil
}

func (s *store) setHash(id int64, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return errNoUser
	}
	u.hash = hash
	return nil
}

// llmUpdate is a decoded PUT /account/llm body. Nil keys are untouched.
type llmUpdate struct {
	provider string
	model    string
	keys     map[string]*string
}

// errNoKey carries the provider whose key is missing.
type errNoKey struct{ provider string }

func (e errNoKey) Error() string { return "no API key configured for " + e.provider }

func (s *store) updateLLM(id int64, upd llmUpdate, envKeys map[string]string) (api.LLMSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return api.LLMSettings{}, errNoUser
	}
	// Validate against the keys as they will be, then apply everything.
	if upd.provider != "" {
		key := u.keys[upd.provider]
		if k := upd.keys[upd.provider]; k != nil {
			key = *k
		}
		if key == "" && envKeys[upd.provider] == "" {
			return api.LLMSettings{}, errNoKey{upd.provider}
		}
	}
	for p, k := range upd.keys {
		if k == nil {
			continue
		}
		if *k == "" {
			delete(u.keys, p)
		} else {
			u.keys[p] = *k
		}
	}
	if upd.provider != "" {
		u.provider = upd.provider
	}
	if upd.model != "" {
		u.model = upd.model
	}
	return u.llm(envKeys), nil
}

// chatSettings returns the account's provider, model and key for provider
// (or the account default when provider is empty).
func (s *store) chatSettings(id int64, provider string, envKeys map[string]string) (string, string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return "", "", "", errNoUser
	}
	model := ""
	if provider == "" {
		provider = u.provider
		model = u.model
	}
	key := u.keys[provider]
	if key == "" {
		key = envKeys[provider]
	}
	return provider, model, key, nil
}

// deleteUser removes the account with its documents and history.
func (s *store) deleteUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for docID, d := range s.documents {
		if d.userID == id {
			delete(s.documents, docID)
			delete(s.history, docID)
		}
	}
	delete(s.users, id)
}

// ============================================================================
// DOCUMENTS
// ============================================================================

func (s *store) addDocument(userID int64, filename, original string, size int64, chunks []api.Chunk, now time.Time, delay time.Duration) api.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &document{
		id:           s.id(),
		userID:       userID,
		filename:     filename,
		originalName: original,
		size:         size,
		uploaded:     now,
		readyAt:      now.Add(delay),
	}
	for _, c := range chunks {
		c.ID = s.id()
		d.chunks = append(d.chunks, c)
	}
	s.documents[d.id] = d
	return d.public(now)
}

// documentsOf lists a user's documents newest first.
func (s *store) documentsOf(userID int64, now time.Time) []api.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []*document
	for _, d := range s.documents {
		if d.userID == userID {
			docs = append(docs, d)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].uploaded.Equal(docs[j].uploaded) {
			return docs[i].uploaded.After(docs[j].uploaded)
		}
		return docs[i].id > docs[j].id
	})
	out := make([]api.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.public(now))
	}
	return out
}

func (s *store) ownedLocked(userID, docID int64) (*document, error) {
	d, ok := s.documents[docID]
	if !ok || d.userID != userID {
		return nil, errNoDocument
	}
	return d, nil
}

func (s *store) document(userID, docID int64, now time.Time) (api.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.ownedLocked(userID, docID)
	if err != nil {
		return api.Document{}, err
	}
	return d.public(now), nil
}

func (s *store) deleteDocument(userID, docID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedLocked(userID, docID); err != nil {
		return err
	}
	delete(s.documents, docID)
	delete(s.history, docID)
	return nil
}

// chunks returns a document's chunks once it is indexed; before that the
// backend has none to show.
func (s *store) chunks(userID, docID int64, now time.Time) ([]api.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.ownedLocked(userID, docID)
	if err != nil {
		return nil, err
	}
	if !d.indexed(now) {
		return []api.Chunk{}, nil
	}
	return append([]api.Chunk{}, d.chunks...), nil
}

// ============================================================================
// HISTORY
// ============================================================================

func (s *store) historyOf(userID, docID int64) ([]api.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.ownedLocked(userID, docID); err != nil {
		return nil, err
	}
	return append([]api.HistoryEntry{}, s.history[docID]...), nil
}

// contextsFor returns the excerpts an answer cites: up to limit chunks of
// an indexed document.
func (s *store) contextsFor(userID, docID int64, limit int, now time.Time) ([]api.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.ownedLocked(userID, docID)
	if err != nil {
		return nil, err
	}
	if !d.indexed(now) {
		return nil, errStillIndexed
	}
	if len(d.chunks) < limit {
		limit = len(d.chunks)
	}
	return append([]api.Chunk{}, d.chunks[:limit]...), nil
}

func (s *store) appendHistory(userID, docID int64, question, answer string, contexts []api.Chunk, now time.Time) (api.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedLocked(userID, docID); err != nil {
		return api.HistoryEntry{}, err
	}
	e := api.HistoryEntry{
		ID:        s.id(),
		Question:  question,
		Answer:    answer,
		CreatedAt: now.UTC().Format(timestampLayout),
		Contexts:  contexts,
	}
	s.history[docID] = append(s.history[docID], e)
	return e, nil
}
