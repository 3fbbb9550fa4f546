// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/validate"
)

var titleCaser = cases.Title(language.English)

// ============================================================================
// AUTH
// ============================================================================

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := validate.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if msg := validate.Email(email); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validate.Password(req.Password); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not create account")
		return
	}
	u, err := s.store.createUser(email, strings.TrimSpace(req.Name), hash, s.now())
	if errors.Is(err, errEmailTaken) {
		writeError(w, http.StatusBadRequest, "Email is already registered")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not create account")
		return
	}
	s.writeAuth(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := validate.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	id, hash, ok := s.store.credentials(email)
	if !ok || !checkPassword(hash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	u, err := s.store.user(id)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.writeAuth(w, http.StatusOK, u)
}

func (s *Server) writeAuth(w http.ResponseWriter, status int, u api.User) {
	token, err := s.issueToken(u.ID, u.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, status, api.AuthResponse{Token: token, User: u})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.user(userID(r))
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]api.User{"user": u})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.user(userID(r))
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ============================================================================
// ACCOUNT
// ============================================================================

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.store.account(userID(r), s.opts.EnvKeys)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req api.ProfileUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := validate.NormalizeEmail(req.Email)
	if msg := validate.Email(email); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	id := userID(r)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		current, err := s.store.user(id)
		if err != nil {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		name = current.Name
	}
	u, err := s.store.updateProfile(id, name, email)
	switch {
	case errors.Is(err, errEmailTaken):
		writeError(w, http.StatusBadRequest, "Email is already in use")
	case err != nil:
		writeError(w, http.StatusNotFound, "User not found")
	default:
		writeJSON(w, http.StatusOK, map[string]api.User{"user": u})
	}
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req api.PasswordUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Current and new password are required")
		return
	}
	if msg := validate.Password(req.NewPassword); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	id := userID(r)
	hash, err := s.store.hashOf(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if !checkPassword(hash, req.CurrentPassword) {
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	next, err := s.hashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not update password")
		return
	}
	if err := s.store.setHash(id, next); err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeMessage(w, "Password updated successfully")
}

func (s *Server) handleUpdateLLM(w http.ResponseWriter, r *http.Request) {
	var req api.LLMUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider != "" && !knownProvider(provider) {
		writeError(w, http.StatusBadRequest, "Invalid LLM provider")
		return
	}

	upd := llmUpdate{
		provider: provider,
		model:    strings.TrimSpace(req.ModelName),
		keys: map[string]*string{
			"openai": trimmed(req.OpenAIAPIKey),
			"gemini": trimmed(req.GeminiAPIKey),
			"claude": trimmed(req.ClaudeAPIKey),
			"groq":   trimmed(req.GroqAPIKey),
		},
	}
	settings, err := s.store.updateLLM(userID(r), upd, s.opts.EnvKeys)
	var noKey errNoKey
	switch {
	case errors.As(err, &noKey):
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("No API key configured for provider %s", titleCaser.String(noKey.provider)))
	case err != nil:
		writeError(w, http.StatusNotFound, "User not found")
	default:
		writeJSON(w, http.StatusOK, map[string]api.LLMSettings{"llm": settings})
	}
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required to delete account")
		return
	}

	id := userID(r)
	hash, err := s.store.hashOf(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if !checkPassword(hash, req.Password) {
		writeError(w, http.StatusBadRequest, "Password is incorrect")
		return
	}
	s.store.deleteUser(id)
	writeMessage(w, "Account deleted successfully")
}

func knownProvider(p string) bool {
	for _, k := range providerKeys {
		if k == p {
			return true
		}
	}
	return false
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// ============================================================================
// DOCUMENTS
// ============================================================================

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.store.documentsOf(userID(r), s.now())
	writeJSON(w, http.StatusOK, map[string][]api.Document{"documents": docs})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	doc, err := s.store.document(userID(r), id, s.now())
	if err != nil {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.deleteDocument(userID(r), id); err != nil {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	writeMessage(w, "Document deleted")
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	chunks, err := s.store.chunks(userID(r), id, s.now())
	if err != nil {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]api.Chunk{"chunks": chunks})
}

// pathID parses a numeric URL parameter. Non-numeric ids cannot name a
// document, so they are reported as not found.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "Document not found")
		return 0, false
	}
	return id, true
}

// ============================================================================
// CHAT
// ============================================================================

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}
	history, err := s.store.historyOf(userID(r), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]api.HistoryEntry{"history": history})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}
	var req api.AskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	uid := userID(r)
	now := s.now()
	contexts, err := s.store.contextsFor(uid, id, maxContexts, now)
	switch {
	case errors.Is(err, errStillIndexed):
		writeError(w, http.StatusConflict, "Document is still being indexed")
		return
	case err != nil:
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}

	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider != "" && !knownProvider(provider) {
		writeError(w, http.StatusBadRequest, "Unsupported LLM provider")
		return
	}
	provider, model, key, err := s.store.chatSettings(uid, provider, s.opts.EnvKeys)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if !knownProvider(provider) {
		writeError(w, http.StatusBadRequest, "Unsupported LLM provider")
		return
	}
	if key == "" {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("No API key configured for provider %s", titleCaser.String(provider)))
		return
	}
	if m := strings.TrimSpace(req.ModelName); m != "" {
		model = m
	}
	if model == "" {
		model = defaultModels[provider]
	}

	entry, err := s.store.appendHistory(uid, id, question, cannedAnswer(question, provider, model, contexts), contexts, now)
	if err != nil {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	writeJSON(w, http.StatusOK, api.AskResponse{
		ChatID:    entry.ID,
		Answer:    entry.Answer,
		CreatedAt: entry.CreatedAt,
		Contexts:  entry.Contexts,
	})
}

// cannedAnswer echoes the question in markdown so renderers have something
// realistic to format.
func cannedAnswer(question, provider, model string, contexts []api.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Development backend** (%s / `%s`)\n\n", provider, model)
	fmt.Fprintf(&b, "You asked: %q\n\n", question)
	if len(contexts) == 0 {
		b.WriteString("This document has no text excerpts to cite.")
		return b.String()
	}
	fmt.Fprintf(&b, "The document opens with:\n\n> %s", firstSentence(contexts[0].Text))
	return b.String()
}

func firstSentence(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if i := strings.IndexAny(s, ".!?"); i >= 0 {
		return s[:i+1]
	}
	return s
}
