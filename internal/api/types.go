// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
	"strconv"
)

// =============================================================================
// IDENTITY
// =============================================================================

// User is the authenticated account owner.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// DisplayName returns the name, or the email when no name is set.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the signup request body.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// =============================================================================
// ACCOUNT
// =============================================================================

// LLMSettings are the account-level LLM defaults. API keys are never
// returned, only whether each provider has one.
type LLMSettings struct {
	PreferredProvider string `json:"preferred_provider"`
	ModelName         string `json:"model_name"`
	OpenAIConfigured  bool   `json:"openai_configured"`
	GeminiConfigured  bool   `json:"gemini_configured"`
	ClaudeConfigured  bool   `json:"claude_configured"`
	GroqConfigured    bool   `json:"groq_configured"`
}

// ConfiguredMap returns provider name -> key configured.
func (s LLMSettings) ConfiguredMap() map[string]bool {
	return map[string]bool{
		"openai": s.OpenAIConfigured,
		"gemini": s.GeminiConfigured,
		"claude": s.ClaudeConfigured,
		"groq":   s.GroqConfigured,
	}
}

// Account is the GET /account payload.
type Account struct {
	User User        `json:"user"`
	LLM  LLMSettings `json:"llm"`
}

// ProfileUpdate is the PUT /account/profile body.
type ProfileUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PasswordUpdate is the PUT /account/password body.
type PasswordUpdate struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// LLMUpdate is the PUT /account/llm body. Nil fields are omitted; a non-nil
// empty key clears the stored key.
type LLMUpdate struct {
	Provider     string  `json:"provider,omitempty"`
	ModelName    string  `json:"model_name,omitempty"`
	OpenAIAPIKey *string `json:"openai_api_key,omitempty"`
	GeminiAPIKey *string `json:"gemini_api_key,omitempty"`
	ClaudeAPIKey *string `json:"claude_api_key,omitempty"`
	GroqAPIKey   *string `json:"groq_api_key,omitempty"`
}

// SetKey sets the API key field for provider. Unknown providers are ignored.
func (u *LLMUpdate) SetKey(provider, key string) {
	k := key
	switch provider {
	case "openai":
		u.OpenAIAPIKey = &k
	case "gemini":
		u.GeminiAPIKey = &k
	case "claude":
		u.ClaudeAPIKey = &k
	case "groq":
		u.GroqAPIKey = &k
	}
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// Document is an uploaded document.
type Document struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id,omitempty"`
	Filename     string `json:"filename,omitempty"`
	OriginalName string `json:"original_name"`
	FileSize     int64  `json:"file_size"`
	UploadDate   string `json:"upload_date,omitempty"`
	Indexed      bool   `json:"indexed"`
}

// Chunk is one text segment of a document. Metadata is passed through
// verbatim (page, source, ...).
type Chunk struct {
	ID       int64          `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MetaString renders a metadata value for display, or "" when absent.
func (c Chunk) MetaString(key string) string {
	v, ok := c.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// =============================================================================
// CHAT
// =============================================================================

// HistoryEntry is one completed question/answer exchange.
type HistoryEntry struct {
	ID        int64   `json:"id"`
	Question  string  `json:"question"`
	Answer    string  `json:"answer"`
	CreatedAt string  `json:"created_at"`
	Contexts  []Chunk `json:"contexts,omitempty"`
}

// AskRequest is the POST /chat/:documentId body. Empty Provider or
// ModelName are omitted and the backend falls back to account defaults.
type AskRequest struct {
	Question  string `json:"question"`
	Provider  string `json:"provider,omitempty"`
	ModelName string `json:"model_name,omitempty"`
}

// AskResponse is a successful answer.
type AskResponse struct {
	ChatID    int64   `json:"chat_id"`
	Answer    string  `json:"answer"`
	CreatedAt string  `json:"created_at"`
	Contexts  []Chunk `json:"contexts,omitempty"`
}

// messageResponse is the {"message": "..."} envelope of mutations.
type messageResponse struct {
	Message string `json:"message"`
}
