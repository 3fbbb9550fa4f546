// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
)

// =============================================================================
// AUTH
// =============================================================================

// Signup creates an account and returns its token.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/signup", req, 0, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/login", creds, 0, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify checks the held token and returns its user.
func (c *Client) Verify(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.getJSON(ctx, "/auth/verify", &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Me returns the current user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.getJSON(ctx, "/auth/me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// ACCOUNT
// =============================================================================

// Account returns the profile and LLM settings.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	var out Account
	if err := c.getJSON(ctx, "/account", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes name and email.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.sendJSON(ctx, http.MethodPut, "/account/profile", upd, 0, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// UpdatePassword changes the password and returns the server message.
func (c *Client) UpdatePassword(ctx context.Context, upd PasswordUpdate) (string, error) {
	var out messageResponse
	if err := c.sendJSON(ctx, http.MethodPut, "/account/password", upd, 0, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// UpdateLLM changes provider defaults and API keys.
func (c *Client) UpdateLLM(ctx context.Context, upd LLMUpdate) (*LLMSettings, error) {
	var out struct {
		LLM LLMSettings `json:"llm"`
	}
	if err := c.sendJSON(ctx, http.MethodPut, "/account/llm", upd, 0, &out); err != nil {
		return nil, err
	}
	return &out.LLM, nil
}

// DeleteAccount removes the account and every document it owns.
func (c *Client) DeleteAccount(ctx context.Context, password string) (string, error) {
	var out messageResponse
	body := map[string]string{"password": password}
	if err := c.sendJSON(ctx, http.MethodDelete, "/account", body, 0, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// Documents lists the user's documents, newest first.
func (c *Client) Documents(ctx context.Context) ([]Document, error) {
	var out struct {
		Documents []Document `json:"documents"`
	}
	if err := c.getJSON(ctx, "/documents", &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

// Document fetches one document, including its indexed flag.
func (c *Client) Document(ctx context.Context, id int64) (*Document, error) {
	var out Document
	if err := c.getJSON(ctx, fmt.Sprintf("/documents/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDocument removes a document with its history.
func (c *Client) DeleteDocument(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/documents/%d", id), nil, 0, nil)
}

// Chunks returns the document's text segments in order.
func (c *Client) Chunks(ctx context.Context, id int64) ([]Chunk, error) {
	var out struct {
		Chunks []Chunk `json:"chunks"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/documents/%d/chunks", id), &out); err != nil {
		return nil, err
	}
	return out.Chunks, nil
}

// =============================================================================
// CHAT
// =============================================================================

// History returns the document's exchanges in ascending creation order.
func (c *Client) History(ctx context.Context, documentID int64) ([]HistoryEntry, error) {
	var out struct {
		History []HistoryEntry `json:"history"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/chat/history/%d", documentID), &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// Ask sends one question. It is never retried and is bounded by the chat
// timeout.
func (c *Client) Ask(ctx context.Context, documentID int64, req AskRequest) (*AskResponse, error) {
	var out AskResponse
	path := fmt.Sprintf("/chat/%d", documentID)
	if err := c.sendJSON(ctx, http.MethodPost, path, req, c.chatTimeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
