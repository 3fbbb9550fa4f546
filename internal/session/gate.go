// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/storage"
)

// Decision is the outcome of a gate check.
type Decision int

const (
	// Allowed means the protected view may render.
	Allowed Decision = iota
	// RedirectSignIn means the session was cleared and sign-in must show.
	RedirectSignIn
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "redirect-sign-in"
}

// Errors explaining a redirect.
var (
	ErrNoCredential = errors.New("not signed in")
	ErrExpired      = errors.New("session expired")
)

// AuthClient is the subset of the API client the gate needs.
type AuthClient interface {
	SetToken(token string)
	Verify(ctx context.Context) (*api.User, error)
	Me(ctx context.Context) (*api.User, error)
	Login(ctx context.Context, creds api.Credentials) (*api.AuthResponse, error)
	Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error)
}

// Gate performs every session transition.
type Gate struct {
	store  *Store
	client AuthClient
	creds  storage.CredentialStore
	now    func() time.Time
}

// NewGate creates a gate. creds may be nil, in which case nothing persists.
func NewGate(store *Store, client AuthClient, creds storage.CredentialStore) *Gate {
	return &Gate{store: store, client: client, creds: creds, now: time.Now}
}

// Store returns the store the gate writes to.
func (g *Gate) Store() *Store {
	return g.store
}

// =============================================================================
// VERIFICATION
// =============================================================================

// Check verifies the held credential. A missing credential, or a token whose
// exp claim has passed, redirects without a network call. While verification
// is pending the session reports IsLoading.
func (g *Gate) Check(ctx context.Context) (Decision, error) {
	token := g.store.Current().Token
	if token == "" {
		token = g.persistedToken()
	}
	if token == "" {
		g.clear(false)
		return RedirectSignIn, ErrNoCredential
	}
	if g.expired(token) {
		g.clear(true)
		return RedirectSignIn, ErrExpired
	}

	g.store.setPending(token)
	g.client.SetToken(token)

	user, err := g.client.Verify(ctx)
	if err != nil {
		// A rejected token is gone for good; a transport failure keeps it on
		// disk for the next attempt.
		g.clear(errors.Is(err, api.ErrUnauthorized))
		return RedirectSignIn, fmt.Errorf("verification failed: %w", err)
	}

	g.store.setAuthenticated(*user, token)
	return Allowed, nil
}

// HandleUnauthorized is the global 401 handler: it clears the session and the
// persisted credential. Subscribers redirect to sign-in.
func (g *Gate) HandleUnauthorized() {
	log.Printf("session: 401 received, signing out")
	g.clear(true)
}

// =============================================================================
// SIGN IN / SIGN UP / SIGN OUT
// =============================================================================

// SignIn exchanges credentials for a session.
func (g *Gate) SignIn(ctx context.Context, email, password string) (*api.User, error) {
	resp, err := g.client.Login(ctx, api.Credentials{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return nil, err
	}
	g.establish(resp)
	return &resp.User, nil
}

// SignUp creates an account and signs it in.
func (g *Gate) SignUp(ctx context.Context, req api.SignupRequest) (*api.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	resp, err := g.client.Signup(ctx, req)
	if err != nil {
		return nil, err
	}
	g.establish(resp)
	return &resp.User, nil
}

// SignOut clears the session and the persisted credential.
func (g *Gate) SignOut() {
	g.clear(true)
}

// Refresh reloads the profile after it changed.
func (g *Gate) Refresh(ctx context.Context) (*api.User, error) {
	user, err := g.client.Me(ctx)
	if err != nil {
		return nil, err
	}
	g.store.setUser(*user)
	return user, nil
}

func (g *Gate) establish(resp *api.AuthResponse) {
	g.client.SetToken(resp.Token)
	g.store.setAuthenticated(resp.User, resp.Token)
	if g.creds == nil {
		return
	}
	cred := storage.Credential{Token: resp.Token, Email: resp.User.Email, SavedAt: g.now()}
	if err := g.creds.Save(cred); err != nil {
		log.Printf("session: could not persist credential: %v", err)
	}
}

// clear resets client and store; forget also deletes the persisted token.
func (g *Gate) clear(forget bool) {
	g.client.SetToken("")
	g.store.clear()
	if forget && g.creds != nil {
		if err := g.creds.Delete(); err != nil {
			log.Printf("session: could not delete credential: %v", err)
		}
	}
}

func (g *Gate) persistedToken() string {
	if g.creds == nil {
		return ""
	}
	cred, err := g.creds.Load()
	if err != nil {
		if !errors.Is(err, storage.ErrNoCredential) {
			log.Printf("session: could not load credential: %v", err)
		}
		return ""
	}
	return cred.Token
}

// expired reads the exp claim without verifying the signature. Tokens that
// are not JWTs, or carry no exp, are left to the server.
func (g *Gate) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !g.now().Before(exp.Time)
}
