// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is where the client looks for the backend by default.
	DefaultAddr = "127.0.0.1:5000"

	// DefaultIndexDelay is how long an upload stays unindexed.
	DefaultIndexDelay = 3 * time.Second

	// MaxRequestBodySize bounds JSON bodies.
	MaxRequestBodySize = 1 * 1024 * 1024

	// maxContexts is the number of excerpts attached to an answer.
	maxContexts = 2
)

// ============================================================================
// SERVER
// ============================================================================

// Options configure a Server. Zero values take the defaults.
type Options struct {
	Addr       string
	Secret     []byte
	TokenTTL   time.Duration
	IndexDelay time.Duration
	BcryptCost int

	// EnvKeys are provider API keys every account may fall back to, like
	// the backend's OPENAI_API_KEY and friends.
	EnvKeys map[string]string

	// Now overrides the clock (tests).
	Now func() time.Time

	// Logger receives request logs; nil uses the standard logger.
	Logger *log.Logger
}

// Server is the development backend.
type Server struct {
	opts   Options
	store  *store
	router chi.Router

	mu     sync.Mutex
	server *http.Server
}

// New builds a server. A missing secret is replaced by a random one, so
// tokens do not survive a restart.
func New(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if len(opts.Secret) == 0 {
		opts.Secret = make([]byte, 32)
		if _, err := rand.Read(opts.Secret); err != nil {
			panic(fmt.Sprintf("devserver: failed to generate secret: %v", err))
		}
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.IndexDelay < 0 {
		opts.IndexDelay = 0
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	s := &Server{
		opts:  opts,
		store: newStore(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) now() time.Time { return s.opts.Now() }

// Handler returns the routed handler with its middleware chain.
func (s *Server) Handler() http.Handler { return s.router }

// setupRoutes configures the router.
func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoveryMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(loggingMiddleware(s.opts.Logger))
	r.Use(middleware.StripSlashes)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/auth/verify", s.handleVerify)
			r.Get("/auth/me", s.handleMe)

			r.Get("/account", s.handleAccount)
			r.Delete("/account", s.handleDeleteAccount)
			r.Put("/account/profile", s.handleUpdateProfile)
			r.Put("/account/password", s.handleUpdatePassword)
			r.Put("/account/llm", s.handleUpdateLLM)

			r.Get("/documents", s.handleDocuments)
			r.Post("/documents/upload", s.handleUpload)
			r.Get("/documents/{id}", s.handleDocument)
			r.Delete("/documents/{id}", s.handleDeleteDocument)
			r.Get("/documents/{id}/chunks", s.handleChunks)

			r.Get("/chat/history/{documentID}", s.handleHistory)
			r.Post("/chat/{documentID}", s.handleAsk)
		})
	})

	s.router = r
}

// Start listens on the configured address and blocks until shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	log.Printf("SERVER_START | addr=%s index_delay=%s", s.opts.Addr, s.opts.IndexDelay)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("devserver: failed to encode response: %v", err)
	}
}

// writeError writes the backend's {"error": msg} envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// errBadJSON is returned by decodeJSON for unreadable bodies.
var errBadJSON = errors.New("Invalid JSON body")

// decodeJSON reads a bounded JSON body into v. An empty body leaves v
// zeroed, matching the backend's get_json(silent=True) handling.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errBadJSON
	}
	return nil
}
