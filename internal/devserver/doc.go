// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is an in-memory stand-in for the docent backend.
//
// It serves the same JSON API the client speaks so the TUI and CLI can be
// exercised locally without the document-indexing backend. Answers are
// canned: the server never extracts text beyond splitting plain-text
// uploads into paragraphs, and never calls an LLM.
//
// # Endpoints
//
//   - POST   /api/auth/signup, /api/auth/login
//   - GET    /api/auth/verify, /api/auth/me
//   - GET    /api/account, DELETE /api/account
//   - PUT    /api/account/profile, /api/account/password, /api/account/llm
//   - GET    /api/documents, POST /api/documents/upload
//   - GET    /api/documents/{id}, DELETE /api/documents/{id}
//   - GET    /api/documents/{id}/chunks
//   - GET    /api/chat/history/{documentId}, POST /api/chat/{documentId}
//
// # Key Types
//
//   - Server: chi router, middleware chain and in-memory state
//   - Options: listen address, signing secret, indexing delay
//   - Seed: users and documents loaded from a TOML file at startup
//
// # Usage
//
//	srv := devserver.New(devserver.Options{Addr: ":5000"})
//	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
//		log.Fatal(err)
//	}
package devserver
