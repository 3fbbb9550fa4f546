// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the docent document Q&A backend.
//
// Every request carries the bearer token held by the client, a User-Agent
// and an X-Request-ID. Error bodies of the form {"error": "..."} are mapped
// to *APIError values that match the sentinel errors of this package.
//
// # Key Types
//
//   - Client: backend client with retry for idempotent reads
//   - APIError: non-2xx response with the server's message
//   - Document, Chunk, HistoryEntry, Account: wire types
//
// # Usage
//
//	client := api.New(api.Options{BaseURL: cfg.API.BaseURL})
//	client.SetToken(token)
//	client.OnUnauthorized(gate.HandleUnauthorized)
//
//	docs, err := client.Documents(ctx)
//	if err != nil {
//	    fmt.Println(api.Message(err, "Failed to load documents"))
//	}
//
// # Security
//
// Tokens are never logged. Request logging records method, path, status
// and duration only.
package api
