// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the authenticated identity of the running client.
//
// A single Store owns the session state. Only the Gate mutates it: sign-in,
// sign-up, sign-out, verification and the global 401 handler. Everything else
// reads it through Current or Subscribe.
//
// # Key Types
//
//   - Session: user, token and authentication flags, always consistent
//   - Store: process-wide state with ordered change notification
//   - Gate: verification and redirect decisions for protected views
//
// # Usage
//
//	store := session.NewStore()
//	defer store.Close()
//	gate := session.NewGate(store, client, creds)
//	client.OnUnauthorized(gate.HandleUnauthorized)
//
//	switch decision, _ := gate.Check(ctx); decision {
//	case session.Allowed:
//	    // render the protected view
//	case session.RedirectSignIn:
//	    // show sign-in
//	}
package session
