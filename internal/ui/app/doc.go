// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the root Bubble Tea model. It owns screen routing and the
// toast stack.
//
// On start the held credential is checked by the session gate while a
// loading screen is shown; the outcome routes to the document list or the
// sign-in form. The model subscribes to the session store, so a sign-out or
// a 401 on any request returns every protected screen to sign-in.
//
// # Key Types
//
//   - Model: the root model handed to tea.NewProgram
//   - State: which screen is active
//   - Options: backend client, session gate, cache and display preferences
//
// # Usage
//
//	m := app.New(app.Options{Gate: gate, Client: client, Theme: theme})
//	defer m.Shutdown()
//	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
package app
