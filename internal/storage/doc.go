// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides local persistence for docent.
//
// It holds the session credential between runs and a sqlite cache of
// documents and their conversations for offline history and export.
//
// # Key Types
//
//   - CredentialStore: Load/Save/Delete of the session token
//   - KeyringStore: OS keychain backed store (service "docent")
//   - FileStore: 0600 JSON file backed store
//   - TranscriptCache: write-through sqlite cache of transcripts
//
// # Usage
//
//	store := storage.NewCredentialStore(cfg.Auth.CredentialStore, client.Host(), tokenFile)
//	cred, err := store.Load()
//
//	cache, err := storage.OpenTranscriptCache(cachePath, client.Host())
//	defer cache.Close()
//	t, err := cache.Transcript(docID)
//
// # Storage Location
//
// Credentials go to the OS keychain or ~/.docent/credentials.json; the
// cache lives in ~/.docent/cache.db.
package storage
