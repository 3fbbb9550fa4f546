// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/jeranaias/docent-tui/internal/util"
)

// =============================================================================
// CREDENTIAL TYPE
// =============================================================================

// Credential is the persisted session token.
type Credential struct {
	Token   string    `json:"token"`
	Email   string    `json:"email,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// ErrNoCredential is returned by Load when nothing is stored.
var ErrNoCredential = errors.New("no stored credential")

// CredentialStore persists one credential per backend.
type CredentialStore interface {
	Load() (Credential, error)
	Save(Credential) error
	Delete() error
}

// KeyringService is the OS keychain service name.
const KeyringService = "docent"

// =============================================================================
// KEYRING STORE
// =============================================================================

// KeyringStore keeps the credential in the OS keychain, keyed by API host.
type KeyringStore struct {
	Account string
}

// NewKeyringStore creates a keychain store for the given API host.
func NewKeyringStore(host string) *KeyringStore {
	return &KeyringStore{Account: host}
}

// Load reads the credential from the keychain.
func (s *KeyringStore) Load() (Credential, error) {
	secret, err := keyring.Get(KeyringService, s.Account)
	if errors.Is(err, keyring.ErrNotFound) {
		return Credential{}, ErrNoCredential
	}
	if err != nil {
		return Credential{}, fmt.Errorf("keyring read failed: %w", err)
	}
	return decodeCredential([]byte(secret))
}

// Save writes the credential to the keychain.
func (s *KeyringStore) Save(c Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	if err := keyring.Set(KeyringService, s.Account, string(data)); err != nil {
		return fmt.Errorf("keyring write failed: %w", err)
	}
	return nil
}

// Delete removes the credential. Deleting nothing is not an error.
func (s *KeyringStore) Delete() error {
	err := keyring.Delete(KeyringService, s.Account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete failed: %w", err)
	}
	return nil
}

// available probes the keychain. A missing entry still proves it works.
func (s *KeyringStore) available() bool {
	_, err := keyring.Get(KeyringService, s.Account)
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps credentials in a JSON file (mode 0600), one per API host.
type FileStore struct {
	Path    string
	Account string
}

// NewFileStore creates a file store.
func NewFileStore(path, host string) *FileStore {
	return &FileStore{Path: path, Account: host}
}

func (s *FileStore) readAll() (map[string]Credential, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Credential{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	all := map[string]Credential{}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("corrupt credential file %s: %w", s.Path, err)
	}
	return all, nil
}

func (s *FileStore) writeAll(all map[string]Credential) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return util.AtomicWriteFile(s.Path, data, 0600)
}

// Load reads the credential for this host.
func (s *FileStore) Load() (Credential, error) {
	all, err := s.readAll()
	if err != nil {
		return Credential{}, err
	}
	c, ok := all[s.Account]
	if !ok || c.Token == "" {
		return Credential{}, ErrNoCredential
	}
	return c, nil
}

// Save stores the credential for this host, keeping other hosts' entries.
func (s *FileStore) Save(c Credential) error {
	all, err := s.readAll()
	if err != nil {
		all = map[string]Credential{}
	}
	all[s.Account] = c
	return s.writeAll(all)
}

// Delete removes this host's credential.
func (s *FileStore) Delete() error {
	all, err := s.readAll()
	if err != nil {
		return err
	}
	if _, ok := all[s.Account]; !ok {
		return nil
	}
	delete(all, s.Account)
	return s.writeAll(all)
}

// =============================================================================
// SELECTION
// =============================================================================

// NewCredentialStore returns the configured store. "keyring" falls back to
// the file store when no OS keychain is reachable.
func NewCredentialStore(kind, host, tokenFile string) CredentialStore {
	if kind == "keyring" {
		ks := NewKeyringStore(host)
		if ks.available() {
			return ks
		}
		log.Printf("OS keyring unavailable, storing credentials in %s", tokenFile)
	}
	return NewFileStore(tokenFile, host)
}

func decodeCredential(data []byte) (Credential, error) {
	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return Credential{}, fmt.Errorf("corrupt stored credential: %w", err)
	}
	if c.Token == "" {
		return Credential{}, ErrNoCredential
	}
	return c, nil
}
