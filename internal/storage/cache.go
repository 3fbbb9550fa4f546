// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/docent-tui/internal/api"
)

// ErrNotCached is returned when a document has no cached copy.
var ErrNotCached = errors.New("document not in local cache")

// Transcript is a cached document with its conversation in ascending order.
type Transcript struct {
	Document api.Document       `json:"document"`
	History  []api.HistoryEntry `json:"history"`
	CachedAt time.Time          `json:"cached_at"`
}

// TranscriptCache is a write-through cache of documents and their
// conversation history, used for offline history and export.
type TranscriptCache struct {
	db     *sql.DB
	origin string
	mu     sync.Mutex
}

// OpenTranscriptCache opens (creating if needed) the cache at path, scoped
// to origin.
func OpenTranscriptCache(path, origin string) (*TranscriptCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &TranscriptCache{db: db, origin: origin}, nil
}

// Close releases the database.
func (c *TranscriptCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// =============================================================================
// WRITES
// =============================================================================

// PutDocuments upserts document metadata.
func (c *TranscriptCache) PutDocuments(docs ...api.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := putDocuments(tx, c.origin, docs); err != nil {
		return err
	}
	return tx.Commit()
}

func putDocuments(tx *sql.Tx, origin string, docs []api.Document) error {
	now := time.Now().Unix()
	for _, d := range docs {
		_, err := tx.Exec(`
			INSERT INTO documents (origin, id, original_name, file_size, upload_date, indexed, cached_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(origin, id) DO UPDATE SET
				original_name = excluded.original_name,
				file_size = excluded.file_size,
				upload_date = excluded.upload_date,
				indexed = excluded.indexed,
				cached_at = excluded.cached_at`,
			origin, d.ID, d.OriginalName, d.FileSize, d.UploadDate, d.Indexed, now)
		if err != nil {
			return fmt.Errorf("failed to cache document %d: %w", d.ID, err)
		}
	}
	return nil
}

// ReplaceHistory stores doc and replaces its cached history with entries.
func (c *TranscriptCache) ReplaceHistory(doc api.Document, entries []api.HistoryEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := putDocuments(tx, c.origin, []api.Document{doc}); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM history WHERE origin = ? AND document_id = ?`, c.origin, doc.ID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	for _, e := range entries {
		if err := putEntry(tx, c.origin, doc.ID, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AppendEntry caches one new exchange of documentID. The document row must
// already exist.
func (c *TranscriptCache) AppendEntry(documentID int64, e api.HistoryEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := putEntry(tx, c.origin, documentID, e); err != nil {
		return err
	}
	return tx.Commit()
}

func putEntry(tx *sql.Tx, origin string, documentID int64, e api.HistoryEntry) error {
	var contexts sql.NullString
	if len(e.Contexts) > 0 {
		data, err := json.Marshal(e.Contexts)
		if err != nil {
			return fmt.Errorf("failed to encode contexts: %w", err)
		}
		contexts = sql.NullString{String: string(data), Valid: true}
	}
	_, err := tx.Exec(`
		INSERT OR REPLACE INTO history (origin, id, document_id, question, answer, created_at, contexts_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		origin, e.ID, documentID, e.Question, e.Answer, e.CreatedAt, contexts)
	if err != nil {
		return fmt.Errorf("failed to cache history entry %d: %w", e.ID, err)
	}
	return nil
}

// DeleteDocument drops a document and its history.
func (c *TranscriptCache) DeleteDocument(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(`DELETE FROM documents WHERE origin = ? AND id = ?`, c.origin, id); err != nil {
		return fmt.Errorf("failed to delete cached document: %w", err)
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Documents lists cached documents, newest upload first.
func (c *TranscriptCache) Documents() ([]api.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.Query(`
		SELECT id, original_name, file_size, upload_date, indexed
		FROM documents WHERE origin = ?
		ORDER BY upload_date DESC, id DESC`, c.origin)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached documents: %w", err)
	}
	defer rows.Close()

	var docs []api.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Transcript returns the cached document and its history in ascending
// creation order.
func (c *TranscriptCache) Transcript(documentID int64) (*Transcript, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := c.db.QueryRow(`
		SELECT id, original_name, file_size, upload_date, indexed, cached_at
		FROM documents WHERE origin = ? AND id = ?`, c.origin, documentID)

	var (
		t        Transcript
		upload   sql.NullString
		cachedAt int64
	)
	err := row.Scan(&t.Document.ID, &t.Document.OriginalName, &t.Document.FileSize, &upload, &t.Document.Indexed, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotCached, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached document: %w", err)
	}
	t.Document.UploadDate = upload.String
	t.CachedAt = time.Unix(cachedAt, 0)

	rows, err := c.db.Query(`
		SELECT id, question, answer, created_at, contexts_json
		FROM history WHERE origin = ? AND document_id = ?
		ORDER BY created_at ASC, id ASC`, c.origin, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e        api.HistoryEntry
			created  sql.NullString
			contexts sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Question, &e.Answer, &created, &contexts); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e.CreatedAt = created.String
		if contexts.Valid && contexts.String != "" {
			// A corrupt blob only loses the excerpts, not the exchange.
			_ = json.Unmarshal([]byte(contexts.String), &e.Contexts)
		}
		t.History = append(t.History, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanDocument(rows *sql.Rows) (api.Document, error) {
	var (
		d      api.Document
		upload sql.NullString
	)
	if err := rows.Scan(&d.ID, &d.OriginalName, &d.FileSize, &upload, &d.Indexed); err != nil {
		return api.Document{}, fmt.Errorf("failed to scan document: %w", err)
	}
	d.UploadDate = upload.String
	return d, nil
}
