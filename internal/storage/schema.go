// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

// SchemaVersion tracks the cache schema for migrations.
const SchemaVersion = 1

// Schema is the transcript cache schema. Rows are scoped by origin (the API
// host) so caches of different backends never mix.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS documents (
    origin TEXT NOT NULL,
    id INTEGER NOT NULL,
    original_name TEXT NOT NULL,
    file_size INTEGER NOT NULL DEFAULT 0,
    upload_date TEXT,
    indexed INTEGER NOT NULL DEFAULT 0,
    cached_at INTEGER NOT NULL, -- Unix timestamp
    PRIMARY KEY (origin, id)
);

CREATE TABLE IF NOT EXISTS history (
    origin TEXT NOT NULL,
    id INTEGER NOT NULL,
    document_id INTEGER NOT NULL,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    created_at TEXT,
    contexts_json TEXT,
    PRIMARY KEY (origin, id),
    FOREIGN KEY (origin, document_id) REFERENCES documents(origin, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_history_document ON history(origin, document_id, created_at);
`

// InitMetadata seeds the metadata table.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
