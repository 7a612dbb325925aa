// ABOUTME: SQLite database schema for optimedix storage
// ABOUTME: Vectors, index metadata, ingestion manifest, sessions and turns
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Index metadata, one row per namespace
CREATE TABLE IF NOT EXISTS vector_meta (
    namespace TEXT PRIMARY KEY,
    dimension INTEGER NOT NULL,
    metric TEXT NOT NULL DEFAULT 'cosine',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Chunk vectors (brute-force cosine search)
CREATE TABLE IF NOT EXISTS vectors (
    id TEXT NOT NULL,
    namespace TEXT NOT NULL REFERENCES vector_meta(namespace) ON DELETE CASCADE,
    source TEXT NOT NULL,
    position INTEGER NOT NULL,
    text TEXT NOT NULL,
    vector BLOB NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (namespace, id)
);

-- Ingestion manifest (content hash per source document)
CREATE TABLE IF NOT EXISTS documents (
    namespace TEXT NOT NULL,
    source TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    chunk_count INTEGER NOT NULL,
    ingested_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (namespace, source)
);

-- Chat sessions
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Transcript turns
CREATE TABLE IF NOT EXISTS turns (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vectors_source ON vectors(namespace, source);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, seq);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
