// ABOUTME: Ingestion manifest recording the content hash of every ingested document
// ABOUTME: Lets ingestion skip unchanged documents and purge removed ones
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// DocumentRecord is the manifest entry of one source document
type DocumentRecord struct {
	Source      string    `json:"source" yaml:"source"`
	ContentHash string    `json:"content_hash" yaml:"content_hash"`
	ChunkCount  int       `json:"chunk_count" yaml:"chunk_count"`
	IngestedAt  time.Time `json:"ingested_at" yaml:"ingested_at"`
}

// ManifestStore handles manifest persistence for one namespace
type ManifestStore struct {
	db        *DB
	namespace string
}

// NewManifestStore creates a ManifestStore scoped to namespace
func NewManifestStore(db *DB, namespace string) *ManifestStore {
	return &ManifestStore{db: db, namespace: namespace}
}

// Get returns the record for source, or nil when it was never ingested
func (s *ManifestStore) Get(ctx context.Context, source string) (*DocumentRecord, error) {
	var rec DocumentRecord
	err := s.db.QueryRow(ctx, `
		SELECT source, content_hash, chunk_count, ingested_at
		FROM documents
		WHERE namespace = ? AND source = ?
	`, s.namespace, source).Scan(&rec.Source, &rec.ContentHash, &rec.ChunkCount, &rec.IngestedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put inserts or replaces the record for rec.Source
func (s *ManifestStore) Put(ctx context.Context, rec DocumentRecord) error {
	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = time.Now()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO documents (namespace, source, content_hash, chunk_count, ingested_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace, source) DO UPDATE SET
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			ingested_at = excluded.ingested_at
	`, s.namespace, rec.Source, rec.ContentHash, rec.ChunkCount, rec.IngestedAt)
	return err
}

// Delete removes the record for source
func (s *ManifestStore) Delete(ctx context.Context, source string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM documents WHERE namespace = ? AND source = ?", s.namespace, source)
	return err
}

// List returns every record ordered by source
func (s *ManifestStore) List(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT source, content_hash, chunk_count, ingested_at
		FROM documents
		WHERE namespace = ?
		ORDER BY source ASC
	`, s.namespace)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []DocumentRecord
	for rows.Next() {
		var rec DocumentRecord
		if err := rows.Scan(&rec.Source, &rec.ContentHash, &rec.ChunkCount, &rec.IngestedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear removes every record in the namespace
func (s *ManifestStore) Clear(ctx context.Context) error {
	_, err := s.db.Exec(ctx, "DELETE FROM documents WHERE namespace = ?", s.namespace)
	return err
}
