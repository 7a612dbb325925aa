// ABOUTME: Unified Storage layer that wraps all SQLite stores
// ABOUTME: Owns the DB and hands out namespace-scoped vector and manifest stores
package sqlite

import "fmt"

// Storage manages all persistent data for optimedix using SQLite
type Storage struct {
	db          *DB
	transcripts *TranscriptStore
}

// NewStorageWithPath initializes storage with a database file at dbPath
func NewStorageWithPath(dbPath string) (*Storage, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStorage(db), nil
}

// NewStorageInMemory creates an in-memory storage (for testing)
func NewStorageInMemory() (*Storage, error) {
	db, err := OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return newStorage(db), nil
}

func newStorage(db *DB) *Storage {
	return &Storage{
		db:          db,
		transcripts: NewTranscriptStore(db),
	}
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying database
func (s *Storage) DB() *DB {
	return s.db
}

// Transcripts returns the session/turn store
func (s *Storage) Transcripts() *TranscriptStore {
	return s.transcripts
}

// Manifest returns the ingestion manifest for namespace
func (s *Storage) Manifest(namespace string) *ManifestStore {
	return NewManifestStore(s.db, namespace)
}

// Vectors returns the vector store for namespace
func (s *Storage) Vectors(namespace string) *VectorStore {
	return NewVectorStore(s.db, namespace)
}
