// ABOUTME: Vector storage for SQLite implementing the vector index contract
// ABOUTME: Stores float32 vectors as BLOBs and searches by brute-force cosine similarity
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/harper/optimedix/internal/models"
)

// VectorStore handles vector persistence for one namespace
type VectorStore struct {
	db        *DB
	namespace string

	mu        sync.RWMutex
	dimension int
}

// NewVectorStore creates a VectorStore scoped to namespace
func NewVectorStore(db *DB, namespace string) *VectorStore {
	return &VectorStore{db: db, namespace: namespace}
}

// Ensure creates the namespace with dimension, or checks it against the stored one
func (s *VectorStore) Ensure(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var stored int
	err := s.db.QueryRow(ctx, "SELECT dimension FROM vector_meta WHERE namespace = ?", s.namespace).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec(ctx,
			"INSERT INTO vector_meta (namespace, dimension, metric, created_at) VALUES (?, ?, 'cosine', ?)",
			s.namespace, dimension, time.Now()); err != nil {
			return fmt.Errorf("failed to create namespace %s: %w", s.namespace, err)
		}
	case err != nil:
		return fmt.Errorf("failed to read namespace %s: %w", s.namespace, err)
	case stored != dimension:
		return &models.DimensionMismatchError{Expected: stored, Actual: dimension, Where: "sqlite namespace " + s.namespace}
	}

	s.dimension = dimension
	return nil
}

func (s *VectorStore) ensured() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimension == 0 {
		return 0, fmt.Errorf("namespace %s not initialized", s.namespace)
	}
	return s.dimension, nil
}

// Upsert saves vectors keyed by chunk ID; every vector is checked before anything is written
func (s *VectorStore) Upsert(ctx context.Context, vectors []models.EmbeddedVector) error {
	dim, err := s.ensured()
	if err != nil {
		return err
	}
	for _, v := range vectors {
		if len(v.Vector) != dim {
			return &models.DimensionMismatchError{Expected: dim, Actual: len(v.Vector), Where: "sqlite upsert"}
		}
	}

	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO vectors (id, namespace, source, position, text, vector, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(namespace, id) DO UPDATE SET
				source = excluded.source,
				position = excluded.position,
				text = excluded.text,
				vector = excluded.vector
		`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now()
		for _, v := range vectors {
			c := v.Chunk
			if _, err := stmt.ExecContext(ctx, c.ID, s.namespace, c.Source, c.Position, c.Text, vectorToBlob(v.Vector), now); err != nil {
				return fmt.Errorf("failed to upsert chunk %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// Query performs cosine similarity search
func (s *VectorStore) Query(ctx context.Context, vector []float32, topK int) (models.RetrievalResult, error) {
	dim, err := s.ensured()
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, &models.DimensionMismatchError{Expected: dim, Actual: len(vector), Where: "sqlite query"}
	}
	if topK <= 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, source, position, text, vector
		FROM vectors
		WHERE namespace = ?
	`, s.namespace)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results models.RetrievalResult
	for rows.Next() {
		var (
			chunk models.DocumentChunk
			blob  []byte
		)
		if err := rows.Scan(&chunk.ID, &chunk.Source, &chunk.Position, &chunk.Text, &blob); err != nil {
			return nil, err
		}
		results = append(results, models.ScoredChunk{
			Chunk: chunk,
			Score: CosineSimilarity(vector, blobToVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteSource removes every chunk of source
func (s *VectorStore) DeleteSource(ctx context.Context, source string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM vectors WHERE namespace = ? AND source = ?", s.namespace, source)
	return err
}

// Count returns the number of stored chunks in the namespace
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM vectors WHERE namespace = ?", s.namespace).Scan(&n)
	return n, err
}

// Drop removes the namespace and all of its vectors; dropping a missing namespace is a no-op
func (s *VectorStore) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(ctx, "DELETE FROM vector_meta WHERE namespace = ?", s.namespace); err != nil {
		return err
	}
	s.dimension = 0
	return nil
}

// Close is a no-op; the DB is owned by Storage
func (s *VectorStore) Close() error {
	return nil
}

// vectorToBlob converts a float32 slice to a little-endian blob
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// blobToVector converts a little-endian blob to a float32 slice
func blobToVector(blob []byte) []float32 {
	count := len(blob) / 4
	vector := make([]float32, count)
	for i := 0; i < count; i++ {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}

// CosineSimilarity calculates cosine similarity between two vectors
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
