// ABOUTME: Embedded vector index backed by chromem-go
// ABOUTME: Persists to disk under the index path, or lives in memory for tests and one-shot runs
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/harper/optimedix/internal/models"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const metaFile = "meta.yaml"

var errPrecomputed = errors.New("chromem index only accepts precomputed embeddings")

// ChromemIndex stores chunks in a single chromem collection
type ChromemIndex struct {
	db     *chromem.DB
	name   string
	dir    string // empty for the in-memory variant
	logger *zap.Logger

	mu         sync.RWMutex
	collection *chromem.Collection
	dims       map[string]int
}

// NewChromem opens (or creates) a persistent chromem database in dir
func NewChromem(dir string, compress bool, collection string, logger *zap.Logger) (*ChromemIndex, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := chromem.NewPersistentDB(dir, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem db at %s: %w", dir, err)
	}
	idx := &ChromemIndex{db: db, name: collection, dir: dir, logger: logger}
	if err := idx.loadDims(); err != nil {
		return nil, err
	}
	idx.collection = db.GetCollection(collection, noEmbedding)
	return idx, nil
}

// NewMemory returns a chromem index that is never written to disk
func NewMemory(collection string, logger *zap.Logger) *ChromemIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromemIndex{
		db:     chromem.NewDB(),
		name:   collection,
		logger: logger,
		dims:   map[string]int{},
	}
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errPrecomputed
}

// chromem does not expose collection metadata, so dimensions live in a sidecar
func (c *ChromemIndex) loadDims() error {
	c.dims = map[string]int{}
	data, err := os.ReadFile(filepath.Join(c.dir, metaFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index metadata: %w", err)
	}
	if err := yaml.Unmarshal(data, &c.dims); err != nil {
		return fmt.Errorf("failed to parse index metadata: %w", err)
	}
	return nil
}

func (c *ChromemIndex) saveDims() error {
	if c.dir == "" {
		return nil
	}
	data, err := yaml.Marshal(c.dims)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, metaFile), data, 0600)
}

func (c *ChromemIndex) Ensure(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if stored, ok := c.dims[c.name]; ok && stored != dimension {
		return &models.DimensionMismatchError{Expected: stored, Actual: dimension, Where: "chromem collection " + c.name}
	}

	collection, err := c.db.GetOrCreateCollection(c.name, map[string]string{"dimension": strconv.Itoa(dimension)}, noEmbedding)
	if err != nil {
		return fmt.Errorf("failed to open collection %s: %w", c.name, err)
	}
	c.collection = collection

	if _, ok := c.dims[c.name]; !ok {
		c.dims[c.name] = dimension
		if err := c.saveDims(); err != nil {
			return fmt.Errorf("failed to write index metadata: %w", err)
		}
		c.logger.Debug("created chromem collection", zap.String("collection", c.name), zap.Int("dimension", dimension))
	}
	return nil
}

func (c *ChromemIndex) ready() (*chromem.Collection, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dim, ok := c.dims[c.name]
	if c.collection == nil || !ok {
		return nil, 0, fmt.Errorf("collection %s not initialized", c.name)
	}
	return c.collection, dim, nil
}

func (c *ChromemIndex) Upsert(ctx context.Context, vectors []models.EmbeddedVector) error {
	collection, dim, err := c.ready()
	if err != nil {
		return err
	}
	docs := make([]chromem.Document, len(vectors))
	for i, v := range vectors {
		if len(v.Vector) != dim {
			return &models.DimensionMismatchError{Expected: dim, Actual: len(v.Vector), Where: "chromem upsert"}
		}
		docs[i] = chromem.Document{
			ID:      v.Chunk.ID,
			Content: v.Chunk.Text,
			Metadata: map[string]string{
				"source":   v.Chunk.Source,
				"position": strconv.Itoa(v.Chunk.Position),
			},
			Embedding: append([]float32(nil), v.Vector...),
		}
	}
	if len(docs) == 0 {
		return nil
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func (c *ChromemIndex) Query(ctx context.Context, vector []float32, topK int) (models.RetrievalResult, error) {
	collection, dim, err := c.ready()
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, &models.DimensionMismatchError{Expected: dim, Actual: len(vector), Where: "chromem query"}
	}

	// chromem rejects nResults above the document count
	n := min(topK, collection.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", c.name, err)
	}

	out := make(models.RetrievalResult, 0, len(results))
	for _, r := range results {
		position, _ := strconv.Atoi(r.Metadata["position"])
		out = append(out, models.ScoredChunk{
			Chunk: models.DocumentChunk{
				ID:       r.ID,
				Text:     r.Content,
				Source:   r.Metadata["source"],
				Position: position,
			},
			Score: float64(r.Similarity),
		})
	}
	return out, nil
}

func (c *ChromemIndex) DeleteSource(ctx context.Context, source string) error {
	c.mu.RLock()
	collection := c.collection
	c.mu.RUnlock()
	if collection == nil {
		return nil
	}
	return collection.Delete(ctx, map[string]string{"source": source}, nil)
}

func (c *ChromemIndex) Count(context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.collection == nil {
		return 0, nil
	}
	return c.collection.Count(), nil
}

func (c *ChromemIndex) Drop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.db.DeleteCollection(c.name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", c.name, err)
	}
	c.collection = nil
	delete(c.dims, c.name)
	return c.saveDims()
}

// Close is a no-op; chromem writes through on every change
func (c *ChromemIndex) Close() error {
	return nil
}
