// ABOUTME: Vector index contract and backend factory
// ABOUTME: Chunks are stored with their embeddings and searched by cosine similarity
package vectorindex

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/harper/optimedix/internal/config"
	"github.com/harper/optimedix/internal/models"
	"github.com/harper/optimedix/internal/storage/sqlite"
	"github.com/harper/optimedix/internal/util"
	"go.uber.org/zap"
)

// Index is a namespaced store of embedded chunks.
//
// Ensure must be called before Upsert or Query. It creates the index with the
// given dimension or fails with a DimensionMismatchError when an existing
// index was built with a different one. Upsert is idempotent per chunk ID and
// validates every vector before writing any of them. Query returns at most
// topK chunks, most similar first.
type Index interface {
	Ensure(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, vectors []models.EmbeddedVector) error
	Query(ctx context.Context, vector []float32, topK int) (models.RetrievalResult, error)
	DeleteSource(ctx context.Context, source string) error
	Count(ctx context.Context) (int, error)
	Drop(ctx context.Context) error
	Close() error
}

var _ Index = (*sqlite.VectorStore)(nil)

// Backends accepted by New
const (
	BackendChromem = "chromem"
	BackendMemory  = "memory"
	BackendQdrant  = "qdrant"
	BackendSQLite  = "sqlite"
)

// Options carries what New needs beyond the index section of the config
type Options struct {
	// Storage backs the sqlite backend and may be nil for the others
	Storage *sqlite.Storage
	Retry   util.Policy
	Logger  *zap.Logger
}

// New opens the backend selected by cfg.Backend
func New(ctx context.Context, cfg config.IndexConfig, opts Options) (Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collection := CollectionName(cfg.Name, cfg.Namespace)

	switch cfg.Backend {
	case BackendChromem, "":
		return NewChromem(filepath.Join(cfg.Path, "chromem"), cfg.Compress, collection, logger)
	case BackendMemory:
		return NewMemory(collection, logger), nil
	case BackendQdrant:
		return NewQdrant(ctx, QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantTLS,
			Collection: cfg.Name,
			Namespace:  cfg.Namespace,
		}, opts.Retry, logger)
	case BackendSQLite:
		if opts.Storage == nil {
			return nil, fmt.Errorf("sqlite index backend requires storage")
		}
		return opts.Storage.Vectors(collection), nil
	default:
		return nil, &models.ConfigurationError{Problems: []string{fmt.Sprintf("unknown index backend %q", cfg.Backend)}}
	}
}

// CollectionName joins an index name and namespace
func CollectionName(name, namespace string) string {
	if namespace == "" {
		return name
	}
	return name + "-" + namespace
}
