// ABOUTME: Ingestor chunks corpus documents, embeds them in throttled batches and upserts them
// ABOUTME: A content-hash manifest skips unchanged files and purges deleted ones
package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/harper/optimedix/internal/core"
	"github.com/harper/optimedix/internal/llm"
	"github.com/harper/optimedix/internal/metrics"
	"github.com/harper/optimedix/internal/models"
	"github.com/harper/optimedix/internal/storage/sqlite"
	"github.com/harper/optimedix/internal/vectorindex"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const probeText = "dimension probe"

// Manifest records which document versions are in the index
type Manifest interface {
	Get(ctx context.Context, source string) (*sqlite.DocumentRecord, error)
	Put(ctx context.Context, rec sqlite.DocumentRecord) error
	Delete(ctx context.Context, source string) error
	List(ctx context.Context) ([]sqlite.DocumentRecord, error)
	Clear(ctx context.Context) error
}

var _ Manifest = (*sqlite.ManifestStore)(nil)

// Report summarizes one ingestion run
type Report struct {
	// Documents is the number of documents chunked and stored
	Documents    int `json:"documents"`
	ChunksStored int `json:"chunks_stored"`
	// Skipped documents were unchanged since the last run
	Skipped int `json:"skipped"`
	// Removed documents disappeared from the corpus
	Removed int `json:"removed"`
}

// Options tune an Ingestor
type Options struct {
	BatchSize         int
	RequestsPerSecond float64
	Extensions        []string
	// Manifest may be nil, in which case every document is re-embedded
	Manifest Manifest
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Ingestor runs at most one ingestion at a time
type Ingestor struct {
	mu         sync.Mutex
	embedder   llm.Embedder
	index      vectorindex.Index
	chunker    *core.ChunkEngine
	manifest   Manifest
	limiter    *rate.Limiter
	batchSize  int
	extensions []string
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewIngestor creates an Ingestor
func NewIngestor(embedder llm.Embedder, index vectorindex.Index, chunker *core.ChunkEngine, opts Options) *Ingestor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Ingestor{
		embedder:   embedder,
		index:      index,
		chunker:    chunker,
		manifest:   opts.Manifest,
		limiter:    rate.NewLimiter(limit, 1),
		batchSize:  opts.BatchSize,
		extensions: opts.Extensions,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
}

// Ingest synchronizes the index with the documents under corpusPath.
//
// MissingSourcePathError and EmptyCorpusError are returned alongside a valid
// report; callers log them and carry on. A DimensionMismatchError is raised
// before anything is upserted.
func (in *Ingestor) Ingest(ctx context.Context, corpusPath string) (Report, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	var report Report
	docs, loadErr := LoadDocuments(corpusPath, in.extensions)
	if loadErr != nil && !models.IsIngestWarning(loadErr) {
		return report, loadErr
	}

	known, err := in.knownSources(ctx)
	if err != nil {
		return report, err
	}
	if len(docs) == 0 && len(known) == 0 {
		in.logger.Warn("nothing to ingest", zap.String("path", corpusPath), zap.Error(loadErr))
		return report, loadErr
	}

	dim, err := in.prepare(ctx)
	if err != nil {
		return report, err
	}
	stale, err := in.dropStaleManifest(ctx)
	if err != nil {
		return report, err
	}
	if stale {
		known = nil
	}

	present := make(map[string]bool, len(docs))
	for _, doc := range docs {
		present[doc.Source] = true
		stored, skipped, err := in.ingestDocument(ctx, doc, dim)
		if err != nil {
			return report, err
		}
		if skipped {
			report.Skipped++
			continue
		}
		report.Documents++
		report.ChunksStored += stored
	}

	for _, source := range known {
		if present[source] {
			continue
		}
		if err := in.remove(ctx, source); err != nil {
			return report, err
		}
		report.Removed++
	}

	in.metrics.AddChunks(report.ChunksStored)
	in.metrics.AddSkipped(report.Skipped)
	in.logger.Info("ingestion finished",
		zap.String("path", corpusPath),
		zap.Int("documents", report.Documents),
		zap.Int("chunks_stored", report.ChunksStored),
		zap.Int("skipped", report.Skipped),
		zap.Int("removed", report.Removed),
	)
	if loadErr != nil {
		in.logger.Warn("corpus is empty", zap.Error(loadErr))
	}
	return report, loadErr
}

// IngestFile (re)ingests a single file under root
func (in *Ingestor) IngestFile(ctx context.Context, root, path string) (Report, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	var report Report
	if !Eligible(path, in.extensions) {
		return report, nil
	}
	doc, err := ReadDocument(root, path)
	if err != nil {
		return report, err
	}
	dim, err := in.prepare(ctx)
	if err != nil {
		return report, err
	}
	if _, err := in.dropStaleManifest(ctx); err != nil {
		return report, err
	}
	stored, skipped, err := in.ingestDocument(ctx, doc, dim)
	if err != nil {
		return report, err
	}
	if skipped {
		report.Skipped = 1
		return report, nil
	}
	report.Documents = 1
	report.ChunksStored = stored
	in.metrics.AddChunks(stored)
	in.logger.Info("ingested file", zap.String("source", doc.Source), zap.Int("chunks", stored))
	return report, nil
}

// RemoveFile deletes every chunk of a file under root
func (in *Ingestor) RemoveFile(ctx context.Context, root, path string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	source := SourceID(root, path)
	if err := in.remove(ctx, source); err != nil {
		return err
	}
	in.logger.Info("removed file from index", zap.String("source", source))
	return nil
}

// Reindex drops and recreates the index and clears the manifest. It is safe
// to call when no index exists.
func (in *Ingestor) Reindex(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.index.Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop index: %w", err)
	}
	if err := in.index.Ensure(ctx, in.embedder.Dimension()); err != nil {
		return fmt.Errorf("failed to recreate index: %w", err)
	}
	if in.manifest != nil {
		if err := in.manifest.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear manifest: %w", err)
		}
	}
	in.logger.Info("index reset")
	return nil
}

// prepare checks the embedder against its declared dimension and opens the index with it
func (in *Ingestor) prepare(ctx context.Context) (int, error) {
	dim := in.embedder.Dimension()
	if err := in.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	probe, err := in.embedder.Embed(ctx, probeText)
	if err != nil {
		return 0, fmt.Errorf("embedding probe failed: %w", err)
	}
	if len(probe) != dim {
		return 0, &models.DimensionMismatchError{Expected: dim, Actual: len(probe), Where: "embedding probe"}
	}
	if err := in.index.Ensure(ctx, dim); err != nil {
		return 0, err
	}
	return dim, nil
}

// dropStaleManifest clears a manifest that lists documents an empty index does
// not hold, as happens with a non-persistent backend or a deleted index directory.
// It must run after prepare.
func (in *Ingestor) dropStaleManifest(ctx context.Context) (bool, error) {
	if in.manifest == nil {
		return false, nil
	}
	records, err := in.manifest.List(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read manifest: %w", err)
	}
	if len(records) == 0 {
		return false, nil
	}
	n, err := in.index.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count index: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	in.logger.Warn("index is empty but the manifest is not; re-embedding every document",
		zap.Int("manifest_documents", len(records)),
	)
	if err := in.manifest.Clear(ctx); err != nil {
		return false, fmt.Errorf("failed to clear manifest: %w", err)
	}
	return true, nil
}

func (in *Ingestor) knownSources(ctx context.Context) ([]string, error) {
	if in.manifest == nil {
		return nil, nil
	}
	records, err := in.manifest.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	sources := make([]string, len(records))
	for i, r := range records {
		sources[i] = r.Source
	}
	return sources, nil
}

// ingestDocument replaces the stored chunks of doc unless the manifest says it is unchanged
func (in *Ingestor) ingestDocument(ctx context.Context, doc Document, dim int) (int, bool, error) {
	if in.manifest != nil {
		rec, err := in.manifest.Get(ctx, doc.Source)
		if err != nil {
			return 0, false, fmt.Errorf("failed to read manifest for %s: %w", doc.Source, err)
		}
		if rec != nil && rec.ContentHash == doc.Hash {
			in.logger.Debug("unchanged document", zap.String("source", doc.Source))
			return 0, true, nil
		}
	}

	chunks, err := in.chunker.ChunkDocument(doc.Source, doc.Content)
	if err != nil {
		return 0, false, err
	}

	vectors := make([]models.EmbeddedVector, 0, len(chunks))
	for start := 0; start < len(chunks); start += in.batchSize {
		end := min(start+in.batchSize, len(chunks))
		batch, err := in.embed(ctx, chunks[start:end], dim)
		if err != nil {
			return 0, false, fmt.Errorf("failed to embed %s: %w", doc.Source, err)
		}
		vectors = append(vectors, batch...)
	}

	// old chunks go only once the new ones are embedded
	if err := in.index.DeleteSource(ctx, doc.Source); err != nil {
		return 0, false, fmt.Errorf("failed to delete old chunks of %s: %w", doc.Source, err)
	}
	for start := 0; start < len(vectors); start += in.batchSize {
		end := min(start+in.batchSize, len(vectors))
		if err := in.index.Upsert(ctx, vectors[start:end]); err != nil {
			return 0, false, fmt.Errorf("failed to upsert %s: %w", doc.Source, err)
		}
	}

	if in.manifest != nil {
		if err := in.manifest.Put(ctx, sqlite.DocumentRecord{
			Source:      doc.Source,
			ContentHash: doc.Hash,
			ChunkCount:  len(chunks),
		}); err != nil {
			return 0, false, fmt.Errorf("failed to record %s: %w", doc.Source, err)
		}
	}
	in.logger.Debug("stored document", zap.String("source", doc.Source), zap.Int("chunks", len(chunks)))
	return len(chunks), false, nil
}

// embed embeds one batch after waiting on the rate limiter and validates every vector
func (in *Ingestor) embed(ctx context.Context, chunks []models.DocumentChunk, dim int) ([]models.EmbeddedVector, error) {
	if err := in.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := in.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(chunks))
	}
	out := make([]models.EmbeddedVector, len(chunks))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, &models.DimensionMismatchError{Expected: dim, Actual: len(v), Where: "ingestion batch"}
		}
		out[i] = models.EmbeddedVector{Vector: v, Chunk: chunks[i]}
	}
	return out, nil
}

func (in *Ingestor) remove(ctx context.Context, source string) error {
	if err := in.index.DeleteSource(ctx, source); err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", source, err)
	}
	if in.manifest != nil {
		if err := in.manifest.Delete(ctx, source); err != nil {
			return fmt.Errorf("failed to forget %s: %w", source, err)
		}
	}
	return nil
}
