// ABOUTME: Tests for the ingestion pipeline
// ABOUTME: Covers manifest skipping, removal, batching and dimension checks
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/harper/optimedix/internal/core"
	"github.com/harper/optimedix/internal/llm/llmtest"
	"github.com/harper/optimedix/internal/models"
	"github.com/harper/optimedix/internal/storage/sqlite"
	"github.com/harper/optimedix/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	root     string
	embedder *llmtest.Embedder
	index    vectorindex.Index
	manifest *sqlite.ManifestStore
	ingestor *Ingestor
}

func newFixture(t *testing.T, withManifest bool, batchSize int) *fixture {
	t.Helper()
	store, err := sqlite.NewStorageInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	chunker, err := core.NewChunkEngine(core.DefaultChunkSize, core.DefaultChunkOverlap)
	require.NoError(t, err)

	f := &fixture{
		root:     t.TempDir(),
		embedder: llmtest.NewEmbedder(32),
		index:    vectorindex.NewMemory("test", nil),
		manifest: store.Manifest("test"),
	}
	opts := Options{BatchSize: batchSize}
	if withManifest {
		opts.Manifest = f.manifest
	}
	f.ingestor = NewIngestor(f.embedder, f.index, chunker, opts)
	return f
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	n, err := f.index.Count(context.Background())
	require.NoError(t, err)
	return n
}

func longText(word string, n int) string {
	return strings.Repeat(word+" is discussed here. ", n)
}

func TestIngest_MissingPath(t *testing.T) {
	f := newFixture(t, true, 8)
	path := filepath.Join(f.root, "missing")

	report, err := f.ingestor.Ingest(context.Background(), path)
	assert.ErrorIs(t, err, models.ErrMissingSourcePath)
	assert.Equal(t, Report{}, report)
	assert.DirExists(t, path)
	assert.Empty(t, f.embedder.Inputs(), "no embedding calls for an empty corpus")
}

func TestIngest_StoresChunks(t *testing.T) {
	f := newFixture(t, true, 8)
	writeFile(t, filepath.Join(f.root, "aspirin.txt"), "Aspirin is used for headache and fever reduction.")
	writeFile(t, filepath.Join(f.root, "cough.md"), longText("cough", 80))

	report, err := f.ingestor.Ingest(context.Background(), f.root)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Documents)
	assert.Greater(t, report.ChunksStored, 2)
	assert.Equal(t, report.ChunksStored, f.count(t))
}

func TestIngest_IdempotentReingest(t *testing.T) {
	for _, withManifest := range []bool{true, false} {
		name := "without manifest"
		if withManifest {
			name = "with manifest"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, withManifest, 4)
			writeFile(t, filepath.Join(f.root, "a.txt"), longText("aspirin", 60))
			writeFile(t, filepath.Join(f.root, "b.txt"), "Ibuprofen reduces inflammation.")

			first, err := f.ingestor.Ingest(ctx, f.root)
			require.NoError(t, err)
			before := f.count(t)

			second, err := f.ingestor.Ingest(ctx, f.root)
			require.NoError(t, err)
			assert.Equal(t, before, f.count(t))
			if withManifest {
				assert.Equal(t, 2, second.Skipped)
				assert.Zero(t, second.ChunksStored)
			} else {
				assert.Equal(t, first.ChunksStored, second.ChunksStored)
			}
		})
	}
}

func TestIngest_ChangedAndRemovedDocuments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, 8)
	a := filepath.Join(f.root, "a.txt")
	b := filepath.Join(f.root, "b.txt")
	writeFile(t, a, longText("aspirin", 60))
	writeFile(t, b, "Ibuprofen reduces inflammation.")
	_, err := f.ingestor.Ingest(ctx, f.root)
	require.NoError(t, err)

	writeFile(t, a, "Aspirin, short version.")
	require.NoError(t, os.Remove(b))

	report, err := f.ingestor.Ingest(ctx, f.root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, 1, f.count(t))

	records, err := f.manifest.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a.txt", records[0].Source)
}

func TestIngest_NewDocumentBecomesRetrievable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, 8)
	writeFile(t, filepath.Join(f.root, "a.txt"), "Ibuprofen reduces inflammation.")
	_, err := f.ingestor.Ingest(ctx, f.root)
	require.NoError(t, err)

	writeFile(t, filepath.Join(f.root, "aspirin.txt"), "Aspirin is used for headache and fever reduction.")
	_, err = f.ingestor.Ingest(ctx, f.root)
	require.NoError(t, err)

	v, err := f.embedder.Embed(ctx, "Aspirin is used for headache and fever reduction.")
	require.NoError(t, err)
	res, err := f.index.Query(ctx, v, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "aspirin.txt", res[0].Chunk.Source)
}

func TestIngest_ManifestOutlivesIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, 8)
	writeFile(t, filepath.Join(f.root, "aspirin.txt"), "Aspirin is used for headache and fever reduction.")
	writeFile(t, filepath.Join(f.root, "b.txt"), "Ibuprofen reduces inflammation.")
	_, err := f.ingestor.Ingest(ctx, f.root)
	require.NoError(t, err)

	// a new process with a non-persistent index but the same manifest
	chunker, err := core.NewChunkEngine(core.DefaultChunkSize, core.DefaultChunkOverlap)
	require.NoError(t, err)
	fresh := vectorindex.NewMemory("test", nil)
	again := NewIngestor(f.embedder, fresh, chunker, Options{BatchSize: 8, Manifest: f.manifest})

	report, err := again.Ingest(ctx, f.root)
	require.NoError(t, err)
	assert.Zero(t, report.Skipped)
	assert.Equal(t, 2, report.Documents)
	assert.Zero(t, report.Removed)

	n, err := fresh.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := f.manifest.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	report, err = again.Ingest(ctx, f.root)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped, "a populated index keeps the manifest")
}

func TestIngestFile_ManifestOutlivesIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, 8)
	path := filepath.Join(f.root, "a.txt")
	writeFile(t, path, "Aspirin.")
	_, err := f.ingestor.IngestFile(ctx, f.root, path)
	require.NoError(t, err)

	chunker, err := core.NewChunkEngine(core.DefaultChunkSize, core.DefaultChunkOverlap)
	require.NoError(t, err)
	fresh := vectorindex.NewMemory("test", nil)
	again := NewIngestor(f.embedder, fresh, chunker, Options{Manifest: f.manifest})

	report, err := again.IngestFile(ctx, f.root, path)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ChunksStored)
}

func TestIngest_DimensionMismatchBeforeUpsert(t *testing.T) {
	t.Run("embedder disagrees with itself", func(t *testing.T) {
		f := newFixture(t, true, 8)
		writeFile(t, filepath.Join(f.root, "a.txt"), "text")
		f.embedder.OverrideDimension = 16

		_, err := f.ingestor.Ingest(context.Background(), f.root)
		assert.ErrorIs(t, err, models.ErrDimensionMismatch)
		assert.Zero(t, f.count(t))
	})
	t.Run("index built with another model", func(t *testing.T) {
		f := newFixture(t, true, 8)
		require.NoError(t, f.index.Ensure(context.Background(), 64))
		writeFile(t, filepath.Join(f.root, "a.txt"), "text")

		_, err := f.ingestor.Ingest(context.Background(), f.root)
		assert.ErrorIs(t, err, models.ErrDimensionMismatch)
		assert.Zero(t, f.count(t))
	})
}

func TestIngest_BatchesEmbeddings(t *testing.T) {
	f := newFixture(t, false, 2)
	writeFile(t, filepath.Join(f.root, "long.txt"), longText("dose", 120))

	report, err := f.ingestor.Ingest(context.Background(), f.root)
	require.NoError(t, err)
	assert.Greater(t, report.ChunksStored, 2)
	assert.Equal(t, report.ChunksStored, f.count(t))
	// one probe plus every chunk text
	assert.Len(t, f.embedder.Inputs(), report.ChunksStored+1)
}

func TestIngest_Serialized(t *testing.T) {
	f := newFixture(t, true, 8)
	writeFile(t, filepath.Join(f.root, "a.txt"), longText("fever", 50))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ingestor.Ingest(context.Background(), f.root)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := f.manifest.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, records[0].ChunkCount, f.count(t))
}

func TestReindex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, 8)

	require.NoError(t, f.ingestor.Reindex(ctx), "reindex with no index")

	writeFile(t, filepath.Join(f.root, "a.txt"), "Aspirin.")
	_, err := f.ingestor.Ingest(ctx, f.root)
	require.NoError(t, err)
	require.Equal(t, 1, f.count(t))

	require.NoError(t, f.ingestor.Reindex(ctx))
	assert.Zero(t, f.count(t))
	records, err := f.manifest.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	report, err := f.ingestor.Ingest(ctx, f.root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents, "cleared manifest forces re-embedding")
}

func TestIngestFileAndRemoveFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, 8)
	path := filepath.Join(f.root, "sub", "a.txt")
	writeFile(t, path, "Aspirin.")

	report, err := f.ingestor.IngestFile(ctx, f.root, path)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ChunksStored)

	report, err = f.ingestor.IngestFile(ctx, f.root, path)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)

	report, err = f.ingestor.IngestFile(ctx, f.root, filepath.Join(f.root, "notes.json"))
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)

	require.NoError(t, f.ingestor.RemoveFile(ctx, f.root, path))
	assert.Zero(t, f.count(t))
	rec, err := f.manifest.Get(ctx, "sub/a.txt")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
