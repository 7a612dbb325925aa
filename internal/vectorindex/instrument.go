// ABOUTME: Metrics decorator for vector indexes
// ABOUTME: Records latency and result of upserts and queries
package vectorindex

import (
	"context"
	"time"

	"github.com/harper/optimedix/internal/metrics"
	"github.com/harper/optimedix/internal/models"
)

type instrumented struct {
	Index
	m *metrics.Metrics
}

// Instrument wraps idx so upserts and queries are observed in m
func Instrument(idx Index, m *metrics.Metrics) Index {
	if m == nil {
		return idx
	}
	return &instrumented{Index: idx, m: m}
}

func (i *instrumented) Upsert(ctx context.Context, vectors []models.EmbeddedVector) error {
	start := time.Now()
	err := i.Index.Upsert(ctx, vectors)
	i.m.ObserveCall("index_upsert", start, err)
	return err
}

func (i *instrumented) Query(ctx context.Context, vector []float32, topK int) (models.RetrievalResult, error) {
	start := time.Now()
	res, err := i.Index.Query(ctx, vector, topK)
	i.m.ObserveCall("index_query", start, err)
	return res, err
}
