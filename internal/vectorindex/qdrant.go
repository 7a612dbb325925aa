// ABOUTME: Vector index backed by a Qdrant server over gRPC
// ABOUTME: One collection per index name; namespaces are separated by a payload filter
package vectorindex

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/harper/optimedix/internal/models"
	"github.com/harper/optimedix/internal/util"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	payloadNamespace = "namespace"
	payloadChunkID   = "chunk_id"
	payloadSource    = "source"
	payloadPosition  = "position"
	payloadText      = "text"

	maxMessageSize = 50 * 1024 * 1024
)

// QdrantConfig addresses a Qdrant collection
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Namespace  string
}

// QdrantIndex implements Index against Qdrant
type QdrantIndex struct {
	client    *qdrant.Client
	cfg       QdrantConfig
	retry     util.Policy
	logger    *zap.Logger
	dimension int
}

// NewQdrant connects to Qdrant and checks the server is healthy
func NewQdrant(ctx context.Context, cfg QdrantConfig, retry util.Policy, logger *zap.Logger) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	qcfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxMessageSize),
				grpc.MaxCallSendMsgSize(maxMessageSize),
			),
		},
	}
	if !cfg.UseTLS {
		qcfg.GrpcOptions = append(qcfg.GrpcOptions, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	client, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	idx := &QdrantIndex{client: client, cfg: cfg, retry: retry, logger: logger}
	if err := idx.do(ctx, func(ctx context.Context) error {
		_, err := client.HealthCheck(ctx)
		return err
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant health check failed at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("qdrant connection established", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
	return idx, nil
}

func (q *QdrantIndex) Ensure(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	var exists bool
	if err := q.do(ctx, func(ctx context.Context) error {
		var err error
		exists, err = q.client.CollectionExists(ctx, q.cfg.Collection)
		return err
	}); err != nil {
		return fmt.Errorf("failed to check collection %s: %w", q.cfg.Collection, err)
	}

	if !exists {
		if err := q.do(ctx, func(ctx context.Context) error {
			return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: q.cfg.Collection,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrant.Distance_Cosine,
				}),
			})
		}); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", q.cfg.Collection, err)
		}
		q.logger.Info("created qdrant collection", zap.String("collection", q.cfg.Collection), zap.Int("dimension", dimension))
		q.dimension = dimension
		return nil
	}

	var info *qdrant.CollectionInfo
	if err := q.do(ctx, func(ctx context.Context) error {
		var err error
		info, err = q.client.GetCollectionInfo(ctx, q.cfg.Collection)
		return err
	}); err != nil {
		return fmt.Errorf("failed to read collection %s: %w", q.cfg.Collection, err)
	}

	stored := int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	if stored != dimension {
		return &models.DimensionMismatchError{Expected: stored, Actual: dimension, Where: "qdrant collection " + q.cfg.Collection}
	}
	q.dimension = dimension
	return nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, vectors []models.EmbeddedVector) error {
	if q.dimension == 0 {
		return fmt.Errorf("collection %s not initialized", q.cfg.Collection)
	}
	points := make([]*qdrant.PointStruct, len(vectors))
	for i, v := range vectors {
		if len(v.Vector) != q.dimension {
			return &models.DimensionMismatchError{Expected: q.dimension, Actual: len(v.Vector), Where: "qdrant upsert"}
		}
		points[i] = q.toPoint(v)
	}
	if len(points) == 0 {
		return nil
	}

	return q.do(ctx, func(ctx context.Context) error {
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.cfg.Collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	})
}

func (q *QdrantIndex) Query(ctx context.Context, vector []float32, topK int) (models.RetrievalResult, error) {
	if q.dimension == 0 {
		return nil, fmt.Errorf("collection %s not initialized", q.cfg.Collection)
	}
	if len(vector) != q.dimension {
		return nil, &models.DimensionMismatchError{Expected: q.dimension, Actual: len(vector), Where: "qdrant query"}
	}
	if topK <= 0 {
		return nil, nil
	}

	var points []*qdrant.ScoredPoint
	err := q.do(ctx, func(ctx context.Context) error {
		var err error
		points, err = q.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: q.cfg.Collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(topK)),
			Filter:         q.filter(),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make(models.RetrievalResult, 0, len(points))
	for _, p := range points {
		out = append(out, models.ScoredChunk{Chunk: chunkFromPayload(p.GetPayload()), Score: float64(p.GetScore())})
	}
	return out, nil
}

func (q *QdrantIndex) DeleteSource(ctx context.Context, source string) error {
	return q.deleteWhere(ctx, q.filter(keywordCondition(payloadSource, source)))
}

func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	var exists bool
	if err := q.do(ctx, func(ctx context.Context) error {
		var err error
		exists, err = q.client.CollectionExists(ctx, q.cfg.Collection)
		return err
	}); err != nil || !exists {
		return 0, err
	}

	var n uint64
	err := q.do(ctx, func(ctx context.Context) error {
		var err error
		n, err = q.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: q.cfg.Collection,
			Filter:         q.filter(),
			Exact:          qdrant.PtrOf(true),
		})
		return err
	})
	return int(n), err
}

// Drop removes the namespace's points, and the collection once nothing else lives in it
func (q *QdrantIndex) Drop(ctx context.Context) error {
	n, err := q.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		if err := q.deleteWhere(ctx, q.filter()); err != nil {
			return err
		}
	}

	var total uint64
	if err := q.do(ctx, func(ctx context.Context) error {
		exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
		if err != nil || !exists {
			total = 0
			return err
		}
		total, err = q.client.Count(ctx, &qdrant.CountPoints{CollectionName: q.cfg.Collection, Exact: qdrant.PtrOf(true)})
		if err != nil {
			return err
		}
		if total == 0 {
			return q.client.DeleteCollection(ctx, q.cfg.Collection)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", q.cfg.Collection, err)
	}
	q.dimension = 0
	return nil
}

func (q *QdrantIndex) Close() error {
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}

func (q *QdrantIndex) deleteWhere(ctx context.Context, filter *qdrant.Filter) error {
	return q.do(ctx, func(ctx context.Context) error {
		_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: q.cfg.Collection,
			Wait:           qdrant.PtrOf(true),
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
			},
		})
		return err
	})
}

func (q *QdrantIndex) do(ctx context.Context, op func(ctx context.Context) error) error {
	return util.Do(ctx, q.retry, func(ctx context.Context) error {
		err := op(ctx)
		if err != nil && !isTransient(err) {
			return util.Permanent(err)
		}
		return err
	})
}

// filter scopes a request to the configured namespace plus any extra conditions
func (q *QdrantIndex) filter(extra ...*qdrant.Condition) *qdrant.Filter {
	must := []*qdrant.Condition{keywordCondition(payloadNamespace, q.cfg.Namespace)}
	return &qdrant.Filter{Must: append(must, extra...)}
}

func (q *QdrantIndex) toPoint(v models.EmbeddedVector) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(PointID(q.cfg.Namespace, v.Chunk.ID)),
		Vectors: qdrant.NewVectors(v.Vector...),
		Payload: chunkPayload(q.cfg.Namespace, v.Chunk),
	}
}

// PointID derives a Qdrant point UUID that is unique per namespace and chunk
func PointID(namespace, chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(namespace+"/"+chunkID)).String()
}

func keywordCondition(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func chunkPayload(namespace string, c models.DocumentChunk) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		payloadNamespace: stringValue(namespace),
		payloadChunkID:   stringValue(c.ID),
		payloadSource:    stringValue(c.Source),
		payloadText:      stringValue(c.Text),
		payloadPosition:  {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(c.Position)}},
	}
}

func chunkFromPayload(payload map[string]*qdrant.Value) models.DocumentChunk {
	return models.DocumentChunk{
		ID:       payload[payloadChunkID].GetStringValue(),
		Text:     payload[payloadText].GetStringValue(),
		Source:   payload[payloadSource].GetStringValue(),
		Position: int(payload[payloadPosition].GetIntegerValue()),
	}
}

func isTransient(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}
