// ABOUTME: Tests for Qdrant payload and filter helpers
// ABOUTME: Covers the parts of the Qdrant backend that do not need a server
package vectorindex

import (
	"errors"
	"testing"

	"github.com/harper/optimedix/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestPointID(t *testing.T) {
	a := PointID("medical_data", "chunk-1")
	assert.Equal(t, a, PointID("medical_data", "chunk-1"))
	assert.NotEqual(t, a, PointID("other", "chunk-1"))
	assert.Len(t, a, 36)
}

func TestChunkPayloadRoundTrip(t *testing.T) {
	chunk, err := models.NewDocumentChunk("aspirin.txt", 3, "Aspirin reduces fever.")
	require.NoError(t, err)
	payload := chunkPayload("medical_data", *chunk)

	assert.Equal(t, "medical_data", payload[payloadNamespace].GetStringValue())
	assert.Equal(t, *chunk, chunkFromPayload(payload))
}

func TestQdrantFilter(t *testing.T) {
	q := &QdrantIndex{cfg: QdrantConfig{Namespace: "medical_data"}}

	f := q.filter(keywordCondition(payloadSource, "cough.txt"))
	require.Len(t, f.Must, 2)
	assert.Equal(t, payloadNamespace, f.Must[0].GetField().GetKey())
	assert.Equal(t, "medical_data", f.Must[0].GetField().GetMatch().GetKeyword())
	assert.Equal(t, "cough.txt", f.Must[1].GetField().GetMatch().GetKeyword())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(status.Error(codes.Unavailable, "down")))
	assert.True(t, isTransient(status.Error(codes.DeadlineExceeded, "slow")))
	assert.False(t, isTransient(status.Error(codes.InvalidArgument, "bad")))
	assert.False(t, isTransient(errors.New("plain")))
}
