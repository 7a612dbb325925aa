// ABOUTME: Tests for unified Storage wrapper
// ABOUTME: Verifies the facade hands out working stores that share one database
package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harper/optimedix/internal/models"
)

func TestStorageInMemory(t *testing.T) {
	store, err := NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory() error = %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Vectors("ns").Ensure(ctx, 2); err != nil {
		t.Fatalf("Vectors().Ensure() error = %v", err)
	}
	if err := store.Manifest("ns").Put(ctx, DocumentRecord{Source: "a", ContentHash: "h"}); err != nil {
		t.Fatalf("Manifest().Put() error = %v", err)
	}
	if err := store.Transcripts().Append(ctx, "s", models.ConversationTurn{Role: models.RoleUser, Content: "hi", Timestamp: time.Now()}); err != nil {
		t.Fatalf("Transcripts().Append() error = %v", err)
	}
}

func TestStorageWithPath_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "optimedix.db")

	store, err := NewStorageWithPath(path)
	if err != nil {
		t.Fatalf("NewStorageWithPath() error = %v", err)
	}
	_ = store.Vectors("ns").Ensure(ctx, 2)
	_ = store.Close()

	reopened, err := NewStorageWithPath(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if err := reopened.Vectors("ns").Ensure(ctx, 3); err == nil {
		t.Error("Ensure() with a different dimension after reopen should fail")
	}
}
