// ABOUTME: Tests for Session and the Sessions registry
// ABOUTME: Verifies clearing, copies and registry bookkeeping

package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/harper/optimedix/internal/llm/llmtest"
	"github.com/harper/optimedix/internal/models"
)

func TestSession_Clear(t *testing.T) {
	idx := &stubSearcher{results: models.RetrievalResult{scored("a.txt", "t")}}
	r := NewResponder(llmtest.NewEmbedder(8), idx, llmtest.NewGenerator("ok"), DefaultResponderConfig())
	s := NewSession("s", 5)

	_, _ = r.Chat(context.Background(), s, "What about aspirin?")
	_, _ = r.Chat(context.Background(), s, "and pain?")
	if !s.FollowUp().Pending || len(s.Transcript()) != 4 {
		t.Fatal("setup did not produce state to clear")
	}

	s.Clear()
	if s.FollowUp().Pending || len(s.Transcript()) != 0 || len(s.Memory()) != 0 {
		t.Error("Clear() left state behind")
	}
}

func TestNewSession_GeneratesID(t *testing.T) {
	a := NewSession("", 5)
	b := NewSession("", 5)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("generated IDs %q and %q should be unique and non-empty", a.ID, b.ID)
	}
}

func TestSessions_Registry(t *testing.T) {
	reg := NewSessions(5, nil)

	s1 := reg.GetOrCreate("alpha")
	if again := reg.GetOrCreate("alpha"); again != s1 {
		t.Error("GetOrCreate() should return the existing session")
	}
	anon := reg.GetOrCreate("")
	if anon.ID == "" {
		t.Error("anonymous session should get an ID")
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
	if _, ok := reg.Get(anon.ID); !ok {
		t.Error("Get() should find the anonymous session")
	}

	if !reg.Delete("alpha") || reg.Delete("alpha") {
		t.Error("Delete() should report existence once")
	}
	if ids := reg.IDs(); len(ids) != 1 || ids[0] != anon.ID {
		t.Errorf("IDs() = %v", ids)
	}
}

func TestSessions_IdleSessionsExpire(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	reg := NewSessions(5, nil, WithIdleTTL(time.Hour))
	reg.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		reg.GetOrCreate("")
	}
	kept := reg.GetOrCreate("kept")

	now = now.Add(45 * time.Minute)
	if _, ok := reg.Get("kept"); !ok {
		t.Fatal("Get() should find a session used 45m ago")
	}

	now = now.Add(30 * time.Minute)
	if removed := reg.Prune(); removed != 3 {
		t.Errorf("Prune() removed %d, want 3", removed)
	}
	if got, ok := reg.Get("kept"); !ok || got != kept {
		t.Error("recently used session should survive pruning")
	}

	now = now.Add(2 * time.Hour)
	if again := reg.GetOrCreate("kept"); again == kept {
		t.Error("GetOrCreate() should replace an expired session")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestSessions_MaxSessionsEvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	reg := NewSessions(5, nil, WithMaxSessions(2))
	reg.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	reg.GetOrCreate("a")
	reg.GetOrCreate("b")
	reg.GetOrCreate("a")
	reg.GetOrCreate("c")

	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}
	if _, ok := reg.Get("b"); ok {
		t.Error("least recently used session b should be evicted")
	}
	for _, id := range []string{"a", "c"} {
		if _, ok := reg.Get(id); !ok {
			t.Errorf("session %s should remain", id)
		}
	}
}

func TestSessions_UnboundedByDefault(t *testing.T) {
	reg := NewSessions(5, nil)
	for i := 0; i < 50; i++ {
		reg.GetOrCreate("")
	}
	if reg.Prune() != 0 || reg.Len() != 50 {
		t.Errorf("registry without limits should keep every session, Len() = %d", reg.Len())
	}
}

func TestSessions_ConcurrentSessionsAreIndependent(t *testing.T) {
	idx := &stubSearcher{results: models.RetrievalResult{scored("a.txt", "t")}}
	r := NewResponder(llmtest.NewEmbedder(8), idx, llmtest.NewGenerator("ok"), DefaultResponderConfig())
	reg := NewSessions(5, nil)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			s := reg.GetOrCreate(id)
			for i := 0; i < 3; i++ {
				_, _ = r.Chat(context.Background(), s, "question from "+id)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range reg.IDs() {
		s, _ := reg.Get(id)
		for _, turn := range s.Transcript() {
			if turn.Role == models.RoleUser && turn.Content != "question from "+id {
				t.Errorf("session %s holds %q", id, turn.Content)
			}
		}
	}
}
