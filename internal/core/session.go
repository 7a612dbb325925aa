// ABOUTME: Session holds one conversation's memory window, follow-up state and transcript
// ABOUTME: Sessions is the registry used by the HTTP and MCP surfaces
package core

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harper/optimedix/internal/metrics"
	"github.com/harper/optimedix/internal/models"
)

// Session is strictly sequential: the responder holds mu for a whole turn
type Session struct {
	ID        string
	CreatedAt time.Time

	// lastUsed is guarded by the owning registry's mutex
	lastUsed time.Time

	mu         sync.Mutex
	memory     *MemoryWindow
	followUp   models.FollowUpState
	transcript []models.ConversationTurn
}

// NewSession creates a session; an empty id gets a random one
func NewSession(id string, window int) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		memory:    NewMemoryWindow(window),
	}
}

// Transcript returns a copy of every turn recorded so far
func (s *Session) Transcript() []models.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ConversationTurn(nil), s.transcript...)
}

// FollowUp returns a copy of the follow-up state
func (s *Session) FollowUp() models.FollowUpState {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.followUp
	f.Questions = append([]string(nil), f.Questions...)
	return f
}

// Memory returns the exchanges currently in the window
func (s *Session) Memory() []models.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memory.Window()
}

// Clear resets memory, follow-up state and transcript
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory.Clear()
	s.followUp.Clear()
	s.transcript = nil
}

// Sessions is a registry of sessions keyed by ID.
// Idle sessions expire and the least recently used one is evicted at capacity;
// their transcripts stay in the transcript store.
type Sessions struct {
	mu          sync.Mutex
	window      int
	idleTTL     time.Duration
	maxSessions int
	now         func() time.Time
	byID        map[string]*Session
	metrics     *metrics.Metrics
}

// SessionsOption configures a Sessions registry
type SessionsOption func(*Sessions)

// WithIdleTTL expires sessions unused for d; zero keeps them forever
func WithIdleTTL(d time.Duration) SessionsOption {
	return func(r *Sessions) { r.idleTTL = d }
}

// WithMaxSessions caps the registry at n sessions; zero means no cap
func WithMaxSessions(n int) SessionsOption {
	return func(r *Sessions) { r.maxSessions = n }
}

// NewSessions creates a registry whose sessions keep window exchanges; m may be nil
func NewSessions(window int, m *metrics.Metrics, opts ...SessionsOption) *Sessions {
	r := &Sessions{window: window, now: time.Now, byID: map[string]*Session{}, metrics: m}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the session with id
func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expire()
	s, ok := r.byID[id]
	if ok {
		s.lastUsed = r.now()
	}
	return s, ok
}

// GetOrCreate returns the session with id, creating it if needed.
// An empty id always creates a new session.
func (r *Sessions) GetOrCreate(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expire()
	if s, ok := r.byID[id]; ok && id != "" {
		s.lastUsed = r.now()
		return s
	}
	if r.maxSessions > 0 {
		for len(r.byID) >= r.maxSessions {
			r.evictOldest()
		}
	}
	s := NewSession(id, r.window)
	s.lastUsed = r.now()
	r.byID[s.ID] = s
	r.metrics.SetSessions(len(r.byID))
	return s
}

// Prune drops idle sessions and returns how many were removed
func (r *Sessions) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expire()
}

// expire must be called with r.mu held
func (r *Sessions) expire() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)
	removed := 0
	for id, s := range r.byID {
		if s.lastUsed.Before(cutoff) {
			delete(r.byID, id)
			removed++
		}
	}
	if removed > 0 {
		r.metrics.SetSessions(len(r.byID))
	}
	return removed
}

// evictOldest must be called with r.mu held
func (r *Sessions) evictOldest() {
	var oldest *Session
	for _, s := range r.byID {
		if oldest == nil || s.lastUsed.Before(oldest.lastUsed) {
			oldest = s
		}
	}
	if oldest != nil {
		delete(r.byID, oldest.ID)
	}
}

// Delete removes a session and reports whether it existed
func (r *Sessions) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	delete(r.byID, id)
	r.metrics.SetSessions(len(r.byID))
	return ok
}

// IDs lists session IDs in sorted order
func (r *Sessions) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of sessions
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
