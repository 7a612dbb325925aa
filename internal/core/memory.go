// ABOUTME: MemoryWindow keeps the most recent user/assistant exchanges of a session
// ABOUTME: Bounded FIFO; the serialized window is fed to the prompt as chat history
package core

import (
	"strings"

	"github.com/harper/optimedix/internal/models"
)

// DefaultMemoryWindow is the number of exchanges kept
const DefaultMemoryWindow = 5

// MemoryWindow is not safe for concurrent use; the owning Session serializes access
type MemoryWindow struct {
	k         int
	exchanges []models.Exchange
	pending   *models.ConversationTurn
}

// NewMemoryWindow creates a window holding at most k exchanges
func NewMemoryWindow(k int) *MemoryWindow {
	if k <= 0 {
		k = DefaultMemoryWindow
	}
	return &MemoryWindow{k: k}
}

// Append adds a turn. A user turn waits for the assistant turn that completes
// the exchange; a second user turn replaces it.
func (m *MemoryWindow) Append(turn models.ConversationTurn) {
	if turn.Role == models.RoleUser {
		t := turn
		m.pending = &t
		return
	}

	ex := models.Exchange{Assistant: turn}
	if m.pending != nil {
		ex.User = *m.pending
		m.pending = nil
	}
	m.exchanges = append(m.exchanges, ex)
	if len(m.exchanges) > m.k {
		m.exchanges = append([]models.Exchange(nil), m.exchanges[len(m.exchanges)-m.k:]...)
	}
}

// AppendExchange records a complete exchange
func (m *MemoryWindow) AppendExchange(user, assistant models.ConversationTurn) {
	m.Append(user)
	m.Append(assistant)
}

// Window returns the retained exchanges, oldest first
func (m *MemoryWindow) Window() []models.Exchange {
	return append([]models.Exchange(nil), m.exchanges...)
}

// Len returns the number of retained exchanges
func (m *MemoryWindow) Len() int {
	return len(m.exchanges)
}

// Clear drops everything
func (m *MemoryWindow) Clear() {
	m.exchanges = nil
	m.pending = nil
}

// Serialize renders the window as "Human: ...\nAI: ..." lines
func (m *MemoryWindow) Serialize() string {
	var lines []string
	for _, ex := range m.exchanges {
		if ex.User.Content != "" {
			lines = append(lines, "Human: "+ex.User.Content)
		}
		lines = append(lines, "AI: "+ex.Assistant.Content)
	}
	return strings.Join(lines, "\n")
}
