// ABOUTME: ConversationTurn is one user or assistant message in a session transcript
// ABOUTME: Timestamps render in the "2006-01-02 15:04:05" layout used by exports
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the display format for turn timestamps
const TimestampLayout = "2006-01-02 15:04:05"

// Role identifies who produced a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Title returns the capitalized role name used in transcripts
func (r Role) Title() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// ConversationTurn represents a single message in the conversation log
type ConversationTurn struct {
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// NewConversationTurn creates a turn stamped with the current local time
func NewConversationTurn(role Role, content string) (*ConversationTurn, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	if role == RoleUser && strings.TrimSpace(content) == "" {
		return nil, errors.New("user message cannot be empty")
	}
	return &ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}

// FormattedTimestamp renders the timestamp with TimestampLayout
func (t ConversationTurn) FormattedTimestamp() string {
	return t.Timestamp.Format(TimestampLayout)
}
