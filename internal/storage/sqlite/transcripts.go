// ABOUTME: Transcript storage operations for SQLite
// ABOUTME: Persists chat sessions and their turns so history can be listed and exported
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harper/optimedix/internal/models"
)

// SessionInfo summarizes a stored session
type SessionInfo struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	TurnCount int       `json:"turn_count" yaml:"turn_count"`
}

// TranscriptStore handles session and turn persistence
type TranscriptStore struct {
	db *DB
}

// NewTranscriptStore creates a new TranscriptStore
func NewTranscriptStore(db *DB) *TranscriptStore {
	return &TranscriptStore{db: db}
}

// Append stores a turn, creating the session row on first use
func (s *TranscriptStore) Append(ctx context.Context, sessionID string, turn models.ConversationTurn) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		now := time.Now()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at
		`, sessionID, now, now); err != nil {
			return fmt.Errorf("failed to upsert session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)
		`, sessionID, string(turn.Role), turn.Content, turn.Timestamp); err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
		return nil
	})
}

// Turns returns the transcript of a session in insertion order
func (s *TranscriptStore) Turns(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	rows, err := s.db.Query(ctx, `
		SELECT role, content, created_at
		FROM turns
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var turns []models.ConversationTurn
	for rows.Next() {
		var (
			turn models.ConversationTurn
			role string
		)
		if err := rows.Scan(&role, &turn.Content, &turn.Timestamp); err != nil {
			return nil, err
		}
		turn.Role = models.Role(role)
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// Sessions lists stored sessions, most recently updated first
func (s *TranscriptStore) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.id, s.created_at, s.updated_at, COUNT(t.seq)
		FROM sessions s
		LEFT JOIN turns t ON t.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.CreatedAt, &info.UpdatedAt, &info.TurnCount); err != nil {
			return nil, err
		}
		sessions = append(sessions, info)
	}
	return sessions, rows.Err()
}

// Clear removes every turn of a session but keeps the session row
func (s *TranscriptStore) Clear(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM turns WHERE session_id = ?", sessionID)
	return err
}

// Delete removes a session and its turns
func (s *TranscriptStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	return err
}
