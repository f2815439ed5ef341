// Package store persists chat messages in PostgreSQL, bare SQL over pgxpool.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRecord is one persisted chat message.
type MessageRecord struct {
	ID             int64           `db:"id" json:"id"`
	SessionID      string          `db:"session_id" json:"sessionId"`
	Role           string          `db:"role" json:"role"` // user | assistant | system
	Content        string          `db:"content" json:"content"`
	CodeReferences json.RawMessage `db:"code_references" json:"codeReferences,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

// SessionMessageStore is the session_messages table access layer.
type SessionMessageStore struct {
	pool *pgxpool.Pool
}

// NewSessionMessageStore creates the store.
func NewSessionMessageStore(pool *pgxpool.Pool) *SessionMessageStore {
	return &SessionMessageStore{pool: pool}
}

const msgCols = "id, session_id, role, content, code_references, created_at"

// Insert writes one message.
func (s *SessionMessageStore) Insert(ctx context.Context, rec *MessageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO session_messages (session_id, role, content, code_references, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		rec.SessionID, rec.Role, rec.Content, rec.CodeReferences, rec.CreatedAt).Scan(&rec.ID)
}

// ListBySession returns a session's messages in insertion order.
func (s *SessionMessageStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]MessageRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+msgCols+" FROM session_messages WHERE session_id=$1 ORDER BY id ASC LIMIT $2",
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByNameLax[MessageRecord])
}

// CountBySession returns a session's message count.
func (s *SessionMessageStore) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM session_messages WHERE session_id=$1", sessionID).Scan(&count)
	return count, err
}

// DeleteBySession removes a session's persisted history.
func (s *SessionMessageStore) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM session_messages WHERE session_id=$1", sessionID)
	return err
}
