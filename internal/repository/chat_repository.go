package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studybridge/studybridge-api/internal/models"
)

// ChatRepository persists chat sessions and their message history.
type ChatRepository struct {
	db *sqlx.DB
}

// NewChatRepository constructs a ChatRepository.
func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateSession inserts a new chat session.
func (r *ChatRepository) CreateSession(ctx context.Context, session *models.ChatSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO chat_sessions (id, user_id, created_at, updated_at)
		VALUES (:id, :user_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create chat session: %w", err)
	}
	return nil
}

// FindSession fetches a chat session by id.
func (r *ChatRepository) FindSession(ctx context.Context, id string) (*models.ChatSession, error) {
	const query = `SELECT id, user_id, created_at, updated_at FROM chat_sessions WHERE id = $1`
	var session models.ChatSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// TouchSession bumps the session's updated_at timestamp.
func (r *ChatRepository) TouchSession(ctx context.Context, id string) error {
	const query = `UPDATE chat_sessions SET updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch chat session: %w", err)
	}
	return nil
}

// CountMessages returns the number of messages stored for a session.
func (r *ChatRepository) CountMessages(ctx context.Context, sessionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM chat_messages WHERE session_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sessionID); err != nil {
		return 0, fmt.Errorf("count chat messages: %w", err)
	}
	return count, nil
}

// ListMessages returns a session's messages in chronological order.
func (r *ChatRepository) ListMessages(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	query := `SELECT id, session_id, type, text, created_at FROM chat_messages WHERE session_id = $1 ORDER BY created_at`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	var messages []models.ChatMessage
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	return messages, nil
}

// CreateMessage appends a message to a session.
func (r *ChatRepository) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO chat_messages (id, session_id, type, text, created_at)
		VALUES (:id, :session_id, :type, :text, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create chat message: %w", err)
	}
	return nil
}
