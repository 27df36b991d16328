package models

import "time"

// ChatMessageType distinguishes user turns from assistant turns.
type ChatMessageType string

const (
	ChatMessageUser ChatMessageType = "user"
	ChatMessageBot  ChatMessageType = "bot"
)

// ChatSession groups the messages of one widget conversation.
type ChatSession struct {
	ID        string    `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ChatMessage is a single persisted chat turn.
type ChatMessage struct {
	ID        string          `db:"id" json:"id"`
	SessionID string          `db:"session_id" json:"session_id"`
	Type      ChatMessageType `db:"type" json:"type"`
	Text      string          `db:"text" json:"text"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
