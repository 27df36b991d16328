package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studybridge/studybridge-api/internal/genai"
	"github.com/studybridge/studybridge-api/internal/models"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
)

type mockChatRepo struct {
	sessions map[string]models.ChatSession
	messages map[string][]models.ChatMessage
}

func newMockChatRepo() *mockChatRepo {
	return &mockChatRepo{
		sessions: make(map[string]models.ChatSession),
		messages: make(map[string][]models.ChatMessage),
	}
}

func (m *mockChatRepo) CreateSession(ctx context.Context, session *models.ChatSession) error {
	if session.ID == "" {
		session.ID = "sess-1"
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *mockChatRepo) FindSession(ctx context.Context, id string) (*models.ChatSession, error) {
	if s, ok := m.sessions[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockChatRepo) TouchSession(ctx context.Context, id string) error { return nil }

func (m *mockChatRepo) CountMessages(ctx context.Context, sessionID string) (int, error) {
	return len(m.messages[sessionID]), nil
}

func (m *mockChatRepo) ListMessages(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	return m.messages[sessionID], nil
}

func (m *mockChatRepo) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	if message.ID == "" {
		message.ID = "msg-generated"
	}
	m.messages[message.SessionID] = append(m.messages[message.SessionID], *message)
	return nil
}

type mockCompleter struct {
	reply    string
	err      error
	lastSys  string
	lastTurn []genai.Turn
}

func (m *mockCompleter) Complete(ctx context.Context, system string, turns []genai.Turn) (string, error) {
	m.lastSys = system
	m.lastTurn = turns
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type mockPublisher struct {
	channels []string
	payloads []interface{}
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, value interface{}) error {
	m.channels = append(m.channels, channel)
	m.payloads = append(m.payloads, value)
	return nil
}

func TestChatStartSessionSeedsWelcomeOnce(t *testing.T) {
	repo := newMockChatRepo()
	svc := NewChatService(repo, &mockCompleter{}, nil, nil, nil, zap.NewNop())

	session, welcome, err := svc.StartSession(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, welcome)
	assert.Equal(t, models.ChatMessageBot, welcome.Type)
	require.Len(t, repo.messages[session.ID], 1)

	// a second pass over the same session must not add another welcome
	again, err := svc.ensureWelcome(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Len(t, repo.messages[session.ID], 1)
}

func TestChatSendMessage(t *testing.T) {
	repo := newMockChatRepo()
	completer := &mockCompleter{reply: "Check the UK listings."}
	publisher := &mockPublisher{}
	svc := NewChatService(repo, completer, publisher, nil, nil, zap.NewNop())

	session, _, err := svc.StartSession(context.Background(), nil)
	require.NoError(t, err)

	reply, err := svc.SendMessage(context.Background(), session.ID, SendChatMessageRequest{Text: "Which agencies cover the UK?"})
	require.NoError(t, err)
	assert.Equal(t, models.ChatMessageBot, reply.Type)
	assert.Equal(t, "Check the UK listings.", reply.Text)

	// welcome + user + bot
	assert.Len(t, repo.messages[session.ID], 3)

	// history sent to the model starts with the user turn, never the welcome
	require.NotEmpty(t, completer.lastTurn)
	assert.Equal(t, "user", completer.lastTurn[0].Role)
	assert.NotEmpty(t, completer.lastSys)

	// welcome, user and bot messages all fanned out on the session channel
	require.Len(t, publisher.channels, 3)
	assert.Equal(t, "chat:"+session.ID, publisher.channels[0])
}

func TestChatSendMessageCompletionFailure(t *testing.T) {
	repo := newMockChatRepo()
	completer := &mockCompleter{err: errors.New("completion failed after 3 attempts")}
	svc := NewChatService(repo, completer, nil, nil, nil, zap.NewNop())

	session, _, err := svc.StartSession(context.Background(), nil)
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), session.ID, SendChatMessageRequest{Text: "Hello"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)

	// the user turn is still recorded
	assert.Len(t, repo.messages[session.ID], 2)
}

func TestChatSendMessageUnknownSession(t *testing.T) {
	svc := NewChatService(newMockChatRepo(), &mockCompleter{}, nil, nil, nil, zap.NewNop())

	_, err := svc.SendMessage(context.Background(), "missing", SendChatMessageRequest{Text: "Hello"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
