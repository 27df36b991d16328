package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studybridge/studybridge-api/internal/genai"
	"github.com/studybridge/studybridge-api/internal/models"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
)

const chatHistoryWindow = 20

const chatSystemPrompt = "You are the StudyBridge assistant. You help students find overseas " +
	"education consultancies, understand application timelines, visas, test " +
	"requirements and study destinations. Answer briefly and factually. If a " +
	"question is outside overseas education, say so and steer back."

const chatWelcomeMessage = "Hi! I can help you compare consultancies, courses and study " +
	"destinations. What are you looking for?"

type chatRepository interface {
	CreateSession(ctx context.Context, session *models.ChatSession) error
	FindSession(ctx context.Context, id string) (*models.ChatSession, error)
	TouchSession(ctx context.Context, id string) error
	CountMessages(ctx context.Context, sessionID string) (int, error)
	ListMessages(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)
	CreateMessage(ctx context.Context, message *models.ChatMessage) error
}

type chatPublisher interface {
	Publish(ctx context.Context, channel string, value interface{}) error
}

// SendChatMessageRequest holds payload for one user chat turn.
type SendChatMessageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// ChatService runs the assistant widget: sessions, persisted history, one
// welcome message per session, and completions with realtime fan-out over
// Redis pub/sub.
type ChatService struct {
	repo      chatRepository
	completer genai.Completer
	publisher chatPublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChatService constructs the chat service.
func NewChatService(repo chatRepository, completer genai.Completer, publisher chatPublisher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ChatService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{repo: repo, completer: completer, publisher: publisher, metrics: metrics, validator: validate, logger: logger}
}

// StartSession opens a session and seeds it with the welcome message.
func (s *ChatService) StartSession(ctx context.Context, userID *string) (*models.ChatSession, *models.ChatMessage, error) {
	session := &models.ChatSession{UserID: userID}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create chat session")
	}

	welcome, err := s.ensureWelcome(ctx, session.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, welcome, nil
}

// History returns a session's messages in order.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	if _, err := s.mustLoadSession(ctx, sessionID); err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessages(ctx, sessionID, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chat history")
	}
	return messages, nil
}

// SendMessage records the user turn, obtains the assistant reply and
// publishes both for realtime subscribers.
func (s *ChatService) SendMessage(ctx context.Context, sessionID string, req SendChatMessageRequest) (*models.ChatMessage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chat payload")
	}
	if _, err := s.mustLoadSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if _, err := s.ensureWelcome(ctx, sessionID); err != nil {
		return nil, err
	}

	userMsg := &models.ChatMessage{
		SessionID: sessionID,
		Type:      models.ChatMessageUser,
		Text:      strings.TrimSpace(req.Text),
	}
	if err := s.repo.CreateMessage(ctx, userMsg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store message")
	}
	s.publish(ctx, sessionID, userMsg)

	turns, err := s.historyTurns(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reply, err := s.completer.Complete(ctx, chatSystemPrompt, turns)
	if err != nil {
		s.metrics.RecordChatCompletionFailure()
		s.logger.Error("assistant completion failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "assistant is unavailable, try again shortly")
	}

	botMsg := &models.ChatMessage{
		SessionID: sessionID,
		Type:      models.ChatMessageBot,
		Text:      reply,
	}
	if err := s.repo.CreateMessage(ctx, botMsg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reply")
	}
	s.publish(ctx, sessionID, botMsg)

	if err := s.repo.TouchSession(ctx, sessionID); err != nil {
		s.logger.Warn("chat session touch failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	return botMsg, nil
}

// ensureWelcome stores the welcome message if the session has none yet.
func (s *ChatService) ensureWelcome(ctx context.Context, sessionID string) (*models.ChatMessage, error) {
	count, err := s.repo.CountMessages(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect chat session")
	}
	if count > 0 {
		return nil, nil
	}
	welcome := &models.ChatMessage{
		SessionID: sessionID,
		Type:      models.ChatMessageBot,
		Text:      chatWelcomeMessage,
	}
	if err := s.repo.CreateMessage(ctx, welcome); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store welcome message")
	}
	s.publish(ctx, sessionID, welcome)
	return welcome, nil
}

func (s *ChatService) historyTurns(ctx context.Context, sessionID string) ([]genai.Turn, error) {
	messages, err := s.repo.ListMessages(ctx, sessionID, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chat history")
	}
	if len(messages) > chatHistoryWindow {
		messages = messages[len(messages)-chatHistoryWindow:]
	}
	// the messages API requires the conversation to open with a user turn
	for len(messages) > 0 && messages[0].Type == models.ChatMessageBot {
		messages = messages[1:]
	}
	turns := make([]genai.Turn, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Type == models.ChatMessageBot {
			role = "assistant"
		}
		turns = append(turns, genai.Turn{Role: role, Text: msg.Text})
	}
	return turns, nil
}

func (s *ChatService) mustLoadSession(ctx context.Context, id string) (*models.ChatSession, error) {
	session, err := s.repo.FindSession(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "chat session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chat session")
	}
	return session, nil
}

func (s *ChatService) publish(ctx context.Context, sessionID string, msg *models.ChatMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, "chat:"+sessionID, msg); err != nil {
		s.logger.Warn("chat publish failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}
