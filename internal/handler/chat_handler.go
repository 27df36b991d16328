package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/studybridge/studybridge-api/internal/service"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
	"github.com/studybridge/studybridge-api/pkg/response"
)

type chatSubscriber interface {
	Subscribe(ctx context.Context, channel string) *redis.PubSub
}

// ChatHandler exposes the assistant widget endpoints.
type ChatHandler struct {
	service    *service.ChatService
	subscriber chatSubscriber
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *service.ChatService, subscriber chatSubscriber) *ChatHandler {
	return &ChatHandler{service: svc, subscriber: subscriber}
}

// StartSession godoc
// @Summary Start a chat session
// @Description Open a session and receive the welcome message
// @Tags Chat
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /chat/sessions [post]
func (h *ChatHandler) StartSession(c *gin.Context) {
	var userID *string
	if claims := claimsFromContext(c); claims != nil {
		userID = &claims.UserID
	}

	session, welcome, err := h.service.StartSession(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"session": session, "welcome": welcome})
}

// History godoc
// @Summary Get chat history
// @Tags Chat
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chat/sessions/{id}/messages [get]
func (h *ChatHandler) History(c *gin.Context) {
	messages, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}

// SendMessage godoc
// @Summary Send a chat message
// @Description Send a user message and receive the assistant reply
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.SendChatMessageRequest true "Message payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /chat/sessions/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req service.SendChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}

	reply, err := h.service.SendMessage(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reply, nil)
}

// Stream godoc
// @Summary Stream session messages
// @Description Server-sent events feed of messages published to the session
// @Tags Chat
// @Produce text/event-stream
// @Param id path string true "Session ID"
// @Success 200 {string} string "event stream"
// @Router /chat/sessions/{id}/stream [get]
func (h *ChatHandler) Stream(c *gin.Context) {
	if h.subscriber == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "streaming unavailable"))
		return
	}
	if _, err := h.service.History(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	sub := h.subscriber.Subscribe(c.Request.Context(), "chat:"+c.Param("id"))
	if sub == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "streaming unavailable"))
		return
	}
	defer sub.Close() //nolint:errcheck

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ch := sub.Channel()
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("message", msg.Payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
