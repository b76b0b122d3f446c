package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-service/internal/apperrors"
	"collab-service/internal/models"
	"collab-service/internal/telemetry"
)

type MessagingService interface {
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	OpenConversation(ctx context.Context, conversationID, readerID string) ([]models.MessageWithSender, error)
	PostMessage(ctx context.Context, conversationID, senderID, content string) (models.Message, error)
	StartConversation(ctx context.Context, req models.NewConversation) (models.StartedConversation, error)
	MarkRead(ctx context.Context, conversationID, readerID string) (int64, error)
}

// MessageHandler manages conversation endpoints.
type MessageHandler struct {
	svc   MessagingService
	audit *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(svc MessagingService, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{svc: svc, audit: audit}
}

// postMessageBody is the union of the two accepted POST /messages shapes;
// NewConversation selects which one is validated.
type postMessageBody struct {
	NewConversation bool     `json:"newConversation"`
	ConversationID  string   `json:"conversationId"`
	Participants    []string `json:"participants"`
	Name            *string  `json:"name"`
	Content         string   `json:"content"`
}

type newConversationRequest struct {
	Participants []string `json:"participants" validate:"required,min=1,dive,id"`
	Name         *string  `json:"name" validate:"omitempty,max=200"`
	Content      string   `json:"content" validate:"required"`
}

type replyRequest struct {
	ConversationID string `json:"conversationId" validate:"required,id"`
	Content        string `json:"content" validate:"required"`
}

type markReadRequest struct {
	ConversationID string `json:"conversationId" binding:"required,id"`
}

// Get lists the caller's conversations, or opens one when conversationId is set.
func (h *MessageHandler) Get(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthenticated)
		return
	}

	if conversationID := c.Query("conversationId"); conversationID != "" {
		msgs, err := h.svc.OpenConversation(c.Request.Context(), conversationID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": msgs})
		return
	}

	convs, err := h.svc.ListConversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": convs})
}

// Post starts a conversation or replies to an existing one.
func (h *MessageHandler) Post(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthenticated)
		return
	}

	var body postMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apperrors.Validation("invalid request body"))
		return
	}

	if body.NewConversation {
		req := newConversationRequest{Participants: body.Participants, Name: body.Name, Content: body.Content}
		if err := validate.Struct(req); err != nil {
			respondError(c, bindingError(err))
			return
		}
		started, err := h.svc.StartConversation(c.Request.Context(), models.NewConversation{
			CreatorID:    userID,
			Participants: req.Participants,
			Name:         req.Name,
			Content:      req.Content,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		if started.Created {
			emitAudit(c, h.audit, "conversation started "+started.Conversation.ID)
		}
		c.JSON(http.StatusCreated, gin.H{"conversation": started.Conversation, "message": started.Message})
		return
	}

	req := replyRequest{ConversationID: body.ConversationID, Content: body.Content}
	if err := validate.Struct(req); err != nil {
		respondError(c, bindingError(err))
		return
	}
	msg, err := h.svc.PostMessage(c.Request.Context(), req.ConversationID, userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkRead flips the caller's unread messages in a conversation.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthenticated)
		return
	}

	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	updated, err := h.svc.MarkRead(c.Request.Context(), req.ConversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
