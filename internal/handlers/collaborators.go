package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-service/internal/apperrors"
	"collab-service/internal/models"
	"collab-service/internal/telemetry"
)

type CollaboratorService interface {
	Like(ctx context.Context, userID, targetID string) (models.LikeOutcome, error)
	Unlike(ctx context.Context, userID, targetID string) error
	ListMatches(ctx context.Context, userID string) ([]models.MatchWithProfile, error)
	ListPotential(ctx context.Context, userID string) ([]models.ProfileSummary, error)
}

// CollaboratorHandler manages collaborator matching endpoints.
type CollaboratorHandler struct {
	svc   CollaboratorService
	audit *telemetry.AuditEmitter
}

// NewCollaboratorHandler builds a CollaboratorHandler.
func NewCollaboratorHandler(svc CollaboratorService, audit *telemetry.AuditEmitter) *CollaboratorHandler {
	return &CollaboratorHandler{svc: svc, audit: audit}
}

type likeRequest struct {
	MatchedUserID string `json:"matchedUserId" binding:"required,id"`
}

type likeResponse struct {
	models.MatchEdge
	ConversationID string `json:"conversation_id,omitempty"`
}

// Like records the caller's interest in another user.
func (h *CollaboratorHandler) Like(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthenticated)
		return
	}

	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	out, err := h.svc.Like(c.Request.Context(), userID, req.MatchedUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	if out.Matched {
		emitAudit(c, h.audit, "collaborator matched with "+out.Edge.MatchedUserID)
	} else {
		emitAudit(c, h.audit, "collaborator interest sent to "+out.Edge.MatchedUserID)
	}
	c.JSON(http.StatusCreated, likeResponse{MatchEdge: out.Edge, ConversationID: out.ConversationID})
}

// Unlike removes the caller's outbound edge.
func (h *CollaboratorHandler) Unlike(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthenticated)
		return
	}

	target := c.Query("matchedUserId")
	if target == "" {
		respondError(c, apperrors.Validation("matchedUserId is required"))
		return
	}

	if err := h.svc.Unlike(c.Request.Context(), userID, target); err != nil {
		respondError(c, err)
		return
	}

	emitAudit(c, h.audit, "collaborator interest withdrawn from "+target)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// List serves ?action=matches and ?action=potential.
func (h *CollaboratorHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthenticated)
		return
	}

	switch c.Query("action") {
	case "matches":
		matches, err := h.svc.ListMatches(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": matches})
	case "potential":
		profiles, err := h.svc.ListPotential(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": profiles})
	default:
		respondError(c, apperrors.Validation("invalid action"))
	}
}
