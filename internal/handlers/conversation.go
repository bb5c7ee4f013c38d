package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/middleware"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

// ConversationHandler manages conversation and membership endpoints.
type ConversationHandler struct {
	convRepo repositories.ConversationRepository
	hub      *ws.Hub
	audit    *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(convRepo repositories.ConversationRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{convRepo: convRepo, hub: hub, audit: audit}
}

// StartDirect returns the direct conversation with another user, creating it
// on first contact. Idempotent by construction.
func (h *ConversationHandler) StartDirect(c *gin.Context) {
	var req struct {
		OtherUserID int `json:"other_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	conv, err := h.convRepo.GetOrCreateDirect(c.Request.Context(), userID, req.OtherUserID)
	if err != nil {
		respondRepoError(c, err, "could not start conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": conv.ID})
}

// CreateGroup handles POST /conversations/group.
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)

	var req struct {
		Name      string `json:"name" binding:"required"`
		MemberIDs []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.convRepo.CreateGroup(c.Request.Context(), userID, req.Name, req.MemberIDs)
	if err != nil {
		respondRepoError(c, err, "could not create group")
		return
	}

	h.emitAudit(c, "INFO", "Group created")
	c.JSON(http.StatusCreated, gin.H{"conversation_id": conv.ID})
}

// List returns the caller's conversations, newest activity first, each with
// members, last message and unread count. An unresolved caller gets an empty
// list, never an error.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)
	if userID == 0 {
		c.JSON(http.StatusOK, gin.H{"conversations": []models.ConversationSummary{}})
		return
	}

	conversations, err := h.convRepo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// Get fails closed: a conversation that does not exist and one the caller is
// not a member of are both reported as null.
func (h *ConversationHandler) Get(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	if userID == 0 {
		c.JSON(http.StatusOK, gin.H{"conversation": nil})
		return
	}

	conv, err := h.convRepo.GetForUser(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// MarkRead advances the caller's read cursor; the only way unread counts go
// down.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	if err := h.convRepo.MarkRead(c.Request.Context(), conversationID, userID); err != nil {
		respondRepoError(c, err, "could not mark as read")
		return
	}

	h.hub.Broadcast(conversationID, models.ConversationEvent{Type: models.EventRead, UserID: userID})
	c.Status(http.StatusNoContent)
}

func (h *ConversationHandler) emitAudit(c *gin.Context, level, text string) {
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
