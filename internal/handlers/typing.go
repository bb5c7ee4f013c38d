package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/middleware"
	"messenger-service/internal/models"
	"messenger-service/internal/presence"
	"messenger-service/internal/repositories"
	"messenger-service/internal/ws"
)

// TypingHandler manages ephemeral typing signals.
type TypingHandler struct {
	typing   presence.TypingTracker
	convRepo repositories.ConversationRepository
	userRepo repositories.UserRepository
	hub      *ws.Hub
}

// NewTypingHandler builds a TypingHandler.
func NewTypingHandler(typing presence.TypingTracker, convRepo repositories.ConversationRepository, userRepo repositories.UserRepository, hub *ws.Hub) *TypingHandler {
	return &TypingHandler{typing: typing, convRepo: convRepo, userRepo: userRepo, hub: hub}
}

// Set refreshes the caller's typing signal in the conversation.
func (h *TypingHandler) Set(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	member, err := h.convRepo.IsMember(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	if err := h.typing.SetTyping(c.Request.Context(), conversationID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record typing"})
		return
	}

	h.hub.Broadcast(conversationID, models.ConversationEvent{Type: models.EventTyping, UserID: userID, Typing: true})
	c.Status(http.StatusNoContent)
}

// Clear drops the caller's typing signal; clearing a signal that is not
// there is fine.
func (h *TypingHandler) Clear(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	if err := h.typing.ClearTyping(c.Request.Context(), conversationID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear typing"})
		return
	}

	h.hub.Broadcast(conversationID, models.ConversationEvent{Type: models.EventTyping, UserID: userID, Typing: false})
	c.Status(http.StatusNoContent)
}

// Get returns who else is actively typing in the conversation, resolved to
// profiles. Staleness is applied at read time; the caller never sees their
// own signal.
func (h *TypingHandler) Get(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	empty := []models.User{}
	userID := c.GetInt(middleware.UserIDKey)
	if userID == 0 {
		c.JSON(http.StatusOK, gin.H{"users": empty})
		return
	}

	member, err := h.convRepo.IsMember(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusOK, gin.H{"users": empty})
		return
	}

	ids, err := h.typing.TypingUserIDs(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load typing state"})
		return
	}
	if len(ids) == 0 {
		c.JSON(http.StatusOK, gin.H{"users": empty})
		return
	}

	users, err := h.userRepo.BulkUsers(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
