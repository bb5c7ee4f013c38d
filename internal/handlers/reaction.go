package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/middleware"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/repositories"
	"messenger-service/internal/ws"
)

// ReactionHandler manages the emoji reaction ledger.
type ReactionHandler struct {
	reactionRepo repositories.ReactionRepository
	messageRepo  repositories.MessageRepository
	convRepo     repositories.ConversationRepository
	hub          *ws.Hub
}

// NewReactionHandler builds a ReactionHandler.
func NewReactionHandler(reactionRepo repositories.ReactionRepository, messageRepo repositories.MessageRepository, convRepo repositories.ConversationRepository, hub *ws.Hub) *ReactionHandler {
	return &ReactionHandler{reactionRepo: reactionRepo, messageRepo: messageRepo, convRepo: convRepo, hub: hub}
}

// Toggle applies or removes the caller's reaction. Which emoji strings are
// acceptable is the client's business; the server only keeps the ledger
// consistent.
func (h *ReactionHandler) Toggle(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	msg, err := h.messageRepo.Get(c.Request.Context(), messageID)
	if err != nil {
		respondRepoError(c, err, "failed to load message")
		return
	}

	added, err := h.reactionRepo.Toggle(c.Request.Context(), messageID, userID, req.Emoji)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not toggle reaction"})
		return
	}

	observability.IncReactionToggled(added)
	h.hub.Broadcast(msg.ConversationID, models.ConversationEvent{
		Type:      models.EventReaction,
		MessageID: messageID,
		UserID:    userID,
		Emoji:     req.Emoji,
	})
	c.JSON(http.StatusOK, gin.H{"reacted": added})
}

// ForMessage returns the message's reactions grouped by emoji. Anonymous
// callers simply see reacted=false everywhere.
func (h *ReactionHandler) ForMessage(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	callerID := c.GetInt(middleware.UserIDKey)
	reactions, err := h.reactionRepo.ListForMessage(c.Request.Context(), messageID, callerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reactions": reactions})
}

// ForConversation is the batch form: the same grouping as ForMessage for
// every message of the conversation, computed in a single pass. Callers who
// cannot be resolved, or are not members, get an empty map.
func (h *ReactionHandler) ForConversation(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	empty := map[int][]models.ReactionSummary{}
	callerID := c.GetInt(middleware.UserIDKey)
	if callerID == 0 {
		c.JSON(http.StatusOK, gin.H{"reactions": empty})
		return
	}

	member, err := h.convRepo.IsMember(c.Request.Context(), conversationID, callerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusOK, gin.H{"reactions": empty})
		return
	}

	reactions, err := h.reactionRepo.ListForConversation(c.Request.Context(), conversationID, callerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reactions": reactions})
}
