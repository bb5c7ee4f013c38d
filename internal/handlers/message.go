package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/middleware"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
	"messenger-service/internal/repositories"
	"messenger-service/internal/storage"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

// MessageHandler manages message endpoints.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
	convRepo    repositories.ConversationRepository
	userRepo    repositories.UserRepository
	typing      presence.TypingTracker
	store       storage.ObjectStore
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messageRepo repositories.MessageRepository, convRepo repositories.ConversationRepository, userRepo repositories.UserRepository, typing presence.TypingTracker, store storage.ObjectStore, hub *ws.Hub, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		messageRepo: messageRepo,
		convRepo:    convRepo,
		userRepo:    userRepo,
		typing:      typing,
		store:       store,
		hub:         hub,
		audit:       audit,
	}
}

// Send validates, persists and broadcasts a message. A message needs trimmed
// text or an attachment; persisting, bumping the conversation pointer and
// advancing the sender's read cursor happen in one transaction, so a failed
// send leaves nothing behind and the client may retry with the same input.
func (h *MessageHandler) Send(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var req struct {
		Content    string             `json:"content"`
		Attachment *models.Attachment `json:"attachment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" && req.Attachment == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message needs text or an attachment"})
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

	msg, err := h.messageRepo.Create(c.Request.Context(), conversationID, userID, content, req.Attachment)
	if err != nil {
		h.emitAudit(c, "ERROR", "message store failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	// sending ends the sender's typing signal
	_ = h.typing.ClearTyping(c.Request.Context(), conversationID, userID)
	observability.IncMessageSent()

	sender, err := h.userRepo.GetUser(c.Request.Context(), userID)
	if err == nil {
		view := models.MessageView{Message: msg, Sender: sender}
		h.hub.Broadcast(conversationID, models.ConversationEvent{Type: models.EventMessage, Message: &view})
		h.hub.Broadcast(conversationID, models.ConversationEvent{Type: models.EventTyping, UserID: userID, Typing: false})
	}

	c.JSON(http.StatusCreated, msg)
}

// List returns the conversation's messages oldest first, resolved for the
// caller. Unresolved callers and non-members get an empty list; that keeps
// reads safe during the onboarding window.
func (h *MessageHandler) List(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	empty := []models.MessageView{}
	userID := c.GetInt(middleware.UserIDKey)
	if userID == 0 {
		c.JSON(http.StatusOK, gin.H{"messages": empty})
		return
	}

	member, err := h.convRepo.IsMember(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusOK, gin.H{"messages": empty})
		return
	}

	msgs, err := h.messageRepo.ListForConversation(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	views, err := h.resolve(c, msgs, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load senders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": views})
}

// resolve attaches sender profiles, ownership and attachment URLs. A handle
// that fails to resolve yields a null URL instead of failing the list.
func (h *MessageHandler) resolve(c *gin.Context, msgs []models.Message, userID int) ([]models.MessageView, error) {
	senderIDs := make([]int, 0, len(msgs))
	seen := map[int]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	senders, err := h.userRepo.BulkUsers(c.Request.Context(), senderIDs)
	if err != nil {
		return nil, err
	}
	senderByID := map[int]models.User{}
	for _, u := range senders {
		senderByID[u.ID] = u
	}

	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		view := models.MessageView{
			Message: m,
			Sender:  senderByID[m.SenderID],
			IsOwn:   m.SenderID == userID,
		}
		if m.AttachmentID != nil && !m.Deleted {
			if url, err := h.store.PresignDownload(c.Request.Context(), *m.AttachmentID); err == nil {
				view.AttachmentURL = &url
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// Delete soft-deletes the caller's own message: content cleared, flag set,
// attachment reference kept. Only the original sender may do this.
func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	msg, err := h.messageRepo.Get(c.Request.Context(), messageID)
	if err != nil {
		respondRepoError(c, err, "failed to load message")
		return
	}
	if msg.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender can delete a message"})
		return
	}

	if err := h.messageRepo.SoftDelete(c.Request.Context(), messageID); err != nil {
		respondRepoError(c, err, "could not delete message")
		return
	}

	h.hub.Broadcast(msg.ConversationID, models.ConversationEvent{Type: models.EventMessageDeleted, MessageID: messageID})
	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
