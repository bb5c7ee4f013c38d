package ws

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/auth"
	"messenger-service/internal/observability"
	"messenger-service/internal/repositories"
)

// ConversationWebSocketHandler upgrades subscribers into conversation rooms.
type ConversationWebSocketHandler struct {
	hub      *Hub
	verifier *auth.Verifier
	users    repositories.UserRepository
	convs    repositories.ConversationRepository
}

// NewConversationWebSocketHandler constructs a ConversationWebSocketHandler.
func NewConversationWebSocketHandler(hub *Hub, verifier *auth.Verifier, users repositories.UserRepository, convs repositories.ConversationRepository) *ConversationWebSocketHandler {
	return &ConversationWebSocketHandler{hub: hub, verifier: verifier, users: users, convs: convs}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the subscriber, checks membership and registers the
// connection. Browsers cannot set headers on websocket dials, so the token
// may also arrive as a query parameter.
func (h *ConversationWebSocketHandler) Handle(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := h.resolveUser(ctx, c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	member, err := h.convs.IsMember(ctx, conversationID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(conversationID, conn, info)

	observability.IncWSActive()
	publishConnEvent(ctx, conversationID, info, "ws_connect", "")

	go h.readLoop(ctx, conversationID, conn, info)
}

func (h *ConversationWebSocketHandler) readLoop(ctx context.Context, conversationID int, conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.RemoveClient(conversationID, conn)
		observability.DecWSActive()
		publishConnEvent(ctx, conversationID, info, "ws_disconnect", closeReason)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishConnEvent(ctx, conversationID, info, "ws_error", closeReason)
			}
			return
		}
	}
}

func (h *ConversationWebSocketHandler) resolveUser(ctx context.Context, c *gin.Context) (int, error) {
	token := c.GetHeader("Authorization")
	if parts := strings.SplitN(token, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		token = parts[1]
	} else {
		token = c.Query("token")
	}
	if token == "" {
		return 0, errors.New("missing token")
	}

	ident, err := h.verifier.Verify(token)
	if err != nil {
		return 0, err
	}
	user, err := h.users.GetByExternalID(ctx, ident.Subject)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func publishConnEvent(ctx context.Context, conversationID int, info ConnInfo, event, reason string) {
	observability.IncWSEvent(event)
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"conversation_id": conversationID,
				"event":           event,
				"conn_id":         info.ConnID,
				"duration_ms":     time.Since(info.ConnectedAt).Milliseconds(),
				"reason":          reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
