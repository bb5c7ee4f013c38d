package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// Hub maintains the active websocket room per conversation. Direct and group
// conversations share one room namespace; membership was already checked at
// handshake time.
type Hub struct {
	rooms  map[int]map[*websocket.Conn]ConnInfo
	mu     sync.RWMutex
	logger *zap.SugaredLogger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		rooms:  make(map[int]map[*websocket.Conn]ConnInfo),
		logger: logger,
	}
}

// AddClient registers a websocket connection to a conversation room.
func (h *Hub) AddClient(conversationID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.rooms[conversationID][conn] = info
}

// RemoveClient removes a connection from a conversation room.
func (h *Hub) RemoveClient(conversationID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[conversationID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// RoomSize reports how many connections a conversation room currently holds.
func (h *Hub) RoomSize(conversationID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// Broadcast pushes an event to every connection in the conversation room.
// This is the delivery half of the invalidation contract: each write handler
// broadcasts into the room its write affects. Dead connections are evicted
// on write failure.
func (h *Hub) Broadcast(conversationID int, event models.ConversationEvent) {
	h.mu.RLock()
	conns := make(map[*websocket.Conn]ConnInfo, len(h.rooms[conversationID]))
	for conn, info := range h.rooms[conversationID] {
		conns[conn] = info
	}
	h.mu.RUnlock()

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorw("event marshal failed", "error", err)
		return
	}
	for conn, info := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warnw("websocket write failed", "conversation_id", conversationID, "error", err)
			conn.Close()
			h.RemoveClient(conversationID, conn)
			h.publishWSError(conversationID, info, err)
		}
	}
}

func (h *Hub) publishWSError(conversationID int, info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"conversation_id": conversationID,
			"event":           "ws_error",
			"conn_id":         info.ConnID,
			"duration_ms":     time.Since(info.ConnectedAt).Milliseconds(),
			"reason":          err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}

const wsRoutingKey = "ws_events.conversations"
