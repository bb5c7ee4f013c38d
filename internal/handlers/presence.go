package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/middleware"
	"messenger-service/internal/presence"
)

// PresenceHandler manages online intent and heartbeats.
type PresenceHandler struct {
	tracker presence.Tracker
}

// NewPresenceHandler builds a PresenceHandler.
func NewPresenceHandler(tracker presence.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

// SetOnline records online intent with a fresh heartbeat.
func (h *PresenceHandler) SetOnline(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)
	if err := h.tracker.SetOnline(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update presence"})
		return
	}
	c.Status(http.StatusNoContent)
}

// SetOffline records offline intent.
func (h *PresenceHandler) SetOffline(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)
	if err := h.tracker.SetOffline(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update presence"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Heartbeat keeps an existing presence row fresh. A heartbeat without a
// prior online signal changes nothing.
func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)
	if err := h.tracker.Heartbeat(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update presence"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMap returns effective online state for every known user. A user whose
// client crashed fades out as heartbeats stop arriving; no job flips them.
func (h *PresenceHandler) GetMap(c *gin.Context) {
	snapshot, err := h.tracker.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load presence"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"presence": snapshot})
}
