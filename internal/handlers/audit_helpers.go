package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messenger-service/internal/middleware"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// userIDFromContext reports the authenticated caller, or nil for
// anonymous requests. Identity only ever comes from the token
// middleware, never from headers.
func userIDFromContext(c *gin.Context) *int64 {
	if val, ok := c.Get(middleware.UserIDKey); ok {
		if userID, ok := val.(int); ok && userID != 0 {
			value := int64(userID)
			return &value
		}
	}
	return nil
}
