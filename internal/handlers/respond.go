package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/repositories"
)

// respondRepoError maps repository sentinels to HTTP statuses. Unknown
// errors collapse to a 500 with the supplied message so internals never leak.
func respondRepoError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repositories.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrNotMember):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
	case errors.Is(err, repositories.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	case errors.Is(err, repositories.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, repositories.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case errors.Is(err, repositories.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
