package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/auth"
	"messenger-service/internal/repositories"
)

// Context keys set by the auth middlewares.
const (
	IdentityKey = "identity"
	UserIDKey   = "userID"
)

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// Identified requires a verified identity assertion but not an onboarded
// profile. Profile upsert runs behind this one; everything else wants
// Authenticated.
func Identified(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		ident, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(IdentityKey, ident)
		c.Next()
	}
}

// Authenticated requires a verified identity AND an onboarded profile. A
// verified caller whose profile upsert has not landed yet is distinguishable
// from an unauthenticated one.
func Authenticated(verifier *auth.Verifier, users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		ident, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := users.GetByExternalID(c.Request.Context(), ident.Subject)
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "profile not set up", "code": "profile_not_found"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve profile"})
			return
		}

		c.Set(IdentityKey, ident)
		c.Set(UserIDKey, user.ID)
		c.Next()
	}
}

// OptionalAuth resolves the caller when it can and stays silent when it
// cannot. Read paths behind it degrade to empty results during the window
// between sign-in and profile upsert.
func OptionalAuth(verifier *auth.Verifier, users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		ident, err := verifier.Verify(token)
		if err != nil {
			c.Next()
			return
		}
		c.Set(IdentityKey, ident)

		if user, err := users.GetByExternalID(c.Request.Context(), ident.Subject); err == nil {
			c.Set(UserIDKey, user.ID)
		}
		c.Next()
	}
}
