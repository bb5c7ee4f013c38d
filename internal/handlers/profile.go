package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/auth"
	"messenger-service/internal/middleware"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// ProfileHandler manages profile onboarding and user discovery.
type ProfileHandler struct {
	userRepo repositories.UserRepository
	audit    *telemetry.AuditEmitter
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *ProfileHandler {
	return &ProfileHandler{userRepo: userRepo, audit: audit}
}

// UpsertProfile creates or refreshes the caller's profile from the verified
// identity assertion. The subject id and email always come from the
// assertion; the body may override the display name and avatar. Called once
// per session bootstrap and safe to repeat.
func (h *ProfileHandler) UpsertProfile(c *gin.Context) {
	val, ok := c.Get(middleware.IdentityKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	ident := val.(auth.Identity)

	var req struct {
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	// body is optional; claims are the default
	_ = c.ShouldBindJSON(&req)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = ident.Name
	}
	avatarURL := req.AvatarURL
	if avatarURL == "" {
		avatarURL = ident.AvatarURL
	}

	user, err := h.userRepo.Upsert(c.Request.Context(), ident.Subject, name, ident.Email, avatarURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save profile"})
		return
	}

	h.emitAudit(c, "INFO", "Profile upserted")
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Me returns the caller's profile, or null while onboarding has not landed.
func (h *ProfileHandler) Me(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)
	if userID == 0 {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	user, err := h.userRepo.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ListUsers returns every other onboarded profile, for starting new
// conversations.
func (h *ProfileHandler) ListUsers(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)

	users, err := h.userRepo.ListOthers(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *ProfileHandler) emitAudit(c *gin.Context, level, text string) {
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
