package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messenger-service/internal/storage"
)

// UploadHandler fronts the object-storage collaborator. Messages only ever
// store the handle; bytes flow between client and storage directly.
type UploadHandler struct {
	store storage.ObjectStore
}

// NewUploadHandler builds an UploadHandler.
func NewUploadHandler(store storage.ObjectStore) *UploadHandler {
	return &UploadHandler{store: store}
}

// RequestTarget mints a fresh handle and a pre-authorized upload URL for it.
// Storage trouble is reported as a gateway failure, distinct from request
// validation, so clients keep the user's draft.
func (h *UploadHandler) RequestTarget(c *gin.Context) {
	handle := uuid.NewString()

	url, err := h.store.PresignUpload(c.Request.Context(), handle)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "storage unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create upload target"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"handle": handle, "url": url})
}

// ResolveURL exchanges a handle for a retrievable URL. A handle that no
// longer resolves yields null rather than an error.
func (h *UploadHandler) ResolveURL(c *gin.Context) {
	handle := c.Param("handle")

	url, err := h.store.PresignDownload(c.Request.Context(), handle)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"url": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
