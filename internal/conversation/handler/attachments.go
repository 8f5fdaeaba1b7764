package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"chatdesk_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AttachmentStore uploads widget attachments and mints download links.
type AttachmentStore interface {
	Upload(ctx context.Context, orgID uuid.UUID, filename, contentType string, size int64, r io.Reader) (string, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// UploadAttachment accepts one multipart file from the widget and returns
// the object key to reference in a follow-up message.
func (h *WidgetHandler) UploadAttachment(c *gin.Context) {
	if h.attachments == nil {
		httpkit.Error(c, http.StatusNotImplemented, "attachments are not enabled")
		return
	}

	key := widgetKeyFrom(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not read file")
		return
	}
	defer file.Close()

	objectKey, err := h.attachments.Upload(
		c.Request.Context(),
		key.OrganizationID,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, gin.H{"attachment_key": objectKey})
}

// AttachmentURL returns a short-lived download link for an attachment key.
func (h *WidgetHandler) AttachmentURL(c *gin.Context) {
	if h.attachments == nil {
		httpkit.Error(c, http.StatusNotImplemented, "attachments are not enabled")
		return
	}

	objectKey := c.Query("key")
	if objectKey == "" {
		httpkit.Error(c, http.StatusBadRequest, "key is required")
		return
	}

	// Object keys are namespaced by organization; a widget key can only
	// mint links inside its own namespace.
	key := widgetKeyFrom(c)
	if !strings.HasPrefix(objectKey, key.OrganizationID.String()+"/") {
		httpkit.Error(c, http.StatusForbidden, "unknown attachment key")
		return
	}

	url, err := h.attachments.PresignedURL(c.Request.Context(), objectKey, time.Hour)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusOK, gin.H{"url": url})
}
