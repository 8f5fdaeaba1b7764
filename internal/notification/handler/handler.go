// Package handler exposes notification settings and the webhook test send.
package handler

import (
	"net/http"
	"time"

	"chatdesk_backend/internal/notification/repository"
	notifsvc "chatdesk_backend/internal/notification/service"
	"chatdesk_backend/platform/httpkit"
	"chatdesk_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	dispatcher *notifsvc.Dispatcher
	log        *logger.Logger
}

func NewHandler(dispatcher *notifsvc.Dispatcher, log *logger.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, log: log}
}

type settingsResponse struct {
	EmailEnabled              bool       `json:"email_enabled"`
	InAppEnabled              bool       `json:"in_app_enabled"`
	WebhookEnabled            bool       `json:"webhook_enabled"`
	WebhookURL                string     `json:"webhook_url,omitempty"`
	WebhookVerificationStatus string     `json:"webhook_verification_status"`
	WebhookVerifiedAt         *time.Time `json:"webhook_verified_at,omitempty"`
	WebhookFailureCount       int        `json:"webhook_failure_count"`
	NotifyEmail               string     `json:"notify_email,omitempty"`
}

func toSettingsResponse(s *repository.Settings) settingsResponse {
	return settingsResponse{
		EmailEnabled:              s.EmailEnabled,
		InAppEnabled:              s.InAppEnabled,
		WebhookEnabled:            s.WebhookEnabled,
		WebhookURL:                s.WebhookURL,
		WebhookVerificationStatus: s.WebhookVerificationStatus,
		WebhookVerifiedAt:         s.WebhookVerifiedAt,
		WebhookFailureCount:       s.WebhookFailureCount,
		NotifyEmail:               s.NotifyEmail,
	}
}

func (h *Handler) GetSettings(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	settings, err := h.dispatcher.Settings(c.Request.Context(), identity.OrgID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusOK, toSettingsResponse(settings))
}

type updateSettingsRequest struct {
	EmailEnabled   *bool  `json:"email_enabled" binding:"required"`
	InAppEnabled   *bool  `json:"in_app_enabled" binding:"required"`
	WebhookEnabled *bool  `json:"webhook_enabled" binding:"required"`
	WebhookURL     string `json:"webhook_url" binding:"omitempty,url,max=2048"`
	NotifyEmail    string `json:"notify_email" binding:"omitempty,email"`
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	settings, err := h.dispatcher.UpdateSettings(c.Request.Context(), identity.OrgID(), repository.UpsertParams{
		EmailEnabled:   *req.EmailEnabled,
		InAppEnabled:   *req.InAppEnabled,
		WebhookEnabled: *req.WebhookEnabled,
		WebhookURL:     req.WebhookURL,
		NotifyEmail:    req.NotifyEmail,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusOK, toSettingsResponse(settings))
}

type testWebhookRequest struct {
	URL string `json:"url" binding:"required,max=2048"`
}

// TestWebhook sends a test envelope to the supplied URL through the same
// path production deliveries use.
func (h *Handler) TestWebhook(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	var req testWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if err := h.dispatcher.TestWebhook(c.Request.Context(), identity.OrgID(), req.URL); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, "webhook delivered")
}
