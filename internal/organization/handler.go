package organization

import (
	"net/http"

	"chatdesk_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler exposes organization settings endpoints to the dashboard.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/settings", h.GetSettings)
	group.PUT("/bot-disabled", h.SetBotDisabled)
}

type settingsResponse struct {
	Name        string  `json:"name"`
	OwnerEmail  string  `json:"ownerEmail"`
	OwnerPhone  *string `json:"ownerPhone,omitempty"`
	Timezone    string  `json:"timezone"`
	BotDisabled bool    `json:"botDisabled"`
}

func (h *Handler) GetSettings(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	org, err := h.service.Get(c.Request.Context(), id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, settingsResponse{
		Name:        org.Name,
		OwnerEmail:  org.OwnerEmail,
		OwnerPhone:  org.OwnerPhone,
		Timezone:    org.Timezone,
		BotDisabled: org.BotDisabled,
	})
}

type setBotDisabledRequest struct {
	Disabled *bool `json:"disabled" binding:"required"`
}

func (h *Handler) SetBotDisabled(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req setBotDisabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if err := h.service.SetBotDisabled(c.Request.Context(), id.OrgID(), *req.Disabled); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"botDisabled": *req.Disabled})
}
