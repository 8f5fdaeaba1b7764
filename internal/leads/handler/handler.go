// Package handler exposes lead management to the dashboard.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"chatdesk_backend/internal/leads/repository"
	leadsvc "chatdesk_backend/internal/leads/service"
	"chatdesk_backend/platform/httpkit"
	"chatdesk_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *leadsvc.Service
	log *logger.Logger
}

func NewHandler(svc *leadsvc.Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type leadResponse struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	Name           string     `json:"name"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	Score          int        `json:"score"`
	Quality        string     `json:"quality"`
	Reasoning      []string   `json:"reasoning,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toLeadResponse(l *repository.Lead) leadResponse {
	return leadResponse{
		ID:             l.ID,
		ConversationID: l.ConversationID,
		Name:           l.Name,
		Email:          l.Email,
		Phone:          l.Phone,
		Notes:          l.Notes,
		Score:          l.Score,
		Quality:        l.Quality,
		Reasoning:      l.Reasoning,
		Status:         l.Status,
		CreatedAt:      l.CreatedAt,
	}
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	leads, err := h.svc.List(c.Request.Context(), identity.OrgID(), c.Query("quality"), limit, offset)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]leadResponse, 0, len(leads))
	for i := range leads {
		out = append(out, toLeadResponse(&leads[i]))
	}
	httpkit.JSON(c, http.StatusOK, gin.H{"leads": out})
}

func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id")
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), identity.OrgID(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusOK, toLeadResponse(lead))
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=new contacted converted lost"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id")
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if err := h.svc.UpdateStatus(c.Request.Context(), identity.OrgID(), id, req.Status); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, "lead status updated")
}
