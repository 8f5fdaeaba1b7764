// Package handler exposes appointment management to the dashboard.
package handler

import (
	"net/http"
	"strconv"
	"time"

	schedsvc "chatdesk_backend/internal/scheduling/service"
	"chatdesk_backend/internal/scheduling/transport"
	"chatdesk_backend/platform/httpkit"
	"chatdesk_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *schedsvc.Service
	log *logger.Logger
}

func NewHandler(svc *schedsvc.Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	from := time.Now().AddDate(0, -1, 0)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		from = parsed
	}

	items, err := h.svc.List(c.Request.Context(), identity.OrgID(), from, limit, offset)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]transport.AppointmentResponse, 0, len(items))
	for i := range items {
		out = append(out, transport.ToAppointmentResponse(&items[i]))
	}
	httpkit.JSON(c, http.StatusOK, gin.H{"appointments": out})
}

// Availability checks one slot and, when it is taken, includes alternative
// slots for the same day.
func (h *Handler) Availability(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "start must be RFC3339")
		return
	}

	duration, _ := strconv.Atoi(c.DefaultQuery("duration_minutes", "30"))
	if duration < 1 {
		duration = 30
	}

	ctx := c.Request.Context()
	orgID := identity.OrgID()

	available, err := h.svc.CheckAvailability(ctx, orgID, start, duration)
	if err != nil {
		httpkit.HandleError(c, mapBookingError(err))
		return
	}

	resp := transport.AvailabilityResponse{Available: available}
	if !available {
		alternatives, err := h.svc.FindAlternatives(ctx, orgID, start, duration)
		if err == nil {
			resp.Alternatives = transport.ToSlotResponses(alternatives)
		} else {
			h.log.Warn("alternative slot search failed", "organization_id", orgID, "error", err)
		}
	}

	httpkit.JSON(c, http.StatusOK, resp)
}

func (h *Handler) Cancel(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid appointment id")
		return
	}

	if err := h.svc.Cancel(c.Request.Context(), identity.OrgID(), id); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, "appointment cancelled")
}

func (h *Handler) Complete(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid appointment id")
		return
	}

	if err := h.svc.Complete(c.Request.Context(), identity.OrgID(), id); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, "appointment completed")
}
