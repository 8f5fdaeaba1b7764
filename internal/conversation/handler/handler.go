// Package handler exposes the conversation HTTP surface: the public widget
// endpoints, the WhatsApp webhook, and the operator dashboard API.
package handler

import (
	"net/http"
	"strconv"

	convsvc "chatdesk_backend/internal/conversation/service"
	"chatdesk_backend/internal/conversation/transport"
	"chatdesk_backend/platform/httpkit"
	"chatdesk_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the authenticated operator dashboard.
type Handler struct {
	svc *convsvc.Service
	log *logger.Logger
}

func NewHandler(svc *convsvc.Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.svc.List(c.Request.Context(), identity.OrgID(), c.Query("status"), limit, offset)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]transport.ConversationResponse, 0, len(items))
	for i := range items {
		out = append(out, transport.ToConversationResponse(&items[i]))
	}
	httpkit.JSON(c, http.StatusOK, gin.H{"conversations": out})
}

func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid conversation id")
		return
	}

	conv, err := h.svc.Get(c.Request.Context(), id, identity.OrgID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusOK, transport.ToConversationResponse(conv))
}

func (h *Handler) Messages(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid conversation id")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	msgs, err := h.svc.History(c.Request.Context(), id, identity.OrgID(), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusOK, gin.H{"messages": transport.ToMessageResponses(msgs)})
}

func (h *Handler) Escalate(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req transport.EscalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	agentID := identity.UserID()
	ticket, err := h.svc.Escalate(c.Request.Context(), convsvc.EscalateParams{
		ConversationID: id,
		OrganizationID: identity.OrgID(),
		Reason:         req.Reason,
		HumanAgentID:   &agentID,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToTicketResponse(ticket))
}

func (h *Handler) Release(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid conversation id")
		return
	}

	if err := h.svc.Release(c.Request.Context(), id, identity.OrgID()); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, "conversation released")
}

func (h *Handler) Resolve(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid conversation id")
		return
	}

	if err := h.svc.Resolve(c.Request.Context(), id, identity.OrgID()); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, "conversation resolved")
}

func (h *Handler) ListTickets(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	tickets, err := h.svc.ListTickets(c.Request.Context(), identity.OrgID(), limit, offset)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]transport.TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, transport.ToTicketResponse(&tickets[i]))
	}
	httpkit.JSON(c, http.StatusOK, gin.H{"tickets": out})
}

func (h *Handler) ResolveTicket(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid ticket id")
		return
	}

	if err := h.svc.ResolveTicket(c.Request.Context(), id); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, "ticket resolved")
}

func (h *Handler) CreateWidgetKey(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	var req transport.CreateWidgetKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	key, plaintext, err := h.svc.CreateWidgetKey(c.Request.Context(), identity.OrgID(), req.Label, req.AllowedDomains)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	resp := transport.ToWidgetKeyResponse(key)
	resp.Key = plaintext
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) ListWidgetKeys(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	keys, err := h.svc.ListWidgetKeys(c.Request.Context(), identity.OrgID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]transport.WidgetKeyResponse, 0, len(keys))
	for i := range keys {
		out = append(out, transport.ToWidgetKeyResponse(&keys[i]))
	}
	httpkit.JSON(c, http.StatusOK, gin.H{"keys": out})
}

func (h *Handler) RevokeWidgetKey(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid key id")
		return
	}

	if err := h.svc.RevokeWidgetKey(c.Request.Context(), identity.OrgID(), id); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, "widget key revoked")
}
