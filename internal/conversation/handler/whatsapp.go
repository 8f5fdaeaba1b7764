package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"chatdesk_backend/internal/conversation/repository"
	convsvc "chatdesk_backend/internal/conversation/service"
	"chatdesk_backend/platform/httpkit"
	"chatdesk_backend/platform/logger"
	"chatdesk_backend/platform/phone"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WhatsAppSender delivers outbound replies on the WhatsApp channel.
type WhatsAppSender interface {
	SendText(ctx context.Context, to, text string) error
}

// OrgResolver maps an inbound WhatsApp number to the organization that owns
// it.
type OrgResolver interface {
	OrgForWhatsAppNumber(ctx context.Context, number string) (uuid.UUID, error)
}

// WhatsAppHandler receives inbound message webhooks from the WhatsApp
// gateway and relays bot replies back through it.
type WhatsAppHandler struct {
	svc      *convsvc.Service
	sender   WhatsAppSender
	resolver OrgResolver
	token    string
	log      *logger.Logger
}

func NewWhatsAppHandler(svc *convsvc.Service, sender WhatsAppSender, resolver OrgResolver, webhookToken string, log *logger.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{svc: svc, sender: sender, resolver: resolver, token: webhookToken, log: log}
}

type whatsappWebhookPayload struct {
	From     string `json:"from" binding:"required"`
	To       string `json:"to" binding:"required"`
	Pushname string `json:"pushname"`
	Message  struct {
		Text string `json:"text"`
	} `json:"message"`
}

// Webhook handles one inbound WhatsApp message. The gateway retries on
// non-2xx, so processing errors that should not be retried still return 200.
func (h *WhatsAppHandler) Webhook(c *gin.Context) {
	if h.token == "" {
		httpkit.Error(c, http.StatusUnauthorized, "webhook token not configured")
		return
	}
	if subtle.ConstantTimeCompare([]byte(c.GetHeader("X-Webhook-Token")), []byte(h.token)) != 1 {
		httpkit.Error(c, http.StatusUnauthorized, "invalid webhook token")
		return
	}

	var payload whatsappWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid payload: "+err.Error())
		return
	}

	text := strings.TrimSpace(payload.Message.Text)
	if text == "" {
		// Media-only and status messages are acknowledged and dropped.
		httpkit.OK(c, "ignored")
		return
	}

	ctx := c.Request.Context()

	orgID, err := h.resolver.OrgForWhatsAppNumber(ctx, payload.To)
	if err != nil {
		h.log.ChannelError(repository.ChannelWhatsApp, "resolve organization", err)
		httpkit.OK(c, "no organization for number")
		return
	}

	sessionKey := phone.SessionKey(payload.From)
	if sessionKey == "" {
		httpkit.OK(c, "unparseable sender")
		return
	}

	result, err := h.svc.HandleInbound(ctx, convsvc.InboundParams{
		OrganizationID: orgID,
		SessionKey:     sessionKey,
		Channel:        repository.ChannelWhatsApp,
		Content:        text,
	})
	if err != nil {
		h.log.ChannelError(repository.ChannelWhatsApp, "handle inbound", err)
		httpkit.OK(c, "dropped")
		return
	}

	if result.BotReplied {
		if err := h.sender.SendText(ctx, payload.From, result.Reply); err != nil {
			h.log.ChannelError(repository.ChannelWhatsApp, "send reply", err)
		}
	}

	httpkit.OK(c, "processed")
}
