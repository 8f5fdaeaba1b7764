package handler

import (
	"net/http"
	"net/url"
	"strings"

	"chatdesk_backend/internal/conversation/repository"
	convsvc "chatdesk_backend/internal/conversation/service"
	"chatdesk_backend/internal/conversation/transport"
	"chatdesk_backend/platform/apperr"
	"chatdesk_backend/platform/httpkit"
	"chatdesk_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const widgetKeyHeader = "X-Widget-Key"

const contextWidgetKey = "widget_api_key"

// WidgetHandler serves the public chat widget. Requests authenticate with a
// per-organization widget key instead of a user session.
type WidgetHandler struct {
	svc         *convsvc.Service
	attachments AttachmentStore
	log         *logger.Logger
}

func NewWidgetHandler(svc *convsvc.Service, attachments AttachmentStore, log *logger.Logger) *WidgetHandler {
	return &WidgetHandler{svc: svc, attachments: attachments, log: log}
}

// Auth resolves the widget key and enforces its domain allowlist. The
// resolved key carries the organization every downstream call scopes to.
func (h *WidgetHandler) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := h.svc.AuthenticateWidgetKey(c.Request.Context(), c.GetHeader(widgetKeyHeader))
		if err != nil {
			httpkit.HandleError(c, err)
			c.Abort()
			return
		}

		if !originAllowed(c.GetHeader("Origin"), key.AllowedDomains) {
			httpkit.HandleError(c, apperr.Forbidden("origin not allowed for this widget key"))
			c.Abort()
			return
		}

		c.Set(contextWidgetKey, key)
		c.Next()
	}
}

// originAllowed matches the request Origin host against the key's domain
// allowlist. An empty allowlist admits every origin, which keys created for
// native apps rely on.
func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())

	for _, domain := range allowed {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func widgetKeyFrom(c *gin.Context) *repository.WidgetAPIKey {
	return c.MustGet(contextWidgetKey).(*repository.WidgetAPIKey)
}

func (h *WidgetHandler) PostMessage(c *gin.Context) {
	var req transport.WidgetMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	key := widgetKeyFrom(c)

	var attachment *string
	if req.Attachment != "" {
		attachment = &req.Attachment
	}

	result, err := h.svc.HandleInbound(c.Request.Context(), convsvc.InboundParams{
		OrganizationID: key.OrganizationID,
		SessionKey:     req.SessionKey,
		Channel:        repository.ChannelWeb,
		Content:        req.Content,
		AttachmentKey:  attachment,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusOK, transport.WidgetMessageResponse{
		ConversationID: result.Conversation.ID,
		Reply:          result.Reply,
		BotReplied:     result.BotReplied,
		Mode:           result.Conversation.Mode,
	})
}

func (h *WidgetHandler) GetHistory(c *gin.Context) {
	sessionKey := c.Query("session_key")
	if sessionKey == "" {
		httpkit.Error(c, http.StatusBadRequest, "session_key is required")
		return
	}

	key := widgetKeyFrom(c)

	msgs, err := h.svc.SessionHistory(c.Request.Context(), key.OrganizationID, repository.ChannelWeb, sessionKey, 100)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusOK, gin.H{"messages": transport.ToMessageResponses(msgs)})
}
