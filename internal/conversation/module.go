// Package conversation wires the conversation feature: widget ingest, the
// WhatsApp webhook, takeover controls, and widget key management.
package conversation

import (
	"chatdesk_backend/internal/conversation/handler"
	"chatdesk_backend/internal/conversation/repository"
	"chatdesk_backend/internal/conversation/service"
	"chatdesk_backend/internal/events"
	apphttp "chatdesk_backend/internal/http"
	"chatdesk_backend/platform/config"
	"chatdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config interface {
	config.IngestConfig
	config.WhatsAppConfig
}

type Module struct {
	Service  *service.Service
	handler  *handler.Handler
	widget   *handler.WidgetHandler
	whatsapp *handler.WhatsAppHandler
}

type Deps struct {
	Pool        *pgxpool.Pool
	Config      Config
	Orgs        service.OrgSettings
	Responder   service.BotResponder
	Emitter     service.EscalationEmitter
	Sender      handler.WhatsAppSender
	Resolver    handler.OrgResolver
	Attachments handler.AttachmentStore
	Bus         events.Bus
	Logger      *logger.Logger
}

func NewModule(d Deps) *Module {
	repo := repository.New(d.Pool)
	limiter := service.NewSessionRateLimiter(d.Config.GetSessionRateLimit(), d.Config.GetSessionRateWindow())
	svc := service.NewService(repo, d.Orgs, limiter, d.Responder, d.Emitter, d.Bus, d.Logger)

	return &Module{
		Service:  svc,
		handler:  handler.NewHandler(svc, d.Logger),
		widget:   handler.NewWidgetHandler(svc, d.Attachments, d.Logger),
		whatsapp: handler.NewWhatsAppHandler(svc, d.Sender, d.Resolver, d.Config.GetWhatsAppWebhookToken(), d.Logger),
	}
}

func (m *Module) Name() string { return "conversation" }

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	widget := rc.Public.Group("/widget", m.widget.Auth())
	{
		widget.POST("/messages", m.widget.PostMessage)
		widget.GET("/messages", m.widget.GetHistory)
		widget.POST("/attachments", m.widget.UploadAttachment)
		widget.GET("/attachments/url", m.widget.AttachmentURL)
	}

	rc.Public.POST("/webhooks/whatsapp", m.whatsapp.Webhook)

	conversations := rc.Protected.Group("/conversations")
	{
		conversations.GET("", m.handler.List)
		conversations.GET("/:id", m.handler.Get)
		conversations.GET("/:id/messages", m.handler.Messages)
		conversations.POST("/:id/escalate", m.handler.Escalate)
		conversations.POST("/:id/release", m.handler.Release)
		conversations.POST("/:id/resolve", m.handler.Resolve)
	}

	tickets := rc.Protected.Group("/escalations")
	{
		tickets.GET("", m.handler.ListTickets)
		tickets.POST("/:id/resolve", m.handler.ResolveTicket)
	}

	keys := rc.Protected.Group("/widget-keys")
	{
		keys.POST("", m.handler.CreateWidgetKey)
		keys.GET("", m.handler.ListWidgetKeys)
		keys.DELETE("/:id", m.handler.RevokeWidgetKey)
	}
}
