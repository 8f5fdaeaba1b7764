// Package notification wires the multi-channel notification dispatcher and
// its settings API, and subscribes it to the domain events it reacts to.
package notification

import (
	"chatdesk_backend/internal/events"
	apphttp "chatdesk_backend/internal/http"
	"chatdesk_backend/internal/notification/handler"
	"chatdesk_backend/internal/notification/repository"
	"chatdesk_backend/internal/notification/service"
	"chatdesk_backend/internal/realtime"
	"chatdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	Dispatcher *service.Dispatcher
	handler    *handler.Handler
	stream     *realtime.Publisher
}

func NewModule(pool *pgxpool.Pool, email service.EmailSender, rt service.RealtimePublisher, stream *realtime.Publisher, owners OwnerDirectory, bus events.Bus, log *logger.Logger) *Module {
	dispatcher := service.NewDispatcher(repository.New(pool), email, rt, log)

	subscribe(bus, dispatcher, owners, log)

	return &Module{
		Dispatcher: dispatcher,
		handler:    handler.NewHandler(dispatcher, log),
		stream:     stream,
	}
}

func (m *Module) Name() string { return "notification" }

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	settings := rc.Protected.Group("/notifications")
	{
		settings.GET("/settings", m.handler.GetSettings)
		settings.PUT("/settings", m.handler.UpdateSettings)
		settings.POST("/webhook/test", m.handler.TestWebhook)
	}

	// The event stream needs redis; without it the route does not exist.
	if m.stream != nil {
		settings.GET("/stream", handler.NewStreamHandler(m.stream))
	}
}
