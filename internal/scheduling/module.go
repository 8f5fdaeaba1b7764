// Package scheduling wires appointment booking and management.
package scheduling

import (
	"chatdesk_backend/internal/events"
	apphttp "chatdesk_backend/internal/http"
	"chatdesk_backend/internal/scheduling/handler"
	"chatdesk_backend/internal/scheduling/repository"
	"chatdesk_backend/internal/scheduling/service"
	"chatdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	Service *service.Service
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, gateway service.Gateway, orgs service.OrgDirectory, reminders service.ReminderScheduler, bus events.Bus, log *logger.Logger) *Module {
	svc := service.NewService(repository.New(pool), gateway, orgs, reminders, bus, log)
	return &Module{
		Service: svc,
		handler: handler.NewHandler(svc, log),
	}
}

func (m *Module) Name() string { return "scheduling" }

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	appointments := rc.Protected.Group("/appointments")
	{
		appointments.GET("", m.handler.List)
		appointments.GET("/availability", m.handler.Availability)
		appointments.POST("/:id/cancel", m.handler.Cancel)
		appointments.POST("/:id/complete", m.handler.Complete)
	}
}
