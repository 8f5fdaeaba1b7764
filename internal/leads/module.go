// Package leads wires lead capture and management.
package leads

import (
	"chatdesk_backend/internal/events"
	apphttp "chatdesk_backend/internal/http"
	"chatdesk_backend/internal/leads/handler"
	"chatdesk_backend/internal/leads/repository"
	"chatdesk_backend/internal/leads/service"
	"chatdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	Service *service.Service
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, scorer service.Scorer, bus events.Bus, log *logger.Logger) *Module {
	svc := service.NewService(repository.New(pool), scorer, bus, log)
	return &Module{
		Service: svc,
		handler: handler.NewHandler(svc, log),
	}
}

func (m *Module) Name() string { return "leads" }

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	leads := rc.Protected.Group("/leads")
	{
		leads.GET("", m.handler.List)
		leads.GET("/:id", m.handler.Get)
		leads.PUT("/:id/status", m.handler.UpdateStatus)
	}
}
