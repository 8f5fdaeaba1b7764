// Package scoring wires the lead scoring engine and its rule management API.
package scoring

import (
	apphttp "chatdesk_backend/internal/http"
	"chatdesk_backend/internal/scoring/handler"
	"chatdesk_backend/internal/scoring/repository"
	"chatdesk_backend/internal/scoring/service"
	"chatdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	Engine  *service.Engine
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	engine := service.NewEngine(repository.New(pool), log)
	return &Module{
		Engine:  engine,
		handler: handler.NewHandler(engine, log),
	}
}

func (m *Module) Name() string { return "scoring" }

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	rules := rc.Protected.Group("/scoring/rules")
	{
		rules.GET("", m.handler.List)
		rules.POST("", m.handler.Create)
		rules.PUT("/:id", m.handler.Update)
		rules.DELETE("/:id", m.handler.Delete)
	}
}
