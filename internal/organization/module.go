// Package organization provides organization-level settings for the automation core.
package organization

import (
	apphttp "chatdesk_backend/internal/http"
	"chatdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the organization settings module.
type Module struct {
	handler *Handler
	Service *Service
}

// NewModule creates the organization module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, log)
	h := NewHandler(svc)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "organization"
}

// RegisterRoutes registers the module's routes under /api/v1/organization.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/organization")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
