// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"github.com/gin-gonic/gin"
)

// RouterContext carries the route groups modules register themselves on.
type RouterContext struct {
	// Public is the unauthenticated route group (widget ingest, transport webhooks).
	Public *gin.RouterGroup
	// Protected is the JWT-authenticated route group (dashboard operations).
	Protected *gin.RouterGroup
}

// Module is implemented by every HTTP-facing domain module.
type Module interface {
	// Name returns the module name for logging.
	Name() string
	// RegisterRoutes registers the module's routes.
	RegisterRoutes(ctx *RouterContext)
}
