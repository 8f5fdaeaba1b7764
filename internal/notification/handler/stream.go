package handler

import (
	"chatdesk_backend/internal/realtime"
	"chatdesk_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// NewStreamHandler serves the dashboard event stream: escalation takeovers
// and notification pings for the authenticated user's organization, relayed
// over server-sent events.
func NewStreamHandler(stream *realtime.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := httpkit.MustGetIdentity(c)
		stream.Stream(c, identity.OrgID())
	}
}
