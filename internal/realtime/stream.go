package realtime

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Stream relays the organization's escalation and notification channels to
// one dashboard client as server-sent events. It blocks until the client
// disconnects or the subscription closes.
func (p *Publisher) Stream(c *gin.Context, orgID uuid.UUID) {
	ctx := c.Request.Context()

	sub := p.Subscribe(ctx, EscalationChannel(orgID), NotifyChannel(orgID))
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.SSEvent("connected", gin.H{"orgId": orgID})
	c.Writer.Flush()

	events := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent("message", msg.Payload)
			c.Writer.Flush()
		}
	}
}
