// Package realtime pushes fire-and-forget events to connected dashboard
// clients over redis pub/sub. Delivery is best effort; subscribers that are
// offline simply miss the event.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const publishTimeout = 5 * time.Second

// EscalationChannel is the per-organization channel takeover notices go to.
func EscalationChannel(orgID uuid.UUID) string {
	return fmt.Sprintf("org_%s_escalation", orgID)
}

// NotifyChannel is the per-organization channel owner notifications go to.
func NotifyChannel(orgID uuid.UUID) string {
	return fmt.Sprintf("org_%s_notify", orgID)
}

type Publisher struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewPublisher(rdb *redis.Client, log *logger.Logger) *Publisher {
	return &Publisher{rdb: rdb, log: log}
}

// Publish serializes the payload and fires it at the channel. Errors are
// returned for logging only; callers must never fail on them.
func (p *Publisher) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode realtime payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a message stream for the channels. The caller owns
// closing the subscription.
func (p *Publisher) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return p.rdb.Subscribe(ctx, channels...)
}
