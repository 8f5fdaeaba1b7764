package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"chatdesk_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestPublisher(t *testing.T) (*Publisher, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewPublisher(rdb, logger.New("test")), rdb
}

func TestPublish_ReachesSubscriber(t *testing.T) {
	pub, rdb := newTestPublisher(t)
	orgID := uuid.New()
	channel := EscalationChannel(orgID)

	sub := rdb.Subscribe(context.Background(), channel)
	t.Cleanup(func() { _ = sub.Close() })
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	payload := map[string]any{"reason": "angry customer"}
	if err := pub.Publish(context.Background(), channel, payload); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got map[string]any
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if got["reason"] != "angry customer" {
			t.Fatalf("unexpected payload %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the published message")
	}
}

func TestChannelNames_AreScopedPerOrganization(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	if EscalationChannel(a) == EscalationChannel(b) {
		t.Fatalf("escalation channels must be organization-scoped")
	}
	if NotifyChannel(a) == NotifyChannel(b) {
		t.Fatalf("notify channels must be organization-scoped")
	}
	if EscalationChannel(a) == NotifyChannel(a) {
		t.Fatalf("escalation and notify channels must not collide")
	}
}

func TestPublish_RejectsUnencodablePayload(t *testing.T) {
	pub, _ := newTestPublisher(t)

	if err := pub.Publish(context.Background(), "chan", make(chan int)); err == nil {
		t.Fatalf("expected an encoding error")
	}
}
