package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestSubscribe_CoversBothOrgChannels(t *testing.T) {
	pub, _ := newTestPublisher(t)
	orgID := uuid.New()

	sub := pub.Subscribe(context.Background(), EscalationChannel(orgID), NotifyChannel(orgID))
	t.Cleanup(func() { _ = sub.Close() })
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := pub.Publish(context.Background(), NotifyChannel(orgID), map[string]string{"kind": "hot_lead"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := pub.Publish(context.Background(), EscalationChannel(orgID), map[string]string{"event": "escalation_raised"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	received := 0
	timeout := time.After(2 * time.Second)
	for received < 2 {
		select {
		case <-sub.Channel():
			received++
		case <-timeout:
			t.Fatalf("expected 2 messages across both channels, got %d", received)
		}
	}
}

func TestStream_RelaysPublishedEvents(t *testing.T) {
	pub, _ := newTestPublisher(t)
	orgID := uuid.New()

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	ctx, cancel := context.WithCancel(context.Background())
	c.Request = httptest.NewRequest(http.MethodGet, "/notifications/stream", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		pub.Stream(c, orgID)
		close(done)
	}()

	// The subscription races the publish; retry until the stream has had a
	// chance to register.
	for i := 0; i < 10; i++ {
		if err := pub.Publish(context.Background(), NotifyChannel(orgID), map[string]string{"kind": "hot_lead"}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not stop after the client disconnected")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event:connected") {
		t.Fatalf("expected a connected event, got %q", body)
	}
	if !strings.Contains(body, "hot_lead") {
		t.Fatalf("expected the published payload in the stream, got %q", body)
	}
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("expected an event-stream content type, got %q", rec.Header().Get("Content-Type"))
	}
}
