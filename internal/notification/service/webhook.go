package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"chatdesk_backend/platform/apperr"
)

const webhookTimeout = 10 * time.Second

// webhookEnvelope is the fixed JSON shape every webhook target receives.
type webhookEnvelope struct {
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// ValidateWebhookURL rejects anything that is not a well-formed HTTPS URL.
// Validation runs before any network call, in both test sends and production
// deliveries.
func ValidateWebhookURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return apperr.Validation("webhook url is not a valid url")
	}
	if parsed.Scheme != "https" {
		return apperr.Validation("webhook url must use https")
	}
	if parsed.Host == "" {
		return apperr.Validation("webhook url is missing a host")
	}
	return nil
}

type webhookClient struct {
	http *http.Client
}

func newWebhookClient() *webhookClient {
	return &webhookClient{http: &http.Client{Timeout: webhookTimeout}}
}

// deliver posts the envelope. Any non-2xx response is a failure.
func (c *webhookClient) deliver(ctx context.Context, targetURL, event string, data map[string]any) error {
	if err := ValidateWebhookURL(targetURL); err != nil {
		return err
	}

	body, err := json.Marshal(webhookEnvelope{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook delivery failed: status %d", resp.StatusCode)
	}
	return nil
}
