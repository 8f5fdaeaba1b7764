// Package whatsapp is the outbound client for the WhatsApp gateway service.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chatdesk_backend/platform/config"
	"chatdesk_backend/platform/logger"
	"chatdesk_backend/platform/phone"
)

const requestTimeout = 15 * time.Second

// Client sends messages through a self-hosted WhatsApp gateway. The gateway
// keeps the device session; this client only does authenticated HTTP.
type Client struct {
	baseURL  string
	apiKey   string
	deviceID string
	http     *http.Client
	log      *logger.Logger
}

func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:   cfg.GetWhatsAppKey(),
		deviceID: cfg.GetWhatsAppDeviceID(),
		http:     &http.Client{Timeout: requestTimeout},
		log:      log,
	}
}

// Enabled reports whether the gateway is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

type sendMessageRequest struct {
	Phone    string `json:"phone"`
	Message  string `json:"message"`
	DeviceID string `json:"device_id,omitempty"`
}

// SendText delivers a plain text message. The recipient is normalized to the
// gateway's JID format.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	if !c.Enabled() {
		return fmt.Errorf("whatsapp gateway not configured")
	}

	payload := sendMessageRequest{
		Phone:    phone.SessionKey(to) + "@s.whatsapp.net",
		Message:  text,
		DeviceID: c.deviceID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send/message", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("whatsapp send failed: status %d: %s", resp.StatusCode, detail)
	}

	c.log.Info("whatsapp message sent", "to", payload.Phone)
	return nil
}
