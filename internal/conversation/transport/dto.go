// Package transport defines the wire types of the conversation API.
package transport

import (
	"time"

	"chatdesk_backend/internal/conversation/repository"

	"github.com/google/uuid"
)

type WidgetMessageRequest struct {
	SessionKey string `json:"session_key" binding:"required,min=8,max=128"`
	Content    string `json:"content" binding:"max=4000"`
	Attachment string `json:"attachment_key,omitempty" binding:"omitempty,max=512"`
}

type WidgetMessageResponse struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Reply          string    `json:"reply,omitempty"`
	BotReplied     bool      `json:"bot_replied"`
	Mode           string    `json:"mode"`
}

type ConversationResponse struct {
	ID                uuid.UUID  `json:"id"`
	SessionKey        string     `json:"session_key"`
	Channel           string     `json:"channel"`
	Mode              string     `json:"mode"`
	Status            string     `json:"status"`
	HumanAgentID      *uuid.UUID `json:"human_agent_id,omitempty"`
	TakeoverStartedAt *time.Time `json:"takeover_started_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func ToConversationResponse(c *repository.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:                c.ID,
		SessionKey:        c.SessionKey,
		Channel:           c.Channel,
		Mode:              c.Mode,
		Status:            c.Status,
		HumanAgentID:      c.HumanAgentID,
		TakeoverStartedAt: c.TakeoverStartedAt,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

type MessageResponse struct {
	ID            uuid.UUID `json:"id"`
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	AttachmentKey *string   `json:"attachment_key,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func ToMessageResponses(msgs []repository.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageResponse{
			ID:            m.ID,
			Role:          m.Role,
			Content:       m.Content,
			AttachmentKey: m.AttachmentKey,
			CreatedAt:     m.CreatedAt,
		})
	}
	return out
}

type EscalateRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

type TicketResponse struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	Reason         string     `json:"reason"`
	LastMessage    string     `json:"last_message"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

func ToTicketResponse(t *repository.EscalationTicket) TicketResponse {
	return TicketResponse{
		ID:             t.ID,
		ConversationID: t.ConversationID,
		Reason:         t.Reason,
		LastMessage:    t.LastMessage,
		Status:         t.Status,
		CreatedAt:      t.CreatedAt,
		ResolvedAt:     t.ResolvedAt,
	}
}

type CreateWidgetKeyRequest struct {
	Label          string   `json:"label" binding:"required,min=1,max=100"`
	AllowedDomains []string `json:"allowed_domains" binding:"max=20,dive,hostname_rfc1123"`
}

type WidgetKeyResponse struct {
	ID             uuid.UUID  `json:"id"`
	Label          string     `json:"label"`
	AllowedDomains []string   `json:"allowed_domains"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	// Key is only populated on creation.
	Key string `json:"key,omitempty"`
}

func ToWidgetKeyResponse(k *repository.WidgetAPIKey) WidgetKeyResponse {
	return WidgetKeyResponse{
		ID:             k.ID,
		Label:          k.Label,
		AllowedDomains: k.AllowedDomains,
		Active:         k.Active,
		CreatedAt:      k.CreatedAt,
		LastUsedAt:     k.LastUsedAt,
	}
}
