// Package adapters bridges module boundaries: each adapter implements the
// narrow interface one module consumes on top of another module's service,
// so modules never import each other's services directly.
package adapters

import (
	"context"
	"time"

	"chatdesk_backend/internal/agent"
	convrepo "chatdesk_backend/internal/conversation/repository"
	convsvc "chatdesk_backend/internal/conversation/service"
	"chatdesk_backend/internal/organization"
	"chatdesk_backend/internal/realtime"
	schedsvc "chatdesk_backend/internal/scheduling/service"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// AgentResponder lets the conversation service drive the agent.
type AgentResponder struct {
	responder *agent.Responder
}

func NewAgentResponder(responder *agent.Responder) *AgentResponder {
	return &AgentResponder{responder: responder}
}

func (a *AgentResponder) Respond(ctx context.Context, req convsvc.BotRequest) (string, error) {
	history := make([]agent.Turn, 0, len(req.History))
	for _, msg := range req.History {
		history = append(history, agent.Turn{Role: msg.Role, Content: msg.Content})
	}

	return a.responder.Respond(ctx, agent.Request{
		ConversationID: req.ConversationID,
		OrganizationID: req.OrganizationID,
		Channel:        req.Channel,
		History:        history,
	})
}

// BotEscalator lets the escalation tool flip a conversation through the
// conversation service.
type BotEscalator struct {
	conversations *convsvc.Service
}

func NewBotEscalator(conversations *convsvc.Service) *BotEscalator {
	return &BotEscalator{conversations: conversations}
}

func (a *BotEscalator) EscalateFromBot(ctx context.Context, conversationID, orgID uuid.UUID, reason string) error {
	_, err := a.conversations.Escalate(ctx, convsvc.EscalateParams{
		ConversationID: conversationID,
		OrganizationID: orgID,
		Reason:         reason,
	})
	return err
}

// OrgDirectory exposes organization details to scheduling, the agent, and
// notifications.
type OrgDirectory struct {
	orgs *organization.Service
}

func NewOrgDirectory(orgs *organization.Service) *OrgDirectory {
	return &OrgDirectory{orgs: orgs}
}

func (a *OrgDirectory) Get(ctx context.Context, orgID uuid.UUID) (*schedsvc.OrgInfo, error) {
	org, err := a.orgs.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return &schedsvc.OrgInfo{
		ID:         org.ID,
		Name:       org.Name,
		OwnerEmail: org.OwnerEmail,
		Timezone:   org.Timezone,
	}, nil
}

func (a *OrgDirectory) Location(ctx context.Context, orgID uuid.UUID) *time.Location {
	return a.orgs.Location(ctx, orgID)
}

func (a *OrgDirectory) OrgName(ctx context.Context, orgID uuid.UUID) string {
	org, err := a.orgs.Get(ctx, orgID)
	if err != nil {
		return ""
	}
	return org.Name
}

func (a *OrgDirectory) OwnerEmail(ctx context.Context, orgID uuid.UUID) (string, error) {
	org, err := a.orgs.Get(ctx, orgID)
	if err != nil {
		return "", err
	}
	return org.OwnerEmail, nil
}

// RealtimeEscalationEmitter pushes takeover notices to dashboards. Best
// effort: failures are logged and dropped.
type RealtimeEscalationEmitter struct {
	publisher *realtime.Publisher
	log       *logger.Logger
}

func NewRealtimeEscalationEmitter(publisher *realtime.Publisher, log *logger.Logger) *RealtimeEscalationEmitter {
	return &RealtimeEscalationEmitter{publisher: publisher, log: log}
}

func (a *RealtimeEscalationEmitter) EscalationRaised(ctx context.Context, orgID uuid.UUID, ticket *convrepo.EscalationTicket) {
	payload := map[string]any{
		"event":           "escalation_raised",
		"ticket_id":       ticket.ID,
		"conversation_id": ticket.ConversationID,
		"reason":          ticket.Reason,
		"last_message":    ticket.LastMessage,
		"created_at":      ticket.CreatedAt,
	}
	if err := a.publisher.Publish(ctx, realtime.EscalationChannel(orgID), payload); err != nil {
		a.log.Warn("failed to emit escalation event", "organization_id", orgID, "error", err)
	}
}

func (a *RealtimeEscalationEmitter) ConversationReleased(ctx context.Context, orgID, conversationID uuid.UUID) {
	payload := map[string]any{
		"event":           "conversation_released",
		"conversation_id": conversationID,
	}
	if err := a.publisher.Publish(ctx, realtime.EscalationChannel(orgID), payload); err != nil {
		a.log.Warn("failed to emit release event", "organization_id", orgID, "error", err)
	}
}

// Interface conformance checks.
var (
	_ convsvc.BotResponder      = (*AgentResponder)(nil)
	_ agent.Escalator           = (*BotEscalator)(nil)
	_ schedsvc.OrgDirectory     = (*OrgDirectory)(nil)
	_ agent.OrgContext          = (*OrgDirectory)(nil)
	_ convsvc.EscalationEmitter = (*RealtimeEscalationEmitter)(nil)
)
