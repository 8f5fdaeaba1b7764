// Package service implements conversation lifecycle rules: session ingest,
// bot turn handling, human takeover, and release.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"chatdesk_backend/internal/conversation/repository"
	"chatdesk_backend/internal/events"
	"chatdesk_backend/platform/apperr"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// fallbackReply is returned verbatim whenever the bot cannot produce an
// answer. Customers never see raw model or tool errors.
const fallbackReply = "I'm sorry, I'm having trouble responding right now. Please try again in a moment, or ask to speak with a member of our team."

const historyWindow = 20

// Repository is the persistence surface the service needs.
type Repository interface {
	CreateIfAbsent(ctx context.Context, p repository.CreateConversationParams) (*repository.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Conversation, error)
	GetBySession(ctx context.Context, orgID uuid.UUID, channel, sessionKey string) (*repository.Conversation, error)
	GetMode(ctx context.Context, id uuid.UUID) (string, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID, status string, limit, offset int) ([]repository.Conversation, error)
	InsertMessage(ctx context.Context, p repository.InsertMessageParams) (*repository.Message, error)
	ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]repository.Message, error)
	Escalate(ctx context.Context, p repository.EscalateParams) (*repository.EscalationTicket, error)
	Release(ctx context.Context, conversationID uuid.UUID) error
	SetStatus(ctx context.Context, conversationID uuid.UUID, status string) error
	ListOpenTickets(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]repository.EscalationTicket, error)
	ResolveTicket(ctx context.Context, ticketID uuid.UUID) error

	CreateWidgetKey(ctx context.Context, orgID uuid.UUID, label, keyHash string, allowedDomains []string) (*repository.WidgetAPIKey, error)
	GetWidgetKeyByHash(ctx context.Context, keyHash string) (*repository.WidgetAPIKey, error)
	TouchWidgetKey(ctx context.Context, id uuid.UUID) error
	ListWidgetKeys(ctx context.Context, orgID uuid.UUID) ([]repository.WidgetAPIKey, error)
	DeactivateWidgetKey(ctx context.Context, orgID, keyID uuid.UUID) error
}

// OrgSettings exposes the per-organization bot kill switch.
type OrgSettings interface {
	IsBotDisabled(ctx context.Context, orgID uuid.UUID) bool
}

// ChatMessage is one turn of history handed to the responder.
type ChatMessage struct {
	Role    string
	Content string
}

// BotRequest carries everything the responder needs to produce a reply. The
// latest visitor message is the last entry of History.
type BotRequest struct {
	ConversationID uuid.UUID
	OrganizationID uuid.UUID
	Channel        string
	SessionKey     string
	History        []ChatMessage
}

// BotResponder produces the assistant reply for one turn. Implementations
// own their step budget and tool handling; an error here means the fixed
// fallback is sent instead.
type BotResponder interface {
	Respond(ctx context.Context, req BotRequest) (string, error)
}

// EscalationEmitter pushes takeover and release notices to connected
// dashboards. Delivery is best effort.
type EscalationEmitter interface {
	EscalationRaised(ctx context.Context, orgID uuid.UUID, ticket *repository.EscalationTicket)
	ConversationReleased(ctx context.Context, orgID, conversationID uuid.UUID)
}

type Service struct {
	repo      Repository
	orgs      OrgSettings
	limiter   *SessionRateLimiter
	responder BotResponder
	emitter   EscalationEmitter
	bus       events.Bus
	log       *logger.Logger
}

func NewService(repo Repository, orgs OrgSettings, limiter *SessionRateLimiter, responder BotResponder, emitter EscalationEmitter, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		orgs:      orgs,
		limiter:   limiter,
		responder: responder,
		emitter:   emitter,
		bus:       bus,
		log:       log,
	}
}

// SetResponder binds the bot after construction. The escalation tool needs
// this service, so the responder is wired in a second pass at startup.
func (s *Service) SetResponder(responder BotResponder) {
	s.responder = responder
}

type InboundParams struct {
	OrganizationID uuid.UUID
	ChatbotID      *uuid.UUID
	SessionKey     string
	Channel        string
	Content        string
	AttachmentKey  *string
}

type InboundResult struct {
	Conversation *repository.Conversation
	Reply        string
	BotReplied   bool
}

// HandleInbound runs one full inbound turn: rate limit, persist the visitor
// message, and produce a bot reply unless a human holds the conversation or
// the organization disabled the bot.
func (s *Service) HandleInbound(ctx context.Context, p InboundParams) (*InboundResult, error) {
	if strings.TrimSpace(p.Content) == "" && p.AttachmentKey == nil {
		return nil, apperr.Validation("message content is required")
	}

	// Over-limit messages are rejected before any persistence.
	if !s.limiter.Allow(p.SessionKey) {
		s.log.RateLimitExceeded(p.SessionKey, p.Channel)
		return nil, apperr.RateLimited("too many messages, slow down")
	}

	conv, err := s.repo.CreateIfAbsent(ctx, repository.CreateConversationParams{
		OrganizationID: p.OrganizationID,
		ChatbotID:      p.ChatbotID,
		SessionKey:     p.SessionKey,
		Channel:        p.Channel,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.InsertMessage(ctx, repository.InsertMessageParams{
		ConversationID: conv.ID,
		Role:           "user",
		Content:        p.Content,
		AttachmentKey:  p.AttachmentKey,
	}); err != nil {
		return nil, err
	}

	// Re-read after the write: a takeover racing this message wins.
	mode, err := s.repo.GetMode(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if mode != repository.ModeBotActive {
		return &InboundResult{Conversation: conv}, nil
	}

	if s.orgs.IsBotDisabled(ctx, p.OrganizationID) {
		return &InboundResult{Conversation: conv}, nil
	}

	reply := s.botReply(ctx, conv, p.SessionKey)

	if _, err := s.repo.InsertMessage(ctx, repository.InsertMessageParams{
		ConversationID: conv.ID,
		Role:           "assistant",
		Content:        reply,
	}); err != nil {
		// The reply was already generated; losing its transcript row must
		// not lose the reply itself.
		s.log.DatabaseError("persist assistant message", err)
	}

	return &InboundResult{Conversation: conv, Reply: reply, BotReplied: true}, nil
}

func (s *Service) botReply(ctx context.Context, conv *repository.Conversation, sessionKey string) string {
	history, err := s.repo.ListRecentMessages(ctx, conv.ID, historyWindow)
	if err != nil {
		s.log.DatabaseError("load conversation history", err)
		return fallbackReply
	}

	req := BotRequest{
		ConversationID: conv.ID,
		OrganizationID: conv.OrganizationID,
		Channel:        conv.Channel,
		SessionKey:     sessionKey,
		History:        make([]ChatMessage, 0, len(history)),
	}
	for _, msg := range history {
		req.History = append(req.History, ChatMessage{Role: msg.Role, Content: msg.Content})
	}

	if s.responder == nil {
		return fallbackReply
	}

	reply, err := s.responder.Respond(ctx, req)
	if err != nil {
		s.log.Error("bot responder failed", "conversation_id", conv.ID, "error", err)
		return fallbackReply
	}
	if strings.TrimSpace(reply) == "" {
		return fallbackReply
	}
	return reply
}

type EscalateParams struct {
	ConversationID uuid.UUID
	OrganizationID uuid.UUID
	Reason         string
	HumanAgentID   *uuid.UUID
}

// Escalate opens a ticket and hands the conversation to a human. Calling it
// on an already escalated conversation opens another ticket but keeps the
// original takeover timestamp.
func (s *Service) Escalate(ctx context.Context, p EscalateParams) (*repository.EscalationTicket, error) {
	conv, err := s.authorize(ctx, p.ConversationID, p.OrganizationID)
	if err != nil {
		return nil, err
	}

	lastMessage := ""
	if history, err := s.repo.ListRecentMessages(ctx, conv.ID, 1); err == nil && len(history) > 0 {
		lastMessage = history[len(history)-1].Content
	}

	ticket, err := s.repo.Escalate(ctx, repository.EscalateParams{
		ConversationID: conv.ID,
		OrganizationID: conv.OrganizationID,
		Reason:         p.Reason,
		LastMessage:    lastMessage,
		HumanAgentID:   p.HumanAgentID,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("conversation escalated",
		"conversation_id", conv.ID,
		"organization_id", conv.OrganizationID,
		"ticket_id", ticket.ID,
		"reason", p.Reason,
	)

	if s.emitter != nil {
		s.emitter.EscalationRaised(ctx, conv.OrganizationID, ticket)
	}
	s.bus.Publish(ctx, events.NewConversationEscalated(
		conv.ID, conv.OrganizationID, ticket.ID, p.Reason, lastMessage, conv.Channel,
	))

	return ticket, nil
}

// Release puts the bot back in charge.
func (s *Service) Release(ctx context.Context, conversationID, orgID uuid.UUID) error {
	conv, err := s.authorize(ctx, conversationID, orgID)
	if err != nil {
		return err
	}

	if err := s.repo.Release(ctx, conv.ID); err != nil {
		return err
	}

	s.log.Info("conversation released", "conversation_id", conv.ID, "organization_id", orgID)

	if s.emitter != nil {
		s.emitter.ConversationReleased(ctx, orgID, conv.ID)
	}
	s.bus.Publish(ctx, events.NewConversationReleased(conv.ID, orgID))

	return nil
}

func (s *Service) Resolve(ctx context.Context, conversationID, orgID uuid.UUID) error {
	if _, err := s.authorize(ctx, conversationID, orgID); err != nil {
		return err
	}
	return s.repo.SetStatus(ctx, conversationID, repository.StatusResolved)
}

func (s *Service) Get(ctx context.Context, conversationID, orgID uuid.UUID) (*repository.Conversation, error) {
	return s.authorize(ctx, conversationID, orgID)
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, status string, limit, offset int) ([]repository.Conversation, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByOrg(ctx, orgID, status, limit, offset)
}

func (s *Service) History(ctx context.Context, conversationID, orgID uuid.UUID, limit int) ([]repository.Message, error) {
	if _, err := s.authorize(ctx, conversationID, orgID); err != nil {
		return nil, err
	}
	if limit < 1 || limit > 200 {
		limit = 100
	}
	return s.repo.ListRecentMessages(ctx, conversationID, limit)
}

// SessionHistory serves the widget transcript. The session key plus a valid
// widget key is the proof of access; there is no end-user login.
func (s *Service) SessionHistory(ctx context.Context, orgID uuid.UUID, channel, sessionKey string, limit int) ([]repository.Message, error) {
	conv, err := s.repo.GetBySession(ctx, orgID, channel, sessionKey)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > 200 {
		limit = 100
	}
	return s.repo.ListRecentMessages(ctx, conv.ID, limit)
}

func (s *Service) ListTickets(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]repository.EscalationTicket, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListOpenTickets(ctx, orgID, limit, offset)
}

func (s *Service) ResolveTicket(ctx context.Context, ticketID uuid.UUID) error {
	return s.repo.ResolveTicket(ctx, ticketID)
}

func (s *Service) authorize(ctx context.Context, conversationID, orgID uuid.UUID) (*repository.Conversation, error) {
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.OrganizationID != orgID {
		return nil, apperr.Forbidden("conversation belongs to another organization")
	}
	return conv, nil
}

// CreateWidgetKey generates a widget key and returns its plaintext exactly
// once alongside the stored record.
func (s *Service) CreateWidgetKey(ctx context.Context, orgID uuid.UUID, label string, allowedDomains []string) (*repository.WidgetAPIKey, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("failed to generate widget key: %w", err)
	}
	plaintext := "wk_" + hex.EncodeToString(raw)

	key, err := s.repo.CreateWidgetKey(ctx, orgID, label, repository.HashWidgetKey(plaintext), allowedDomains)
	if err != nil {
		return nil, "", err
	}
	return key, plaintext, nil
}

// AuthenticateWidgetKey resolves the organization behind a widget key.
func (s *Service) AuthenticateWidgetKey(ctx context.Context, plaintext string) (*repository.WidgetAPIKey, error) {
	if plaintext == "" {
		return nil, apperr.Unauthorized("missing widget key")
	}

	key, err := s.repo.GetWidgetKeyByHash(ctx, repository.HashWidgetKey(plaintext))
	if err != nil {
		return nil, err
	}

	if err := s.repo.TouchWidgetKey(ctx, key.ID); err != nil {
		s.log.DatabaseError("touch widget key", err)
	}

	return key, nil
}

func (s *Service) ListWidgetKeys(ctx context.Context, orgID uuid.UUID) ([]repository.WidgetAPIKey, error) {
	return s.repo.ListWidgetKeys(ctx, orgID)
}

func (s *Service) RevokeWidgetKey(ctx context.Context, orgID, keyID uuid.UUID) error {
	return s.repo.DeactivateWidgetKey(ctx, orgID, keyID)
}
