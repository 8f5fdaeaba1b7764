package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"chatdesk_backend/internal/conversation/repository"
	"chatdesk_backend/internal/events"
	"chatdesk_backend/platform/apperr"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type memoryRepo struct {
	conversations map[uuid.UUID]*repository.Conversation
	messages      map[uuid.UUID][]repository.Message
	tickets       []repository.EscalationTicket
	widgetKeys    map[string]*repository.WidgetAPIKey
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		conversations: make(map[uuid.UUID]*repository.Conversation),
		messages:      make(map[uuid.UUID][]repository.Message),
		widgetKeys:    make(map[string]*repository.WidgetAPIKey),
	}
}

func (m *memoryRepo) CreateIfAbsent(_ context.Context, p repository.CreateConversationParams) (*repository.Conversation, error) {
	for _, c := range m.conversations {
		if c.OrganizationID == p.OrganizationID && c.Channel == p.Channel && c.SessionKey == p.SessionKey {
			return c, nil
		}
	}
	conv := &repository.Conversation{
		ID:             uuid.New(),
		OrganizationID: p.OrganizationID,
		ChatbotID:      p.ChatbotID,
		SessionKey:     p.SessionKey,
		Channel:        p.Channel,
		Mode:           repository.ModeBotActive,
		Status:         repository.StatusActive,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.conversations[conv.ID] = conv
	return conv, nil
}

func (m *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Conversation, error) {
	conv, ok := m.conversations[id]
	if !ok {
		return nil, apperr.NotFound("conversation not found")
	}
	return conv, nil
}

func (m *memoryRepo) GetBySession(_ context.Context, orgID uuid.UUID, channel, sessionKey string) (*repository.Conversation, error) {
	for _, c := range m.conversations {
		if c.OrganizationID == orgID && c.Channel == channel && c.SessionKey == sessionKey {
			return c, nil
		}
	}
	return nil, apperr.NotFound("conversation not found")
}

func (m *memoryRepo) GetMode(_ context.Context, id uuid.UUID) (string, error) {
	conv, ok := m.conversations[id]
	if !ok {
		return "", apperr.NotFound("conversation not found")
	}
	return conv.Mode, nil
}

func (m *memoryRepo) ListByOrg(_ context.Context, orgID uuid.UUID, _ string, _, _ int) ([]repository.Conversation, error) {
	var out []repository.Conversation
	for _, c := range m.conversations {
		if c.OrganizationID == orgID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryRepo) InsertMessage(_ context.Context, p repository.InsertMessageParams) (*repository.Message, error) {
	msg := repository.Message{
		ID:             uuid.New(),
		ConversationID: p.ConversationID,
		Role:           p.Role,
		Content:        p.Content,
		AttachmentKey:  p.AttachmentKey,
		CreatedAt:      time.Now(),
	}
	m.messages[p.ConversationID] = append(m.messages[p.ConversationID], msg)
	return &msg, nil
}

func (m *memoryRepo) ListRecentMessages(_ context.Context, conversationID uuid.UUID, limit int) ([]repository.Message, error) {
	msgs := m.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (m *memoryRepo) Escalate(_ context.Context, p repository.EscalateParams) (*repository.EscalationTicket, error) {
	conv, ok := m.conversations[p.ConversationID]
	if !ok {
		return nil, apperr.NotFound("conversation not found")
	}

	ticket := repository.EscalationTicket{
		ID:             uuid.New(),
		ConversationID: p.ConversationID,
		OrganizationID: p.OrganizationID,
		Reason:         p.Reason,
		LastMessage:    p.LastMessage,
		Status:         "open",
		CreatedAt:      time.Now(),
	}
	m.tickets = append(m.tickets, ticket)

	conv.Mode = repository.ModeHumanTakeover
	conv.HumanAgentID = p.HumanAgentID
	if conv.TakeoverStartedAt == nil {
		now := time.Now()
		conv.TakeoverStartedAt = &now
	}
	return &ticket, nil
}

func (m *memoryRepo) Release(_ context.Context, conversationID uuid.UUID) error {
	conv, ok := m.conversations[conversationID]
	if !ok {
		return apperr.NotFound("conversation not found")
	}
	conv.Mode = repository.ModeBotActive
	conv.HumanAgentID = nil
	conv.TakeoverStartedAt = nil
	return nil
}

func (m *memoryRepo) SetStatus(_ context.Context, conversationID uuid.UUID, status string) error {
	conv, ok := m.conversations[conversationID]
	if !ok {
		return apperr.NotFound("conversation not found")
	}
	conv.Status = status
	return nil
}

func (m *memoryRepo) ListOpenTickets(_ context.Context, orgID uuid.UUID, _, _ int) ([]repository.EscalationTicket, error) {
	var out []repository.EscalationTicket
	for _, tkt := range m.tickets {
		if tkt.OrganizationID == orgID && tkt.Status == "open" {
			out = append(out, tkt)
		}
	}
	return out, nil
}

func (m *memoryRepo) ResolveTicket(_ context.Context, ticketID uuid.UUID) error {
	for i := range m.tickets {
		if m.tickets[i].ID == ticketID {
			m.tickets[i].Status = "resolved"
			return nil
		}
	}
	return apperr.NotFound("ticket not found")
}

func (m *memoryRepo) CreateWidgetKey(_ context.Context, orgID uuid.UUID, label, keyHash string, allowedDomains []string) (*repository.WidgetAPIKey, error) {
	key := &repository.WidgetAPIKey{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Label:          label,
		KeyHash:        keyHash,
		AllowedDomains: allowedDomains,
		Active:         true,
		CreatedAt:      time.Now(),
	}
	m.widgetKeys[keyHash] = key
	return key, nil
}

func (m *memoryRepo) GetWidgetKeyByHash(_ context.Context, keyHash string) (*repository.WidgetAPIKey, error) {
	key, ok := m.widgetKeys[keyHash]
	if !ok || !key.Active {
		return nil, apperr.Unauthorized("invalid widget key")
	}
	return key, nil
}

func (m *memoryRepo) TouchWidgetKey(_ context.Context, _ uuid.UUID) error { return nil }

func (m *memoryRepo) ListWidgetKeys(_ context.Context, orgID uuid.UUID) ([]repository.WidgetAPIKey, error) {
	var out []repository.WidgetAPIKey
	for _, key := range m.widgetKeys {
		if key.OrganizationID == orgID {
			out = append(out, *key)
		}
	}
	return out, nil
}

func (m *memoryRepo) DeactivateWidgetKey(_ context.Context, orgID, keyID uuid.UUID) error {
	for _, key := range m.widgetKeys {
		if key.ID == keyID && key.OrganizationID == orgID {
			key.Active = false
			return nil
		}
	}
	return apperr.NotFound("widget key not found")
}

type fakeOrgSettings struct {
	botDisabled bool
}

func (f *fakeOrgSettings) IsBotDisabled(_ context.Context, _ uuid.UUID) bool {
	return f.botDisabled
}

type stubResponder struct {
	reply string
	err   error
	seen  []BotRequest
}

func (r *stubResponder) Respond(_ context.Context, req BotRequest) (string, error) {
	r.seen = append(r.seen, req)
	if r.err != nil {
		return "", r.err
	}
	return r.reply, nil
}

type recordingEmitter struct {
	raised   int
	released int
}

func (e *recordingEmitter) EscalationRaised(_ context.Context, _ uuid.UUID, _ *repository.EscalationTicket) {
	e.raised++
}

func (e *recordingEmitter) ConversationReleased(_ context.Context, _, _ uuid.UUID) {
	e.released++
}

type noopBus struct{}

func (noopBus) Publish(_ context.Context, _ events.Event)          {}
func (noopBus) PublishSync(_ context.Context, _ events.Event) error { return nil }
func (noopBus) Subscribe(_ string, _ events.Handler)               {}

type convFixture struct {
	repo      *memoryRepo
	orgs      *fakeOrgSettings
	responder *stubResponder
	emitter   *recordingEmitter
	svc       *Service
}

func newFixture(limit int) *convFixture {
	f := &convFixture{
		repo:      newMemoryRepo(),
		orgs:      &fakeOrgSettings{},
		responder: &stubResponder{reply: "Happy to help!"},
		emitter:   &recordingEmitter{},
	}
	f.svc = NewService(
		f.repo, f.orgs,
		NewSessionRateLimiter(limit, time.Minute),
		f.responder, f.emitter, noopBus{}, logger.New("test"),
	)
	return f
}

func inbound(orgID uuid.UUID, session, content string) InboundParams {
	return InboundParams{
		OrganizationID: orgID,
		SessionKey:     session,
		Channel:        repository.ChannelWeb,
		Content:        content,
	}
}

func TestHandleInbound_BotReplies(t *testing.T) {
	f := newFixture(30)
	orgID := uuid.New()

	result, err := f.svc.HandleInbound(context.Background(), inbound(orgID, "sess-1", "hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.BotReplied {
		t.Fatalf("expected the bot to reply")
	}
	if result.Reply != "Happy to help!" {
		t.Fatalf("unexpected reply %q", result.Reply)
	}

	msgs := f.repo.messages[result.Conversation.ID]
	if len(msgs) != 2 {
		t.Fatalf("expected user and assistant messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Fatalf("unexpected roles: %q, %q", msgs[0].Role, msgs[1].Role)
	}
}

func TestHandleInbound_ReusesConversationPerSession(t *testing.T) {
	f := newFixture(30)
	orgID := uuid.New()

	first, err := f.svc.HandleInbound(context.Background(), inbound(orgID, "sess-1", "hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.svc.HandleInbound(context.Background(), inbound(orgID, "sess-1", "still me"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Conversation.ID != second.Conversation.ID {
		t.Fatalf("expected the same conversation for the same session key")
	}

	other, err := f.svc.HandleInbound(context.Background(), inbound(orgID, "sess-2", "someone else"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other.Conversation.ID == first.Conversation.ID {
		t.Fatalf("expected a fresh conversation for a new session key")
	}
}

func TestHandleInbound_EmptyMessageRejected(t *testing.T) {
	f := newFixture(30)

	_, err := f.svc.HandleInbound(context.Background(), inbound(uuid.New(), "sess-1", "   "))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if len(f.repo.conversations) != 0 {
		t.Fatalf("an empty message must not create a conversation")
	}
}

func TestHandleInbound_RateLimitedMessageNotPersisted(t *testing.T) {
	f := newFixture(2)
	orgID := uuid.New()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.HandleInbound(context.Background(), inbound(orgID, "sess-1", "msg")); err != nil {
			t.Fatalf("message %d unexpectedly failed: %v", i+1, err)
		}
	}

	_, err := f.svc.HandleInbound(context.Background(), inbound(orgID, "sess-1", "one too many"))
	if !apperr.Is(err, apperr.KindRateLimited) {
		t.Fatalf("expected a rate limit error, got %v", err)
	}

	for _, msgs := range f.repo.messages {
		for _, msg := range msgs {
			if msg.Content == "one too many" {
				t.Fatalf("the rejected message must not be persisted")
			}
		}
	}
}

func TestHandleInbound_HumanTakeoverSilencesBot(t *testing.T) {
	f := newFixture(30)
	orgID := uuid.New()

	first, err := f.svc.HandleInbound(context.Background(), inbound(orgID, "sess-1", "hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.svc.Escalate(context.Background(), EscalateParams{
		ConversationID: first.Conversation.ID,
		OrganizationID: orgID,
		Reason:         "customer asked for a human",
	}); err != nil {
		t.Fatalf("escalate failed: %v", err)
	}

	result, err := f.svc.HandleInbound(context.Background(), inbound(orgID, "sess-1", "are you a robot?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BotReplied {
		t.Fatalf("the bot must stay silent during human takeover")
	}

	// The visitor message still lands in the transcript for the agent.
	msgs := f.repo.messages[first.Conversation.ID]
	last := msgs[len(msgs)-1]
	if last.Role != "user" || last.Content != "are you a robot?" {
		t.Fatalf("expected the visitor message to be persisted, got %+v", last)
	}
}

func TestHandleInbound_OrgKillSwitchSilencesBot(t *testing.T) {
	f := newFixture(30)
	f.orgs.botDisabled = true

	result, err := f.svc.HandleInbound(context.Background(), inbound(uuid.New(), "sess-1", "hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BotReplied {
		t.Fatalf("the bot must stay silent when the organization disabled it")
	}
}

func TestHandleInbound_ResponderErrorFallsBack(t *testing.T) {
	f := newFixture(30)
	f.responder.err = errors.New("model timeout")

	result, err := f.svc.HandleInbound(context.Background(), inbound(uuid.New(), "sess-1", "hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Reply != fallbackReply {
		t.Fatalf("expected the fixed fallback reply, got %q", result.Reply)
	}
	if !result.BotReplied {
		t.Fatalf("the fallback still counts as a bot reply")
	}
}

func TestHandleInbound_NilResponderFallsBack(t *testing.T) {
	f := newFixture(30)
	f.svc.SetResponder(nil)

	result, err := f.svc.HandleInbound(context.Background(), inbound(uuid.New(), "sess-1", "hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Reply != fallbackReply {
		t.Fatalf("expected the fixed fallback reply, got %q", result.Reply)
	}
}

func TestHandleInbound_EmptyReplyFallsBack(t *testing.T) {
	f := newFixture(30)
	f.responder.reply = "  "

	result, err := f.svc.HandleInbound(context.Background(), inbound(uuid.New(), "sess-1", "hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Reply != fallbackReply {
		t.Fatalf("expected the fixed fallback reply, got %q", result.Reply)
	}
}

func TestEscalateAndRelease_RoundTrip(t *testing.T) {
	f := newFixture(30)
	orgID := uuid.New()

	first, err := f.svc.HandleInbound(context.Background(), inbound(orgID, "sess-1", "I want a refund"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	convID := first.Conversation.ID

	ticket, err := f.svc.Escalate(context.Background(), EscalateParams{
		ConversationID: convID,
		OrganizationID: orgID,
		Reason:         "refund request",
	})
	if err != nil {
		t.Fatalf("escalate failed: %v", err)
	}
	if ticket.LastMessage != "I want a refund" {
		t.Fatalf("expected the last visitor message on the ticket, got %q", ticket.LastMessage)
	}
	if f.emitter.raised != 1 {
		t.Fatalf("expected one dashboard notice, got %d", f.emitter.raised)
	}

	conv := f.repo.conversations[convID]
	if conv.Mode != repository.ModeHumanTakeover {
		t.Fatalf("expected human takeover mode, got %q", conv.Mode)
	}
	if conv.TakeoverStartedAt == nil {
		t.Fatalf("expected the takeover timestamp to be set")
	}

	if err := f.svc.Release(context.Background(), convID, orgID); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if conv.Mode != repository.ModeBotActive {
		t.Fatalf("expected bot mode after release, got %q", conv.Mode)
	}
	if conv.HumanAgentID != nil || conv.TakeoverStartedAt != nil {
		t.Fatalf("release must clear the takeover fields")
	}
	if f.emitter.released != 1 {
		t.Fatalf("expected one release notice on the dashboard channel, got %d", f.emitter.released)
	}
}

func TestEscalate_KeepsOriginalTakeoverTimestamp(t *testing.T) {
	f := newFixture(30)
	orgID := uuid.New()

	first, err := f.svc.HandleInbound(context.Background(), inbound(orgID, "sess-1", "help"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	convID := first.Conversation.ID

	if _, err := f.svc.Escalate(context.Background(), EscalateParams{
		ConversationID: convID, OrganizationID: orgID, Reason: "first",
	}); err != nil {
		t.Fatalf("first escalate failed: %v", err)
	}
	started := f.repo.conversations[convID].TakeoverStartedAt

	if _, err := f.svc.Escalate(context.Background(), EscalateParams{
		ConversationID: convID, OrganizationID: orgID, Reason: "second",
	}); err != nil {
		t.Fatalf("second escalate failed: %v", err)
	}

	if f.repo.conversations[convID].TakeoverStartedAt != started {
		t.Fatalf("a repeat escalation must keep the original takeover timestamp")
	}
	if len(f.repo.tickets) != 2 {
		t.Fatalf("each escalation opens its own ticket, got %d", len(f.repo.tickets))
	}
}

func TestEscalate_WrongOrganizationForbidden(t *testing.T) {
	f := newFixture(30)
	orgID := uuid.New()

	first, err := f.svc.HandleInbound(context.Background(), inbound(orgID, "sess-1", "help"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.svc.Escalate(context.Background(), EscalateParams{
		ConversationID: first.Conversation.ID,
		OrganizationID: uuid.New(),
		Reason:         "hijack attempt",
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected a forbidden error, got %v", err)
	}
}

func TestWidgetKeys_CreateAndAuthenticate(t *testing.T) {
	f := newFixture(30)
	orgID := uuid.New()

	key, plaintext, err := f.svc.CreateWidgetKey(context.Background(), orgID, "homepage", []string{"example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.HasPrefix(plaintext, "wk_") {
		t.Fatalf("expected wk_ prefix, got %q", plaintext)
	}
	if key.KeyHash == plaintext {
		t.Fatalf("the plaintext must never be stored")
	}

	resolved, err := f.svc.AuthenticateWidgetKey(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if resolved.OrganizationID != orgID {
		t.Fatalf("expected the owning organization, got %s", resolved.OrganizationID)
	}

	if err := f.svc.RevokeWidgetKey(context.Background(), orgID, key.ID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := f.svc.AuthenticateWidgetKey(context.Background(), plaintext); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected a revoked key to be rejected, got %v", err)
	}
}

func TestAuthenticateWidgetKey_MissingKey(t *testing.T) {
	f := newFixture(30)

	if _, err := f.svc.AuthenticateWidgetKey(context.Background(), ""); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized for a missing key, got %v", err)
	}
}
