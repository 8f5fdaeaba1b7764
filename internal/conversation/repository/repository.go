// Package repository provides persistence for conversations, messages, and
// escalation tickets.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatdesk_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Conversation modes. bot_disabled is deliberately NOT a mode: it lives on
// the organization row so the kill switch and the takeover state can never
// form an illegal composite.
const (
	ModeBotActive     = "bot_active"
	ModeHumanTakeover = "human_takeover"
)

// Conversation statuses.
const (
	StatusActive   = "active"
	StatusResolved = "resolved"
	StatusArchived = "archived"
)

// Channels.
const (
	ChannelWeb      = "web"
	ChannelWhatsApp = "whatsapp"
)

type Conversation struct {
	ID                uuid.UUID
	OrganizationID    uuid.UUID
	ChatbotID         *uuid.UUID
	SessionKey        string
	Channel           string
	Mode              string
	HumanAgentID      *uuid.UUID
	TakeoverStartedAt *time.Time
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           string
	Content        string
	AttachmentKey  *string
	CreatedAt      time.Time
}

type EscalationTicket struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	OrganizationID uuid.UUID
	Reason         string
	LastMessage    string
	Status         string
	CreatedAt      time.Time
	ResolvedAt     *time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateConversationParams struct {
	OrganizationID uuid.UUID
	ChatbotID      *uuid.UUID
	SessionKey     string
	Channel        string
}

// CreateIfAbsent inserts the conversation row for a session, tolerating the
// duplicate-key race when two first messages arrive concurrently. The row is
// always re-read afterwards so both racers observe the same winner.
func (r *Repository) CreateIfAbsent(ctx context.Context, p CreateConversationParams) (*Conversation, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversations (id, organization_id, chatbot_id, session_key, channel)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id, channel, session_key) DO NOTHING`,
		uuid.New(), p.OrganizationID, p.ChatbotID, p.SessionKey, p.Channel,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return r.GetBySession(ctx, p.OrganizationID, p.Channel, p.SessionKey)
}

const conversationColumns = `id, organization_id, chatbot_id, session_key, channel, mode,
	human_agent_id, takeover_started_at, status, created_at, updated_at`

func (r *Repository) GetBySession(ctx context.Context, orgID uuid.UUID, channel, sessionKey string) (*Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations
		WHERE organization_id = $1 AND channel = $2 AND session_key = $3`

	return r.scanConversation(r.pool.QueryRow(ctx, query, orgID, channel, sessionKey))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	return r.scanConversation(r.pool.QueryRow(ctx, query, id))
}

func (r *Repository) scanConversation(row pgx.Row) (*Conversation, error) {
	var conv Conversation
	err := row.Scan(
		&conv.ID,
		&conv.OrganizationID,
		&conv.ChatbotID,
		&conv.SessionKey,
		&conv.Channel,
		&conv.Mode,
		&conv.HumanAgentID,
		&conv.TakeoverStartedAt,
		&conv.Status,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("conversation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// GetMode re-reads only the mode column. Ingest re-checks it after every
// write so a takeover that happened mid-flight is honored.
func (r *Repository) GetMode(ctx context.Context, id uuid.UUID) (string, error) {
	var mode string
	err := r.pool.QueryRow(ctx, `SELECT mode FROM conversations WHERE id = $1`, id).Scan(&mode)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("conversation not found")
	}
	if err != nil {
		return "", fmt.Errorf("failed to read conversation mode: %w", err)
	}
	return mode, nil
}

func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID, status string, limit, offset int) ([]Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations
		WHERE organization_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY updated_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, orgID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	items := make([]Conversation, 0)
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.OrganizationID,
			&conv.ChatbotID,
			&conv.SessionKey,
			&conv.Channel,
			&conv.Mode,
			&conv.HumanAgentID,
			&conv.TakeoverStartedAt,
			&conv.Status,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		items = append(items, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return items, nil
}

type InsertMessageParams struct {
	ConversationID uuid.UUID
	Role           string
	Content        string
	AttachmentKey  *string
}

func (r *Repository) InsertMessage(ctx context.Context, p InsertMessageParams) (*Message, error) {
	query := `
		INSERT INTO messages (id, conversation_id, role, content, attachment_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, conversation_id, role, content, attachment_key, created_at`

	var msg Message
	err := r.pool.QueryRow(ctx, query,
		uuid.New(), p.ConversationID, p.Role, p.Content, p.AttachmentKey,
	).Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.AttachmentKey, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	_, err = r.pool.Exec(ctx, `UPDATE conversations SET updated_at = now() WHERE id = $1`, p.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}

	return &msg, nil
}

// ListRecentMessages returns the newest messages in chronological order.
// Ordering is by created_at: inserts may arrive out of order when the
// transport processes a session concurrently.
func (r *Repository) ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	if limit < 1 {
		limit = 20
	}

	query := `SELECT id, conversation_id, role, content, attachment_key, created_at FROM (
			SELECT id, conversation_id, role, content, attachment_key, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	items := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.AttachmentKey, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		items = append(items, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return items, nil
}

type EscalateParams struct {
	ConversationID uuid.UUID
	OrganizationID uuid.UUID
	Reason         string
	LastMessage    string
	HumanAgentID   *uuid.UUID
}

// Escalate creates the ticket and flips the conversation to human_takeover in
// one transaction. Either both writes land or neither does; the caller
// reports a degraded message on failure instead of retrying.
func (r *Repository) Escalate(ctx context.Context, p EscalateParams) (*EscalationTicket, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin escalation: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var ticket EscalationTicket
	err = tx.QueryRow(ctx, `
		INSERT INTO escalation_tickets (id, conversation_id, organization_id, reason, last_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, conversation_id, organization_id, reason, last_message, status, created_at, resolved_at`,
		uuid.New(), p.ConversationID, p.OrganizationID, p.Reason, p.LastMessage,
	).Scan(&ticket.ID, &ticket.ConversationID, &ticket.OrganizationID, &ticket.Reason,
		&ticket.LastMessage, &ticket.Status, &ticket.CreatedAt, &ticket.ResolvedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create escalation ticket: %w", err)
	}

	// Repeat escalations keep the original takeover_started_at.
	tag, err := tx.Exec(ctx, `
		UPDATE conversations
		SET mode = $2,
			human_agent_id = COALESCE($3, human_agent_id),
			takeover_started_at = COALESCE(takeover_started_at, now()),
			updated_at = now()
		WHERE id = $1`,
		p.ConversationID, ModeHumanTakeover, p.HumanAgentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to flip conversation mode: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("conversation not found")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit escalation: %w", err)
	}

	return &ticket, nil
}

// Release reverts the conversation to bot_active, clearing takeover fields.
func (r *Repository) Release(ctx context.Context, conversationID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conversations
		SET mode = $2, human_agent_id = NULL, takeover_started_at = NULL, updated_at = now()
		WHERE id = $1`,
		conversationID, ModeBotActive,
	)
	if err != nil {
		return fmt.Errorf("failed to release conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("conversation not found")
	}
	return nil
}

func (r *Repository) SetStatus(ctx context.Context, conversationID uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE conversations SET status = $2, updated_at = now() WHERE id = $1`,
		conversationID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("conversation not found")
	}
	return nil
}

func (r *Repository) ListOpenTickets(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]EscalationTicket, error) {
	query := `SELECT id, conversation_id, organization_id, reason, last_message, status, created_at, resolved_at
		FROM escalation_tickets
		WHERE organization_id = $1 AND status = 'open'
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalation tickets: %w", err)
	}
	defer rows.Close()

	items := make([]EscalationTicket, 0)
	for rows.Next() {
		var t EscalationTicket
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.OrganizationID, &t.Reason,
			&t.LastMessage, &t.Status, &t.CreatedAt, &t.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan escalation ticket: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate escalation tickets: %w", err)
	}

	return items, nil
}

func (r *Repository) ResolveTicket(ctx context.Context, ticketID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE escalation_tickets SET status = 'resolved', resolved_at = now() WHERE id = $1`,
		ticketID,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("escalation ticket not found")
	}
	return nil
}
