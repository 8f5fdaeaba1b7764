// Package repository persists captured leads.
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

// Lead statuses.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusConverted = "converted"
	StatusLost      = "lost"
)

type Lead struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	ConversationID *uuid.UUID
	Name           string
	Email          *string
	Phone          *string
	Notes          string
	Score          int
	Quality        string
	Reasoning      []string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateParams struct {
	OrganizationID uuid.UUID
	ConversationID *uuid.UUID
	Name           string
	Email          *string
	Phone          *string
	Notes          string
	Score          int
	Quality        string
	Reasoning      []string
}

const leadColumns = `id, organization_id, conversation_id, name, email, phone, notes,
	score, quality, reasoning, status, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, p CreateParams) (*Lead, error) {
	query := `
		INSERT INTO leads (id, organization_id, conversation_id, name, email, phone, notes, score, quality, reasoning)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query,
		uuid.New(), p.OrganizationID, p.ConversationID, p.Name, p.Email, p.Phone,
		p.Notes, p.Score, p.Quality, p.Reasoning,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, orgID, leadID uuid.UUID) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND organization_id = $2`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, leadID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID, quality string, limit, offset int) ([]Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE organization_id = $1 AND ($2 = '' OR quality = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, orgID, quality, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}

	return items, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, orgID, leadID uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET status = $3, updated_at = now() WHERE id = $1 AND organization_id = $2`,
		leadID, orgID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update lead status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}
	return nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID,
		&lead.OrganizationID,
		&lead.ConversationID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Notes,
		&lead.Score,
		&lead.Quality,
		&lead.Reasoning,
		&lead.Status,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan lead: %w", err)
	}
	return &lead, nil
}
