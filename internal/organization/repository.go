package organization

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

// Organization holds the org-level settings the automation core reads.
// BotDisabled is the global kill switch: it suppresses bot replies without
// touching any per-conversation mode.
type Organization struct {
	ID             uuid.UUID
	Name           string
	OwnerEmail     string
	OwnerPhone     *string
	WhatsAppNumber *string
	Timezone       string
	BotDisabled    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const organizationColumns = `id, name, owner_email, owner_phone, whatsapp_number, timezone, bot_disabled, created_at, updated_at`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`
	return r.scanOrganization(r.pool.QueryRow(ctx, query, id))
}

// GetByWhatsAppNumber maps an inbound WhatsApp business number to its
// organization. Numbers are stored in session-key form (E.164 without plus).
func (r *Repository) GetByWhatsAppNumber(ctx context.Context, number string) (*Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE whatsapp_number = $1`
	return r.scanOrganization(r.pool.QueryRow(ctx, query, number))
}

func (r *Repository) scanOrganization(row pgx.Row) (*Organization, error) {
	var org Organization
	err := row.Scan(
		&org.ID,
		&org.Name,
		&org.OwnerEmail,
		&org.OwnerPhone,
		&org.WhatsAppNumber,
		&org.Timezone,
		&org.BotDisabled,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("organization not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

func (r *Repository) SetBotDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE organizations SET bot_disabled = $2, updated_at = now() WHERE id = $1`,
		id, disabled,
	)
	if err != nil {
		return fmt.Errorf("failed to update bot_disabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("organization not found")
	}
	return nil
}

func (r *Repository) UpdateTimezone(ctx context.Context, id uuid.UUID, timezone string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE organizations SET timezone = $2, updated_at = now() WHERE id = $1`,
		id, timezone,
	)
	if err != nil {
		return fmt.Errorf("failed to update timezone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("organization not found")
	}
	return nil
}
