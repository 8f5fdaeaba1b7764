// Package repository persists per-organization notification channel settings.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Webhook verification statuses.
const (
	WebhookPending  = "pending"
	WebhookVerified = "verified"
	WebhookFailed   = "failed"
)

type Settings struct {
	OrganizationID            uuid.UUID
	EmailEnabled              bool
	InAppEnabled              bool
	WebhookEnabled            bool
	WebhookURL                string
	WebhookVerificationStatus string
	WebhookVerifiedAt         *time.Time
	WebhookFailureCount       int
	NotifyEmail               string
	UpdatedAt                 time.Time
}

// defaults for an organization that never touched its settings.
func defaultSettings(orgID uuid.UUID) *Settings {
	return &Settings{
		OrganizationID:            orgID,
		EmailEnabled:              true,
		InAppEnabled:              true,
		WebhookEnabled:            false,
		WebhookVerificationStatus: WebhookPending,
	}
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const settingsColumns = `organization_id, email_enabled, in_app_enabled, webhook_enabled,
	webhook_url, webhook_verification_status, webhook_verified_at, webhook_failure_count,
	notify_email, updated_at`

// GetOrDefault returns the stored settings, or the defaults when the
// organization has no row yet.
func (r *Repository) GetOrDefault(ctx context.Context, orgID uuid.UUID) (*Settings, error) {
	query := `SELECT ` + settingsColumns + ` FROM notification_settings WHERE organization_id = $1`

	var s Settings
	err := r.pool.QueryRow(ctx, query, orgID).Scan(
		&s.OrganizationID,
		&s.EmailEnabled,
		&s.InAppEnabled,
		&s.WebhookEnabled,
		&s.WebhookURL,
		&s.WebhookVerificationStatus,
		&s.WebhookVerifiedAt,
		&s.WebhookFailureCount,
		&s.NotifyEmail,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return defaultSettings(orgID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification settings: %w", err)
	}
	return &s, nil
}

type UpsertParams struct {
	EmailEnabled   bool
	InAppEnabled   bool
	WebhookEnabled bool
	WebhookURL     string
	NotifyEmail    string
}

// Upsert writes the toggles. Changing the webhook URL resets verification
// back to pending.
func (r *Repository) Upsert(ctx context.Context, orgID uuid.UUID, p UpsertParams) (*Settings, error) {
	query := `
		INSERT INTO notification_settings
			(organization_id, email_enabled, in_app_enabled, webhook_enabled, webhook_url, notify_email)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (organization_id) DO UPDATE SET
			email_enabled = EXCLUDED.email_enabled,
			in_app_enabled = EXCLUDED.in_app_enabled,
			webhook_enabled = EXCLUDED.webhook_enabled,
			webhook_url = EXCLUDED.webhook_url,
			notify_email = EXCLUDED.notify_email,
			webhook_verification_status = CASE
				WHEN notification_settings.webhook_url IS DISTINCT FROM EXCLUDED.webhook_url THEN 'pending'
				ELSE notification_settings.webhook_verification_status
			END,
			webhook_failure_count = CASE
				WHEN notification_settings.webhook_url IS DISTINCT FROM EXCLUDED.webhook_url THEN 0
				ELSE notification_settings.webhook_failure_count
			END,
			updated_at = now()
		RETURNING ` + settingsColumns

	var s Settings
	err := r.pool.QueryRow(ctx, query, orgID,
		p.EmailEnabled, p.InAppEnabled, p.WebhookEnabled, p.WebhookURL, p.NotifyEmail,
	).Scan(
		&s.OrganizationID,
		&s.EmailEnabled,
		&s.InAppEnabled,
		&s.WebhookEnabled,
		&s.WebhookURL,
		&s.WebhookVerificationStatus,
		&s.WebhookVerifiedAt,
		&s.WebhookFailureCount,
		&s.NotifyEmail,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert notification settings: %w", err)
	}
	return &s, nil
}

// MarkWebhookVerified records a successful delivery.
func (r *Repository) MarkWebhookVerified(ctx context.Context, orgID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_settings
		SET webhook_verification_status = $2, webhook_verified_at = now(),
			webhook_failure_count = 0, updated_at = now()
		WHERE organization_id = $1`,
		orgID, WebhookVerified,
	)
	if err != nil {
		return fmt.Errorf("failed to mark webhook verified: %w", err)
	}
	return nil
}

// RecordWebhookFailure increments the failure counter and flips the status
// to failed.
func (r *Repository) RecordWebhookFailure(ctx context.Context, orgID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_settings
		SET webhook_verification_status = $2,
			webhook_failure_count = webhook_failure_count + 1, updated_at = now()
		WHERE organization_id = $1`,
		orgID, WebhookFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to record webhook failure: %w", err)
	}
	return nil
}
