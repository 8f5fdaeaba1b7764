package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"chatdesk_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WidgetAPIKey authenticates the public widget ingest endpoint. Only the
// sha256 of the key is stored; the plaintext is shown once at creation.
type WidgetAPIKey struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Label          string
	KeyHash        string
	AllowedDomains []string
	Active         bool
	CreatedAt      time.Time
	LastUsedAt     *time.Time
}

func HashWidgetKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func (r *Repository) CreateWidgetKey(ctx context.Context, orgID uuid.UUID, label, keyHash string, allowedDomains []string) (*WidgetAPIKey, error) {
	query := `
		INSERT INTO widget_api_keys (id, organization_id, label, key_hash, allowed_domains)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, organization_id, label, key_hash, allowed_domains, active, created_at, last_used_at`

	var key WidgetAPIKey
	err := r.pool.QueryRow(ctx, query, uuid.New(), orgID, label, keyHash, allowedDomains).
		Scan(&key.ID, &key.OrganizationID, &key.Label, &key.KeyHash, &key.AllowedDomains,
			&key.Active, &key.CreatedAt, &key.LastUsedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create widget key: %w", err)
	}
	return &key, nil
}

// GetWidgetKeyByHash resolves an active key. Lookup failure is deliberately
// indistinguishable from a revoked key at the transport layer.
func (r *Repository) GetWidgetKeyByHash(ctx context.Context, keyHash string) (*WidgetAPIKey, error) {
	query := `SELECT id, organization_id, label, key_hash, allowed_domains, active, created_at, last_used_at
		FROM widget_api_keys
		WHERE key_hash = $1 AND active = TRUE`

	var key WidgetAPIKey
	err := r.pool.QueryRow(ctx, query, keyHash).
		Scan(&key.ID, &key.OrganizationID, &key.Label, &key.KeyHash, &key.AllowedDomains,
			&key.Active, &key.CreatedAt, &key.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Unauthorized("invalid widget key")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up widget key: %w", err)
	}
	return &key, nil
}

func (r *Repository) TouchWidgetKey(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE widget_api_keys SET last_used_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch widget key: %w", err)
	}
	return nil
}

func (r *Repository) ListWidgetKeys(ctx context.Context, orgID uuid.UUID) ([]WidgetAPIKey, error) {
	query := `SELECT id, organization_id, label, key_hash, allowed_domains, active, created_at, last_used_at
		FROM widget_api_keys
		WHERE organization_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list widget keys: %w", err)
	}
	defer rows.Close()

	items := make([]WidgetAPIKey, 0)
	for rows.Next() {
		var key WidgetAPIKey
		if err := rows.Scan(&key.ID, &key.OrganizationID, &key.Label, &key.KeyHash,
			&key.AllowedDomains, &key.Active, &key.CreatedAt, &key.LastUsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan widget key: %w", err)
		}
		items = append(items, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate widget keys: %w", err)
	}

	return items, nil
}

func (r *Repository) DeactivateWidgetKey(ctx context.Context, orgID, keyID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE widget_api_keys SET active = FALSE WHERE id = $1 AND organization_id = $2`,
		keyID, orgID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate widget key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("widget key not found")
	}
	return nil
}
