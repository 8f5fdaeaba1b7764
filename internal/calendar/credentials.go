// Package calendar is the external calendar gateway: OAuth credential
// storage, token refresh, free/busy queries, and event writes.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotConnected means the organization never completed the calendar OAuth
// flow or revoked it.
var ErrNotConnected = errors.New("calendar not connected")

type Credential struct {
	OrganizationID uuid.UUID
	AccessToken    string
	RefreshToken   string
	TokenExpiry    time.Time
	CalendarID     string
	UpdatedAt      time.Time
}

type CredentialStore struct {
	pool *pgxpool.Pool
}

func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{pool: pool}
}

func (s *CredentialStore) Get(ctx context.Context, orgID uuid.UUID) (*Credential, error) {
	query := `SELECT organization_id, access_token, refresh_token, token_expiry, calendar_id, updated_at
		FROM calendar_credentials WHERE organization_id = $1`

	var cred Credential
	err := s.pool.QueryRow(ctx, query, orgID).Scan(
		&cred.OrganizationID,
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.TokenExpiry,
		&cred.CalendarID,
		&cred.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar credential: %w", err)
	}
	return &cred, nil
}

// Upsert stores or replaces the organization's credential after an OAuth
// exchange.
func (s *CredentialStore) Upsert(ctx context.Context, cred *Credential) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calendar_credentials (organization_id, access_token, refresh_token, token_expiry, calendar_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			calendar_id = EXCLUDED.calendar_id,
			updated_at = now()`,
		cred.OrganizationID, cred.AccessToken, cred.RefreshToken, cred.TokenExpiry, cred.CalendarID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert calendar credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) UpdateAccessToken(ctx context.Context, orgID uuid.UUID, accessToken string, expiry time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE calendar_credentials
		SET access_token = $2, token_expiry = $3, updated_at = now()
		WHERE organization_id = $1`,
		orgID, accessToken, expiry,
	)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM calendar_credentials WHERE organization_id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete calendar credential: %w", err)
	}
	return nil
}
