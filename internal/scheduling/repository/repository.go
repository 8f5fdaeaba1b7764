// Package repository persists appointments.
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

// Appointment statuses.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

type Appointment struct {
	ID                  uuid.UUID
	OrganizationID      uuid.UUID
	CustomerName        string
	CustomerEmail       string
	CustomerPhone       *string
	ServiceType         string
	ScheduledAt         time.Time
	DurationMinutes     int
	ExternalEventID     string
	ExternalMeetingLink string
	Status              string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const appointmentColumns = `id, organization_id, customer_name, customer_email, customer_phone,
	service_type, scheduled_at, duration_minutes, external_event_id, external_meeting_link,
	status, created_at, updated_at`

type CreateParams struct {
	OrganizationID      uuid.UUID
	CustomerName        string
	CustomerEmail       string
	CustomerPhone       *string
	ServiceType         string
	ScheduledAt         time.Time
	DurationMinutes     int
	ExternalEventID     string
	ExternalMeetingLink string
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (*Appointment, error) {
	query := `
		INSERT INTO appointments (id, organization_id, customer_name, customer_email, customer_phone,
			service_type, scheduled_at, duration_minutes, external_event_id, external_meeting_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + appointmentColumns

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query,
		uuid.New(), p.OrganizationID, p.CustomerName, p.CustomerEmail, p.CustomerPhone,
		p.ServiceType, p.ScheduledAt, p.DurationMinutes, p.ExternalEventID, p.ExternalMeetingLink,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	return appt, nil
}

func (r *Repository) GetByID(ctx context.Context, orgID, apptID uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE id = $1 AND organization_id = $2`

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, apptID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("appointment not found")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appt, nil
}

func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID, from time.Time, limit, offset int) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE organization_id = $1 AND scheduled_at >= $2
		ORDER BY scheduled_at ASC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, orgID, from, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	items := make([]Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}

	return items, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, orgID, apptID uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE appointments SET status = $3, updated_at = now() WHERE id = $1 AND organization_id = $2`,
		apptID, orgID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment not found")
	}
	return nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var appt Appointment
	err := row.Scan(
		&appt.ID,
		&appt.OrganizationID,
		&appt.CustomerName,
		&appt.CustomerEmail,
		&appt.CustomerPhone,
		&appt.ServiceType,
		&appt.ScheduledAt,
		&appt.DurationMinutes,
		&appt.ExternalEventID,
		&appt.ExternalMeetingLink,
		&appt.Status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan appointment: %w", err)
	}
	return &appt, nil
}
