// Package transport defines the wire types of the scheduling API.
package transport

import (
	"time"

	"chatdesk_backend/internal/scheduling/repository"
	"chatdesk_backend/internal/scheduling/service"

	"github.com/google/uuid"
)

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	CustomerName    string    `json:"customer_name"`
	CustomerEmail   string    `json:"customer_email"`
	CustomerPhone   *string   `json:"customer_phone,omitempty"`
	ServiceType     string    `json:"service_type"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	MeetingLink     string    `json:"meeting_link,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

func ToAppointmentResponse(a *repository.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		CustomerName:    a.CustomerName,
		CustomerEmail:   a.CustomerEmail,
		CustomerPhone:   a.CustomerPhone,
		ServiceType:     a.ServiceType,
		ScheduledAt:     a.ScheduledAt,
		DurationMinutes: a.DurationMinutes,
		MeetingLink:     a.ExternalMeetingLink,
		Status:          a.Status,
		CreatedAt:       a.CreatedAt,
	}
}

type SlotResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func ToSlotResponses(slots []service.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{Start: s.Start, End: s.End})
	}
	return out
}

type AvailabilityResponse struct {
	Available    bool           `json:"available"`
	Alternatives []SlotResponse `json:"alternatives,omitempty"`
}
