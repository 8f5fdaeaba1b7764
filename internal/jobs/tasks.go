// Package jobs holds the background task definitions and the asynq client
// and worker that process them.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TypeAppointmentReminder = "appointment:reminder"
)

type AppointmentReminderPayload struct {
	AppointmentID  uuid.UUID `json:"appointment_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
}

func NewAppointmentReminderTask(appointmentID, organizationID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(AppointmentReminderPayload{
		AppointmentID:  appointmentID,
		OrganizationID: organizationID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode reminder payload: %w", err)
	}
	return asynq.NewTask(TypeAppointmentReminder, payload), nil
}
