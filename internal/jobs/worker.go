package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chatdesk_backend/internal/email"
	schedrepo "chatdesk_backend/internal/scheduling/repository"
	"chatdesk_backend/platform/config"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// AppointmentLookup loads one appointment for reminder delivery.
type AppointmentLookup interface {
	GetByID(ctx context.Context, orgID, apptID uuid.UUID) (*schedrepo.Appointment, error)
}

// Worker processes queued tasks.
type Worker struct {
	server       *asynq.Server
	queue        string
	appointments AppointmentLookup
	email        email.Sender
	log          *logger.Logger
}

func NewWorker(cfg config.RedisConfig, appointments AppointmentLookup, sender email.Sender, log *logger.Logger) (*Worker, error) {
	conn, err := RedisConnOpt(cfg)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	server := asynq.NewServer(conn, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{queue: 1},
	})

	return &Worker{
		server:       server,
		queue:        queue,
		appointments: appointments,
		email:        sender,
		log:          log,
	}, nil
}

// Run blocks until Shutdown is called.
func (w *Worker) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAppointmentReminder, w.handleAppointmentReminder)
	return w.server.Run(mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleAppointmentReminder(ctx context.Context, task *asynq.Task) error {
	var payload AppointmentReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// A malformed payload never succeeds; do not retry.
		return fmt.Errorf("invalid reminder payload: %v: %w", err, asynq.SkipRetry)
	}

	appt, err := w.appointments.GetByID(ctx, payload.OrganizationID, payload.AppointmentID)
	if err != nil {
		return fmt.Errorf("failed to load appointment %s: %w", payload.AppointmentID, err)
	}

	// Cancelled or completed appointments need no reminder.
	if appt.Status != schedrepo.StatusConfirmed {
		w.log.Info("skipping reminder for non-confirmed appointment",
			"appointment_id", appt.ID, "status", appt.Status)
		return nil
	}

	data := email.ReminderEmailData{
		CustomerName: appt.CustomerName,
		ServiceType:  appt.ServiceType,
		ScheduledAt:  appt.ScheduledAt.Format(time.RFC1123),
		MeetingLink:  appt.ExternalMeetingLink,
	}
	if err := w.email.Send(ctx, appt.CustomerEmail, email.ReminderSubject(appt.ServiceType), email.ReminderBody(data)); err != nil {
		return fmt.Errorf("failed to send reminder email: %w", err)
	}

	w.log.Info("appointment reminder sent", "appointment_id", appt.ID, "to", appt.CustomerEmail)
	return nil
}
