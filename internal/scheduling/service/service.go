// Package service implements appointment booking: availability checks,
// alternative slot search, and event creation against the calendar gateway.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"chatdesk_backend/internal/calendar"
	"chatdesk_backend/internal/events"
	"chatdesk_backend/internal/scheduling/repository"
	"chatdesk_backend/platform/apperr"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// Business hours for alternative slot search.
const (
	dayStartHour = 9
	dayEndHour   = 17
	maxSlots     = 3
)

type Repository interface {
	Create(ctx context.Context, p repository.CreateParams) (*repository.Appointment, error)
	GetByID(ctx context.Context, orgID, apptID uuid.UUID) (*repository.Appointment, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID, from time.Time, limit, offset int) ([]repository.Appointment, error)
	UpdateStatus(ctx context.Context, orgID, apptID uuid.UUID, status string) error
}

// Gateway is the external calendar surface: free/busy and event writes.
type Gateway interface {
	FreeBusy(ctx context.Context, orgID uuid.UUID, timeMin, timeMax time.Time) ([]calendar.BusyInterval, error)
	CreateEvent(ctx context.Context, orgID uuid.UUID, req calendar.EventRequest) (*calendar.CreatedEvent, error)
	DeleteEvent(ctx context.Context, orgID uuid.UUID, eventID string) error
}

// OrgInfo is what booking needs to know about an organization.
type OrgInfo struct {
	ID         uuid.UUID
	Name       string
	OwnerEmail string
	Timezone   string
}

type OrgDirectory interface {
	Get(ctx context.Context, orgID uuid.UUID) (*OrgInfo, error)
}

// ReminderScheduler queues a reminder ahead of the appointment. Optional;
// failures never affect the booking.
type ReminderScheduler interface {
	ScheduleAppointmentReminder(appointmentID, organizationID uuid.UUID, scheduledAt time.Time) error
}

// Slot is a bookable interval.
type Slot struct {
	Start time.Time
	End   time.Time
}

type Service struct {
	repo      Repository
	gateway   Gateway
	orgs      OrgDirectory
	reminders ReminderScheduler
	bus       events.Bus
	log       *logger.Logger
}

func NewService(repo Repository, gateway Gateway, orgs OrgDirectory, reminders ReminderScheduler, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		gateway:   gateway,
		orgs:      orgs,
		reminders: reminders,
		bus:       bus,
		log:       log,
	}
}

// CheckAvailability reports whether the interval is free of busy windows.
func (s *Service) CheckAvailability(ctx context.Context, orgID uuid.UUID, start time.Time, durationMinutes int) (bool, error) {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	busy, err := s.gateway.FreeBusy(ctx, orgID, start, end)
	if err != nil {
		if errors.Is(err, calendar.ErrNotConnected) {
			return false, bookingErr(ErrTypeCalendarNotConnected, "calendar is not connected", err)
		}
		return false, bookingErr(ErrTypeAvailabilityCheckFault, "could not check availability", err)
	}

	for _, b := range busy {
		if overlaps(start, end, b.Start, b.End) {
			return false, nil
		}
	}
	return true, nil
}

// FindAlternatives scans hourly starts within business hours of the given
// day using a single free/busy query, returning at most three free slots in
// chronological order. An empty result means the whole day is booked.
func (s *Service) FindAlternatives(ctx context.Context, orgID uuid.UUID, day time.Time, durationMinutes int) ([]Slot, error) {
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		return nil, s.orgError(err)
	}
	loc := s.location(org.Timezone)

	local := day.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), dayStartHour, 0, 0, 0, loc)
	dayEnd := time.Date(local.Year(), local.Month(), local.Day(), dayEndHour, 0, 0, 0, loc)

	busy, err := s.gateway.FreeBusy(ctx, orgID, dayStart, dayEnd)
	if err != nil {
		if errors.Is(err, calendar.ErrNotConnected) {
			return nil, bookingErr(ErrTypeCalendarNotConnected, "calendar is not connected", err)
		}
		return nil, bookingErr(ErrTypeAvailabilityCheckFault, "could not check availability", err)
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })

	duration := time.Duration(durationMinutes) * time.Minute
	slots := make([]Slot, 0, maxSlots)

	for start := dayStart; !start.After(dayEnd.Add(-duration)); start = start.Add(time.Hour) {
		end := start.Add(duration)

		free := true
		for _, b := range busy {
			if overlaps(start, end, b.Start, b.End) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, Slot{Start: start, End: end})
			if len(slots) == maxSlots {
				break
			}
		}
	}

	return slots, nil
}

type BookParams struct {
	OrganizationID  uuid.UUID
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   *string
	ServiceType     string
	ScheduledAt     time.Time
	DurationMinutes int
	Notes           string
}

type BookResult struct {
	Appointment *repository.Appointment
	MeetingLink string
	// Tentative is set when the external event exists but the local record
	// could not be written. The customer keeps the booking either way.
	Tentative bool
}

// Book creates the external calendar event and persists the appointment.
// Failures before event creation return a typed BookingError; a persistence
// failure after the event exists degrades to a tentative success because the
// external event is not rolled back.
func (s *Service) Book(ctx context.Context, p BookParams) (*BookResult, error) {
	if p.DurationMinutes <= 0 {
		p.DurationMinutes = 30
	}

	org, err := s.orgs.Get(ctx, p.OrganizationID)
	if err != nil {
		return nil, s.orgError(err)
	}

	timezone := org.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	end := p.ScheduledAt.Add(time.Duration(p.DurationMinutes) * time.Minute)
	summary := fmt.Sprintf("%s: %s", p.ServiceType, p.CustomerName)
	description := fmt.Sprintf("Booked via chat.\nCustomer: %s <%s>\n%s", p.CustomerName, p.CustomerEmail, p.Notes)

	event, err := s.gateway.CreateEvent(ctx, p.OrganizationID, calendar.EventRequest{
		Summary:       summary,
		Description:   description,
		Start:         p.ScheduledAt,
		End:           end,
		TimeZone:      timezone,
		AttendeeEmail: p.CustomerEmail,
	})
	if err != nil {
		if errors.Is(err, calendar.ErrNotConnected) {
			return nil, bookingErr(ErrTypeCalendarNotConnected, "calendar is not connected", err)
		}
		return nil, bookingErr(ErrTypeAPIFailure, "calendar event creation failed", err)
	}

	appt, err := s.repo.Create(ctx, repository.CreateParams{
		OrganizationID:      p.OrganizationID,
		CustomerName:        p.CustomerName,
		CustomerEmail:       p.CustomerEmail,
		CustomerPhone:       p.CustomerPhone,
		ServiceType:         p.ServiceType,
		ScheduledAt:         p.ScheduledAt,
		DurationMinutes:     p.DurationMinutes,
		ExternalEventID:     event.ID,
		ExternalMeetingLink: event.MeetingLink,
	})
	if err != nil {
		s.log.DatabaseError("persist appointment", err)
		s.announce(ctx, uuid.Nil, p, event.MeetingLink)
		return &BookResult{MeetingLink: event.MeetingLink, Tentative: true}, nil
	}

	s.log.Info("appointment booked",
		"appointment_id", appt.ID,
		"organization_id", appt.OrganizationID,
		"scheduled_at", appt.ScheduledAt,
		"service_type", appt.ServiceType,
	)

	s.announce(ctx, appt.ID, p, event.MeetingLink)

	if s.reminders != nil {
		if err := s.reminders.ScheduleAppointmentReminder(appt.ID, appt.OrganizationID, appt.ScheduledAt); err != nil {
			s.log.Warn("failed to schedule appointment reminder",
				"appointment_id", appt.ID, "error", err)
		}
	}

	return &BookResult{Appointment: appt, MeetingLink: event.MeetingLink}, nil
}

func (s *Service) announce(ctx context.Context, apptID uuid.UUID, p BookParams, meetingLink string) {
	s.bus.Publish(ctx, events.NewAppointmentBooked(
		apptID, p.OrganizationID, p.CustomerName, p.CustomerEmail, p.ServiceType,
		p.ScheduledAt.Format(time.RFC3339), meetingLink,
	))
}

// Cancel cancels the appointment and removes the external event best effort.
func (s *Service) Cancel(ctx context.Context, orgID, apptID uuid.UUID) error {
	appt, err := s.repo.GetByID(ctx, orgID, apptID)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateStatus(ctx, orgID, apptID, repository.StatusCancelled); err != nil {
		return err
	}

	if appt.ExternalEventID != "" {
		if err := s.gateway.DeleteEvent(ctx, orgID, appt.ExternalEventID); err != nil {
			s.log.Warn("failed to delete external calendar event",
				"appointment_id", apptID, "error", err)
		}
	}
	return nil
}

func (s *Service) Complete(ctx context.Context, orgID, apptID uuid.UUID) error {
	return s.repo.UpdateStatus(ctx, orgID, apptID, repository.StatusCompleted)
}

func (s *Service) Get(ctx context.Context, orgID, apptID uuid.UUID) (*repository.Appointment, error) {
	return s.repo.GetByID(ctx, orgID, apptID)
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, from time.Time, limit, offset int) ([]repository.Appointment, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByOrg(ctx, orgID, from, limit, offset)
}

func (s *Service) orgError(err error) error {
	if apperr.Is(err, apperr.KindNotFound) {
		return bookingErr(ErrTypeOrgNotFound, "organization not found", err)
	}
	return bookingErr(ErrTypeOrgFetchFailed, "could not load organization", err)
}

func (s *Service) location(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		s.log.Warn("invalid organization timezone", "timezone", timezone, "error", err)
		return time.UTC
	}
	return loc
}

// overlaps reports whether [aStart, aEnd) intersects [bStart, bEnd).
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
