package notification

import (
	"context"
	"fmt"

	"chatdesk_backend/internal/email"
	"chatdesk_backend/internal/events"
	"chatdesk_backend/internal/notification/service"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// OwnerDirectory resolves the fallback alert recipient for an organization.
type OwnerDirectory interface {
	OwnerEmail(ctx context.Context, orgID uuid.UUID) (string, error)
}

// subscriber translates domain events into notification dispatches.
type subscriber struct {
	dispatcher *service.Dispatcher
	owners     OwnerDirectory
	log        *logger.Logger
}

func subscribe(bus events.Bus, dispatcher *service.Dispatcher, owners OwnerDirectory, log *logger.Logger) {
	s := &subscriber{dispatcher: dispatcher, owners: owners, log: log}

	bus.Subscribe(events.LeadCaptured{}.EventName(), events.HandlerFunc(s.onLeadCaptured))
	bus.Subscribe(events.ConversationEscalated{}.EventName(), events.HandlerFunc(s.onEscalated))
	bus.Subscribe(events.AppointmentBooked{}.EventName(), events.HandlerFunc(s.onAppointmentBooked))
}

func (s *subscriber) onLeadCaptured(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadCaptured)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	// Cold and unqualified leads are stored without waking anyone up.
	var kind, subject string
	switch e.Quality {
	case "hot":
		kind = service.KindHotLead
		subject = email.HotLeadSubject(e.Name)
	case "warm":
		kind = service.KindWarmLead
		subject = email.WarmLeadSubject(e.Name)
	default:
		return nil
	}

	s.dispatcher.Notify(ctx, kind, e.OrganizationID, service.Payload{
		Subject: subject,
		EmailBody: email.LeadBody(email.LeadEmailData{
			Name:      e.Name,
			Email:     e.Email,
			Phone:     e.Phone,
			Score:     e.Score,
			Quality:   e.Quality,
			Reasoning: e.Reasoning,
		}),
		EmailTo: s.fallbackEmail(ctx, e.OrganizationID),
		Data: map[string]any{
			"lead_id": e.LeadID,
			"name":    e.Name,
			"email":   e.Email,
			"phone":   e.Phone,
			"score":   e.Score,
			"quality": e.Quality,
		},
	})
	return nil
}

func (s *subscriber) onEscalated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ConversationEscalated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	s.dispatcher.Notify(ctx, service.KindEscalation, e.OrganizationID, service.Payload{
		Subject: email.EscalationSubject(),
		EmailBody: email.EscalationBody(email.EscalationEmailData{
			Reason:      e.Reason,
			LastMessage: e.LastMessage,
			Channel:     e.Channel,
		}),
		EmailTo: s.fallbackEmail(ctx, e.OrganizationID),
		Data: map[string]any{
			"conversation_id": e.ConversationID,
			"ticket_id":       e.TicketID,
			"reason":          e.Reason,
			"channel":         e.Channel,
		},
	})
	return nil
}

func (s *subscriber) onAppointmentBooked(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AppointmentBooked)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	s.dispatcher.Notify(ctx, service.KindAppointmentBooked, e.OrganizationID, service.Payload{
		Subject: email.AppointmentSubject(e.CustomerName),
		EmailBody: email.AppointmentBody(email.AppointmentEmailData{
			CustomerName:  e.CustomerName,
			CustomerEmail: e.CustomerEmail,
			ServiceType:   e.ServiceType,
			ScheduledAt:   e.ScheduledAt,
			MeetingLink:   e.MeetingLink,
		}),
		EmailTo: s.fallbackEmail(ctx, e.OrganizationID),
		Data: map[string]any{
			"appointment_id": e.AppointmentID,
			"customer_name":  e.CustomerName,
			"service_type":   e.ServiceType,
			"scheduled_at":   e.ScheduledAt,
			"meeting_link":   e.MeetingLink,
		},
	})
	return nil
}

func (s *subscriber) fallbackEmail(ctx context.Context, orgID uuid.UUID) string {
	if s.owners == nil {
		return ""
	}
	addr, err := s.owners.OwnerEmail(ctx, orgID)
	if err != nil {
		s.log.Warn("could not resolve owner email", "organization_id", orgID, "error", err)
		return ""
	}
	return addr
}
