// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"chatdesk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCaptured is published when the agent captures a contact from a
// conversation. Quality carries the computed tier so the notification module
// can decide between hot and warm alerts without re-scoring.
type LeadCaptured struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	ConversationID uuid.UUID `json:"conversationId"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Score          int       `json:"score"`
	Quality        string    `json:"quality"`
	Reasoning      []string  `json:"reasoning,omitempty"`
}

func (e LeadCaptured) EventName() string { return "leads.lead.captured" }

type LeadCapturedParams struct {
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	ConversationID *uuid.UUID
	Name           string
	Email          string
	Phone          string
	Score          int
	Quality        string
	Reasoning      []string
}

func NewLeadCaptured(p LeadCapturedParams) LeadCaptured {
	event := LeadCaptured{
		BaseEvent:      NewBaseEvent(),
		LeadID:         p.LeadID,
		OrganizationID: p.OrganizationID,
		Name:           p.Name,
		Email:          p.Email,
		Phone:          p.Phone,
		Score:          p.Score,
		Quality:        p.Quality,
		Reasoning:      p.Reasoning,
	}
	if p.ConversationID != nil {
		event.ConversationID = *p.ConversationID
	}
	return event
}

// =============================================================================
// Conversation Domain Events
// =============================================================================

// ConversationEscalated is published when a conversation is handed over to a
// human agent, either by the escalation tool or from the dashboard.
type ConversationEscalated struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	TicketID       uuid.UUID `json:"ticketId"`
	Reason         string    `json:"reason"`
	LastMessage    string    `json:"lastMessage,omitempty"`
	Channel        string    `json:"channel"`
}

func (e ConversationEscalated) EventName() string { return "conversations.escalated" }

func NewConversationEscalated(conversationID, organizationID, ticketID uuid.UUID, reason, lastMessage, channel string) ConversationEscalated {
	return ConversationEscalated{
		BaseEvent:      NewBaseEvent(),
		ConversationID: conversationID,
		OrganizationID: organizationID,
		TicketID:       ticketID,
		Reason:         reason,
		LastMessage:    lastMessage,
		Channel:        channel,
	}
}

// ConversationReleased is published when a human agent hands a conversation
// back to the bot.
type ConversationReleased struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	OrganizationID uuid.UUID `json:"organizationId"`
}

func (e ConversationReleased) EventName() string { return "conversations.released" }

func NewConversationReleased(conversationID, organizationID uuid.UUID) ConversationReleased {
	return ConversationReleased{
		BaseEvent:      NewBaseEvent(),
		ConversationID: conversationID,
		OrganizationID: organizationID,
	}
}

// =============================================================================
// Appointment Domain Events
// =============================================================================

// AppointmentBooked is published after an external calendar event was created
// and the appointment row persisted (or tentatively accepted, see scheduling).
type AppointmentBooked struct {
	BaseEvent
	AppointmentID  uuid.UUID `json:"appointmentId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	CustomerName   string    `json:"customerName"`
	CustomerEmail  string    `json:"customerEmail"`
	ServiceType    string    `json:"serviceType"`
	ScheduledAt    string    `json:"scheduledAt"`
	MeetingLink    string    `json:"meetingLink,omitempty"`
}

func (e AppointmentBooked) EventName() string { return "appointments.booked" }

func NewAppointmentBooked(appointmentID, organizationID uuid.UUID, customerName, customerEmail, serviceType, scheduledAt, meetingLink string) AppointmentBooked {
	return AppointmentBooked{
		BaseEvent:      NewBaseEvent(),
		AppointmentID:  appointmentID,
		OrganizationID: organizationID,
		CustomerName:   customerName,
		CustomerEmail:  customerEmail,
		ServiceType:    serviceType,
		ScheduledAt:    scheduledAt,
		MeetingLink:    meetingLink,
	}
}
