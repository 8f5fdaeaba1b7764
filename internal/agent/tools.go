package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	leadrepo "chatdesk_backend/internal/leads/repository"
	leadsvc "chatdesk_backend/internal/leads/service"
	schedsvc "chatdesk_backend/internal/scheduling/service"

	"github.com/google/uuid"
)

// LeadRecorder captures a contact from the conversation.
type LeadRecorder interface {
	Capture(ctx context.Context, p leadsvc.CaptureParams) (*leadrepo.Lead, error)
}

// Escalator opens a ticket and hands the conversation to a human.
type Escalator interface {
	EscalateFromBot(ctx context.Context, conversationID, orgID uuid.UUID, reason string) error
}

// AppointmentBooker is the scheduling surface the booking tool drives.
type AppointmentBooker interface {
	CheckAvailability(ctx context.Context, orgID uuid.UUID, start time.Time, durationMinutes int) (bool, error)
	FindAlternatives(ctx context.Context, orgID uuid.UUID, day time.Time, durationMinutes int) ([]schedsvc.Slot, error)
	Book(ctx context.Context, p schedsvc.BookParams) (*schedsvc.BookResult, error)
}

// TimezoneResolver supplies the organization's local time zone for parsing
// spoken dates.
type TimezoneResolver interface {
	Location(ctx context.Context, orgID uuid.UUID) *time.Location
}

type ToolDeps struct {
	Leads     LeadRecorder
	Escalator Escalator
	Booker    AppointmentBooker
	Timezones TimezoneResolver
}

// Binding scopes a toolset to one conversation.
type Binding struct {
	ConversationID uuid.UUID
	OrganizationID uuid.UUID
}

// Toolset builds the three agent tools bound to a conversation. Ordering
// between tools is a prompt contract, not a code precondition: booking
// without a prior lead still executes.
func Toolset(deps ToolDeps, b Binding) []Tool {
	return []Tool{
		createLeadTool(deps.Leads, b),
		escalateIssueTool(deps.Escalator, b),
		bookAppointmentTool(deps.Booker, deps.Timezones, b),
	}
}

func createLeadTool(leads LeadRecorder, b Binding) Tool {
	return Tool{
		Name:        "createLead",
		Description: "Save the visitor's contact details as a sales lead. Call as soon as you have a name and an email or phone number.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":  map[string]any{"type": "string", "description": "Full name of the visitor"},
				"email": map[string]any{"type": "string", "description": "Email address"},
				"phone": map[string]any{"type": "string", "description": "Phone number"},
				"notes": map[string]any{"type": "string", "description": "Short summary of what the visitor needs"},
				"keywords_mentioned": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Intent keywords the visitor used, such as pricing or demo",
				},
				"num_questions_asked": map[string]any{"type": "integer", "description": "How many questions the visitor asked"},
			},
			"required": []string{"name"},
		},
		Handler: func(ctx context.Context, args map[string]any) ToolResult {
			convID := b.ConversationID
			lead, err := leads.Capture(ctx, leadsvc.CaptureParams{
				OrganizationID:    b.OrganizationID,
				ConversationID:    &convID,
				Name:              stringArg(args, "name"),
				Email:             stringArg(args, "email"),
				Phone:             stringArg(args, "phone"),
				Notes:             stringArg(args, "notes"),
				KeywordsMentioned: stringSliceArg(args, "keywords_mentioned"),
				NumQuestionsAsked: intArg(args, "num_questions_asked"),
			})
			if err != nil {
				return ToolResult{
					Success:   false,
					Message:   "I couldn't save the contact details just now, but our team will follow up manually.",
					ErrorType: "lead_save_failed",
				}
			}
			return ToolResult{
				Success: true,
				Message: "Lead saved.",
				Data: map[string]any{
					"lead_id": lead.ID.String(),
					"score":   lead.Score,
					"quality": lead.Quality,
				},
			}
		},
	}
}

func escalateIssueTool(escalator Escalator, b Binding) Tool {
	return Tool{
		Name:        "escalateIssue",
		Description: "Hand the conversation to a human team member. Call when the visitor asks for a human or you cannot help.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reason": map[string]any{"type": "string", "description": "Why a human is needed"},
			},
			"required": []string{"reason"},
		},
		Handler: func(ctx context.Context, args map[string]any) ToolResult {
			reason := stringArg(args, "reason")
			if reason == "" {
				reason = "visitor requested a human"
			}

			if err := escalator.EscalateFromBot(ctx, b.ConversationID, b.OrganizationID, reason); err != nil {
				return ToolResult{
					Success:   false,
					Message:   "I couldn't reach the team automatically, but they will follow up manually as soon as possible.",
					ErrorType: "escalation_failed",
				}
			}
			return ToolResult{
				Success: true,
				Message: "A team member has been notified and will take over this conversation.",
			}
		},
	}
}

func bookAppointmentTool(booker AppointmentBooker, timezones TimezoneResolver, b Binding) Tool {
	return Tool{
		Name:        "bookAppointment",
		Description: "Book an appointment on the team calendar. Requires the visitor's name, email, a service type, and the desired date and time.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"customer_name":    map[string]any{"type": "string"},
				"customer_email":   map[string]any{"type": "string"},
				"customer_phone":   map[string]any{"type": "string"},
				"service_type":     map[string]any{"type": "string", "description": "What the appointment is for"},
				"date":             map[string]any{"type": "string", "description": "Desired date, YYYY-MM-DD"},
				"time":             map[string]any{"type": "string", "description": "Desired start time, HH:MM 24h"},
				"duration_minutes": map[string]any{"type": "integer", "description": "Length in minutes, default 30"},
				"notes":            map[string]any{"type": "string"},
			},
			"required": []string{"customer_name", "customer_email", "service_type", "date", "time"},
		},
		Handler: func(ctx context.Context, args map[string]any) ToolResult {
			loc := timezones.Location(ctx, b.OrganizationID)

			start, err := time.ParseInLocation("2006-01-02 15:04",
				stringArg(args, "date")+" "+stringArg(args, "time"), loc)
			if err != nil {
				return ToolResult{
					Success:   false,
					Message:   "I couldn't understand that date and time. Please give the date as YYYY-MM-DD and the time as HH:MM.",
					ErrorType: "invalid_datetime",
				}
			}

			duration := intArg(args, "duration_minutes")
			if duration <= 0 {
				duration = 30
			}

			available, err := booker.CheckAvailability(ctx, b.OrganizationID, start, duration)
			if err != nil {
				return bookingFailure(err)
			}
			if !available {
				return slotTakenResult(ctx, booker, b.OrganizationID, start, duration)
			}

			var phonePtr *string
			if p := stringArg(args, "customer_phone"); p != "" {
				phonePtr = &p
			}

			result, err := booker.Book(ctx, schedsvc.BookParams{
				OrganizationID:  b.OrganizationID,
				CustomerName:    stringArg(args, "customer_name"),
				CustomerEmail:   stringArg(args, "customer_email"),
				CustomerPhone:   phonePtr,
				ServiceType:     stringArg(args, "service_type"),
				ScheduledAt:     start,
				DurationMinutes: duration,
				Notes:           stringArg(args, "notes"),
			})
			if err != nil {
				return bookingFailure(err)
			}

			data := map[string]any{
				"scheduled_at": start.Format(time.RFC3339),
				"tentative":    result.Tentative,
			}
			if result.MeetingLink != "" {
				data["meeting_link"] = result.MeetingLink
			}
			if result.Appointment != nil {
				data["appointment_id"] = result.Appointment.ID.String()
			}
			return ToolResult{
				Success: true,
				Message: fmt.Sprintf("Appointment booked for %s.", start.Format("Monday, 2 January at 15:04")),
				Data:    data,
			}
		},
	}
}

func slotTakenResult(ctx context.Context, booker AppointmentBooker, orgID uuid.UUID, start time.Time, duration int) ToolResult {
	result := ToolResult{
		Success:   false,
		Message:   "That time is already taken.",
		ErrorType: "slot_unavailable",
	}

	alternatives, err := booker.FindAlternatives(ctx, orgID, start, duration)
	if err != nil || len(alternatives) == 0 {
		result.Message = "That time is already taken. Please suggest a different date."
		return result
	}

	formatted := make([]string, 0, len(alternatives))
	for _, slot := range alternatives {
		formatted = append(formatted, slot.Start.Format("15:04"))
	}
	result.Message = fmt.Sprintf("That time is already taken. Free times the same day: %s.",
		strings.Join(formatted, ", "))
	result.Data = map[string]any{"alternatives": formatted}
	return result
}

// bookingFailure maps typed booking errors to differentiated apologies.
func bookingFailure(err error) ToolResult {
	errType := schedsvc.ErrTypeAPIFailure
	if bookErr, ok := errorAs(err); ok {
		errType = bookErr.Type
	}

	message := "I couldn't complete the booking. Our team will reach out to schedule it manually."
	switch errType {
	case schedsvc.ErrTypeCalendarNotConnected:
		message = "Online booking isn't set up yet. Our team will contact you to arrange a time."
	case schedsvc.ErrTypeAvailabilityCheckFault:
		message = "I couldn't check the calendar just now. Our team will confirm a time with you directly."
	case schedsvc.ErrTypeOrgNotFound, schedsvc.ErrTypeOrgFetchFailed:
		message = "I hit a problem loading the booking details. Our team will follow up to schedule it manually."
	}

	return ToolResult{Success: false, Message: message, ErrorType: errType}
}

func errorAs(err error) (*schedsvc.BookingError, bool) {
	var bookErr *schedsvc.BookingError
	if errors.As(err, &bookErr) {
		return bookErr, true
	}
	return nil, false
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
