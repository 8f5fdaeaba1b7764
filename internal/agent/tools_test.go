package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	leadrepo "chatdesk_backend/internal/leads/repository"
	leadsvc "chatdesk_backend/internal/leads/service"
	schedsvc "chatdesk_backend/internal/scheduling/service"

	"github.com/google/uuid"
)

type fakeLeadRecorder struct {
	captured []leadsvc.CaptureParams
	err      error
}

func (f *fakeLeadRecorder) Capture(_ context.Context, p leadsvc.CaptureParams) (*leadrepo.Lead, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.captured = append(f.captured, p)
	return &leadrepo.Lead{ID: uuid.New(), Score: 75, Quality: "hot"}, nil
}

type fakeEscalator struct {
	reasons []string
	err     error
}

func (f *fakeEscalator) EscalateFromBot(_ context.Context, _, _ uuid.UUID, reason string) error {
	if f.err != nil {
		return f.err
	}
	f.reasons = append(f.reasons, reason)
	return nil
}

type fakeBooker struct {
	available    bool
	checkErr     error
	alternatives []schedsvc.Slot
	altErr       error
	bookResult   *schedsvc.BookResult
	bookErr      error
}

func (f *fakeBooker) CheckAvailability(_ context.Context, _ uuid.UUID, _ time.Time, _ int) (bool, error) {
	return f.available, f.checkErr
}

func (f *fakeBooker) FindAlternatives(_ context.Context, _ uuid.UUID, _ time.Time, _ int) ([]schedsvc.Slot, error) {
	return f.alternatives, f.altErr
}

func (f *fakeBooker) Book(_ context.Context, _ schedsvc.BookParams) (*schedsvc.BookResult, error) {
	return f.bookResult, f.bookErr
}

type fixedTimezones struct{}

func (fixedTimezones) Location(_ context.Context, _ uuid.UUID) *time.Location { return time.UTC }

func toolByName(t *testing.T, tools []Tool, name string) Tool {
	t.Helper()
	for _, tool := range tools {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not in toolset", name)
	return Tool{}
}

func bookingArgs() map[string]any {
	return map[string]any{
		"customer_name":  "Jamie",
		"customer_email": "jamie@example.com",
		"service_type":   "demo",
		"date":           "2026-03-10",
		"time":           "14:00",
	}
}

func newToolset(leads *fakeLeadRecorder, esc *fakeEscalator, booker *fakeBooker) []Tool {
	return Toolset(ToolDeps{
		Leads:     leads,
		Escalator: esc,
		Booker:    booker,
		Timezones: fixedTimezones{},
	}, Binding{ConversationID: uuid.New(), OrganizationID: uuid.New()})
}

func TestCreateLeadTool_Success(t *testing.T) {
	leads := &fakeLeadRecorder{}
	tools := newToolset(leads, &fakeEscalator{}, &fakeBooker{})

	result := toolByName(t, tools, "createLead").Handler(context.Background(), map[string]any{
		"name":                "Jamie",
		"email":               "jamie@example.com",
		"keywords_mentioned":  []any{"pricing", "demo"},
		"num_questions_asked": float64(3),
	})

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Data["quality"] != "hot" {
		t.Fatalf("expected the computed quality in the result data, got %v", result.Data)
	}
	if len(leads.captured) != 1 {
		t.Fatalf("expected one capture, got %d", len(leads.captured))
	}
	p := leads.captured[0]
	if p.Name != "Jamie" || p.NumQuestionsAsked != 3 || len(p.KeywordsMentioned) != 2 {
		t.Fatalf("capture params not mapped from args: %+v", p)
	}
	if p.ConversationID == nil {
		t.Fatalf("the lead must be linked to the conversation")
	}
}

func TestCreateLeadTool_FailureReturnsApology(t *testing.T) {
	leads := &fakeLeadRecorder{err: errors.New("db down")}
	tools := newToolset(leads, &fakeEscalator{}, &fakeBooker{})

	result := toolByName(t, tools, "createLead").Handler(context.Background(), map[string]any{"name": "Jamie"})

	if result.Success {
		t.Fatalf("expected failure")
	}
	if result.ErrorType != "lead_save_failed" {
		t.Fatalf("expected lead_save_failed, got %q", result.ErrorType)
	}
	if !strings.Contains(result.Message, "follow up manually") {
		t.Fatalf("the failure message must promise manual follow-up, got %q", result.Message)
	}
}

func TestEscalateIssueTool_DefaultsReason(t *testing.T) {
	esc := &fakeEscalator{}
	tools := newToolset(&fakeLeadRecorder{}, esc, &fakeBooker{})

	result := toolByName(t, tools, "escalateIssue").Handler(context.Background(), map[string]any{})

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if len(esc.reasons) != 1 || esc.reasons[0] != "visitor requested a human" {
		t.Fatalf("expected the default reason, got %v", esc.reasons)
	}
}

func TestBookAppointmentTool_InvalidDatetime(t *testing.T) {
	tools := newToolset(&fakeLeadRecorder{}, &fakeEscalator{}, &fakeBooker{})

	args := bookingArgs()
	args["date"] = "next tuesday"

	result := toolByName(t, tools, "bookAppointment").Handler(context.Background(), args)

	if result.Success || result.ErrorType != "invalid_datetime" {
		t.Fatalf("expected invalid_datetime, got %+v", result)
	}
}

func TestBookAppointmentTool_SlotTakenOffersAlternatives(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	booker := &fakeBooker{
		available: false,
		alternatives: []schedsvc.Slot{
			{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)},
			{Start: day.Add(11 * time.Hour), End: day.Add(12 * time.Hour)},
		},
	}
	tools := newToolset(&fakeLeadRecorder{}, &fakeEscalator{}, booker)

	result := toolByName(t, tools, "bookAppointment").Handler(context.Background(), bookingArgs())

	if result.Success || result.ErrorType != "slot_unavailable" {
		t.Fatalf("expected slot_unavailable, got %+v", result)
	}
	if !strings.Contains(result.Message, "09:00") || !strings.Contains(result.Message, "11:00") {
		t.Fatalf("expected the free times in the message, got %q", result.Message)
	}
}

func TestBookAppointmentTool_CalendarNotConnected(t *testing.T) {
	booker := &fakeBooker{
		checkErr: &schedsvc.BookingError{Type: schedsvc.ErrTypeCalendarNotConnected, Message: "calendar is not connected"},
	}
	tools := newToolset(&fakeLeadRecorder{}, &fakeEscalator{}, booker)

	result := toolByName(t, tools, "bookAppointment").Handler(context.Background(), bookingArgs())

	if result.ErrorType != schedsvc.ErrTypeCalendarNotConnected {
		t.Fatalf("expected %q, got %q", schedsvc.ErrTypeCalendarNotConnected, result.ErrorType)
	}
	if !strings.Contains(result.Message, "isn't set up") {
		t.Fatalf("expected the not-connected apology, got %q", result.Message)
	}
}

func TestBookAppointmentTool_BooksWhenAvailable(t *testing.T) {
	booker := &fakeBooker{
		available: true,
		bookResult: &schedsvc.BookResult{
			MeetingLink: "https://meet.example.com/abc",
		},
	}
	tools := newToolset(&fakeLeadRecorder{}, &fakeEscalator{}, booker)

	result := toolByName(t, tools, "bookAppointment").Handler(context.Background(), bookingArgs())

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Data["meeting_link"] != "https://meet.example.com/abc" {
		t.Fatalf("expected the meeting link in the data, got %v", result.Data)
	}
	if result.Data["tentative"] != false {
		t.Fatalf("expected a firm booking flag, got %v", result.Data)
	}
}
