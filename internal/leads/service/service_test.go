package service

import (
	"context"
	"testing"

	"chatdesk_backend/internal/events"
	"chatdesk_backend/internal/leads/repository"
	scoringsvc "chatdesk_backend/internal/scoring/service"
	"chatdesk_backend/platform/apperr"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeLeadRepo struct {
	created []repository.CreateParams
}

func (f *fakeLeadRepo) Create(_ context.Context, p repository.CreateParams) (*repository.Lead, error) {
	f.created = append(f.created, p)
	return &repository.Lead{
		ID:             uuid.New(),
		OrganizationID: p.OrganizationID,
		ConversationID: p.ConversationID,
		Name:           p.Name,
		Email:          p.Email,
		Phone:          p.Phone,
		Score:          p.Score,
		Quality:        p.Quality,
		Reasoning:      p.Reasoning,
		Status:         repository.StatusNew,
	}, nil
}

func (f *fakeLeadRepo) GetByID(_ context.Context, _, leadID uuid.UUID) (*repository.Lead, error) {
	return &repository.Lead{ID: leadID}, nil
}

func (f *fakeLeadRepo) ListByOrg(_ context.Context, _ uuid.UUID, _ string, _, _ int) ([]repository.Lead, error) {
	return nil, nil
}

func (f *fakeLeadRepo) UpdateStatus(_ context.Context, _, _ uuid.UUID, _ string) error {
	return nil
}

type fixedScorer struct {
	lastFactors scoringsvc.Factors
}

func (s *fixedScorer) Score(_ context.Context, _ uuid.UUID, factors scoringsvc.Factors) *scoringsvc.Result {
	s.lastFactors = factors
	return &scoringsvc.Result{Score: 80, Quality: scoringsvc.QualityHot, Reasoning: []string{"test"}}
}

type captureBus struct {
	published []events.Event
}

func (b *captureBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *captureBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *captureBus) Subscribe(_ string, _ events.Handler) {}

func newLeadService(repo *fakeLeadRepo, scorer *fixedScorer, bus *captureBus) *Service {
	return NewService(repo, scorer, bus, logger.New("test"))
}

func TestCapture_RequiresName(t *testing.T) {
	svc := newLeadService(&fakeLeadRepo{}, &fixedScorer{}, &captureBus{})

	_, err := svc.Capture(context.Background(), CaptureParams{
		OrganizationID: uuid.New(),
		Email:          "jamie@example.com",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestCapture_RequiresEmailOrPhone(t *testing.T) {
	svc := newLeadService(&fakeLeadRepo{}, &fixedScorer{}, &captureBus{})

	_, err := svc.Capture(context.Background(), CaptureParams{
		OrganizationID: uuid.New(),
		Name:           "Jamie",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestCapture_NormalizesContactDetails(t *testing.T) {
	repo := &fakeLeadRepo{}
	svc := newLeadService(repo, &fixedScorer{}, &captureBus{})

	_, err := svc.Capture(context.Background(), CaptureParams{
		OrganizationID: uuid.New(),
		Name:           "  Jamie Doe  ",
		Email:          "Jamie@Example.COM",
		Phone:          "(212) 555-0123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := repo.created[0]
	if p.Name != "Jamie Doe" {
		t.Fatalf("expected the name trimmed, got %q", p.Name)
	}
	if p.Email == nil || *p.Email != "jamie@example.com" {
		t.Fatalf("expected the email lowercased, got %v", p.Email)
	}
	if p.Phone == nil || *p.Phone != "+12125550123" {
		t.Fatalf("expected the phone in E.164, got %v", p.Phone)
	}
}

func TestCapture_PassesFactorsToScorer(t *testing.T) {
	scorer := &fixedScorer{}
	svc := newLeadService(&fakeLeadRepo{}, scorer, &captureBus{})

	_, err := svc.Capture(context.Background(), CaptureParams{
		OrganizationID:    uuid.New(),
		Name:              "Jamie",
		Email:             "jamie@acme-corp.com",
		Notes:             "wants enterprise plan",
		KeywordsMentioned: []string{"pricing"},
		NumQuestionsAsked: 4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := scorer.lastFactors
	if f.EmailDomain != "acme-corp.com" {
		t.Fatalf("expected the email domain extracted, got %q", f.EmailDomain)
	}
	if f.PhoneProvided {
		t.Fatalf("no phone was given")
	}
	if f.NumQuestionsAsked != 4 || len(f.KeywordsMentioned) != 1 {
		t.Fatalf("factors not mapped: %+v", f)
	}
}

func TestCapture_PublishesLeadCaptured(t *testing.T) {
	bus := &captureBus{}
	svc := newLeadService(&fakeLeadRepo{}, &fixedScorer{}, bus)

	lead, err := svc.Capture(context.Background(), CaptureParams{
		OrganizationID: uuid.New(),
		Name:           "Jamie",
		Email:          "jamie@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.Quality != scoringsvc.QualityHot {
		t.Fatalf("expected the scored quality on the lead, got %q", lead.Quality)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(bus.published))
	}
	captured, ok := bus.published[0].(events.LeadCaptured)
	if !ok {
		t.Fatalf("expected a LeadCaptured event, got %T", bus.published[0])
	}
	if captured.Quality != scoringsvc.QualityHot || captured.LeadID != lead.ID {
		t.Fatalf("event not populated from the lead: %+v", captured)
	}
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	svc := newLeadService(&fakeLeadRepo{}, &fixedScorer{}, &captureBus{})

	if err := svc.UpdateStatus(context.Background(), uuid.New(), uuid.New(), "vip"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if err := svc.UpdateStatus(context.Background(), uuid.New(), uuid.New(), repository.StatusConverted); err != nil {
		t.Fatalf("unexpected error for a valid status: %v", err)
	}
}
