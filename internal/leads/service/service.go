// Package service captures leads: it scores the supplied signals, persists
// the contact, and announces the capture.
package service

import (
	"context"
	"strings"

	"chatdesk_backend/internal/events"
	"chatdesk_backend/internal/leads/repository"
	scoringsvc "chatdesk_backend/internal/scoring/service"
	"chatdesk_backend/platform/apperr"
	"chatdesk_backend/platform/logger"
	"chatdesk_backend/platform/phone"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p repository.CreateParams) (*repository.Lead, error)
	GetByID(ctx context.Context, orgID, leadID uuid.UUID) (*repository.Lead, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID, quality string, limit, offset int) ([]repository.Lead, error)
	UpdateStatus(ctx context.Context, orgID, leadID uuid.UUID, status string) error
}

// Scorer computes score and quality for observed signals.
type Scorer interface {
	Score(ctx context.Context, orgID uuid.UUID, factors scoringsvc.Factors) *scoringsvc.Result
}

type Service struct {
	repo   Repository
	scorer Scorer
	bus    events.Bus
	log    *logger.Logger
}

func NewService(repo Repository, scorer Scorer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, scorer: scorer, bus: bus, log: log}
}

type CaptureParams struct {
	OrganizationID      uuid.UUID
	ConversationID      *uuid.UUID
	Name                string
	Email               string
	Phone               string
	Notes               string
	KeywordsMentioned   []string
	ResponseTimeSeconds float64
	NumQuestionsAsked   int
}

// Capture scores and persists a lead. Scoring cannot fail; persistence can.
func (s *Service) Capture(ctx context.Context, p CaptureParams) (*repository.Lead, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, apperr.Validation("lead name is required")
	}
	if p.Email == "" && p.Phone == "" {
		return nil, apperr.Validation("lead needs an email or a phone number")
	}

	result := s.scorer.Score(ctx, p.OrganizationID, scoringsvc.Factors{
		EmailDomain:         emailDomain(p.Email),
		PhoneProvided:       p.Phone != "",
		Notes:               p.Notes,
		KeywordsMentioned:   p.KeywordsMentioned,
		ResponseTimeSeconds: p.ResponseTimeSeconds,
		NumQuestionsAsked:   p.NumQuestionsAsked,
	})

	var email, phoneNumber *string
	if p.Email != "" {
		normalized := strings.ToLower(strings.TrimSpace(p.Email))
		email = &normalized
	}
	if p.Phone != "" {
		normalized := phone.NormalizeE164(p.Phone)
		phoneNumber = &normalized
	}

	lead, err := s.repo.Create(ctx, repository.CreateParams{
		OrganizationID: p.OrganizationID,
		ConversationID: p.ConversationID,
		Name:           strings.TrimSpace(p.Name),
		Email:          email,
		Phone:          phoneNumber,
		Notes:          p.Notes,
		Score:          result.Score,
		Quality:        result.Quality,
		Reasoning:      result.Reasoning,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("lead captured",
		"lead_id", lead.ID,
		"organization_id", lead.OrganizationID,
		"score", lead.Score,
		"quality", lead.Quality,
	)

	s.bus.Publish(ctx, events.NewLeadCaptured(events.LeadCapturedParams{
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		ConversationID: p.ConversationID,
		Name:           lead.Name,
		Email:          p.Email,
		Phone:          p.Phone,
		Score:          lead.Score,
		Quality:        lead.Quality,
		Reasoning:      result.Reasoning,
	}))

	return lead, nil
}

func (s *Service) Get(ctx context.Context, orgID, leadID uuid.UUID) (*repository.Lead, error) {
	return s.repo.GetByID(ctx, orgID, leadID)
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, quality string, limit, offset int) ([]repository.Lead, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByOrg(ctx, orgID, quality, limit, offset)
}

func (s *Service) UpdateStatus(ctx context.Context, orgID, leadID uuid.UUID, status string) error {
	switch status {
	case repository.StatusNew, repository.StatusContacted, repository.StatusConverted, repository.StatusLost:
	default:
		return apperr.Validation("invalid lead status")
	}
	return s.repo.UpdateStatus(ctx, orgID, leadID, status)
}

func emailDomain(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 && at < len(email)-1 {
		return strings.ToLower(email[at+1:])
	}
	return ""
}
