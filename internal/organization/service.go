package organization

import (
	"context"
	"time"

	"chatdesk_backend/platform/logger"
	"chatdesk_backend/platform/phone"

	"github.com/google/uuid"
)

// Service exposes organization settings to the rest of the core.
type Service struct {
	repo *Repository
	log  *logger.Logger
}

func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.repo.GetByID(ctx, id)
}

// IsBotDisabled reports the org-level kill switch. A lookup failure is
// treated as "not disabled" so a transient read error cannot silence the bot.
func (s *Service) IsBotDisabled(ctx context.Context, id uuid.UUID) bool {
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.log.Warn("bot_disabled lookup failed, assuming enabled", "orgId", id, "error", err)
		return false
	}
	return org.BotDisabled
}

func (s *Service) SetBotDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	return s.repo.SetBotDisabled(ctx, id, disabled)
}

// OrgForWhatsAppNumber resolves which organization owns an inbound WhatsApp
// business number.
func (s *Service) OrgForWhatsAppNumber(ctx context.Context, number string) (uuid.UUID, error) {
	org, err := s.repo.GetByWhatsAppNumber(ctx, phone.SessionKey(number))
	if err != nil {
		return uuid.Nil, err
	}
	return org.ID, nil
}

// Location resolves the organization's timezone, defaulting to UTC when the
// org has none configured or the name does not load.
func (s *Service) Location(ctx context.Context, id uuid.UUID) *time.Location {
	org, err := s.repo.GetByID(ctx, id)
	if err != nil || org.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(org.Timezone)
	if err != nil {
		s.log.Warn("invalid organization timezone, using UTC", "orgId", id, "timezone", org.Timezone)
		return time.UTC
	}
	return loc
}
