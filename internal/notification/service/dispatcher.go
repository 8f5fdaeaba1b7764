// Package service implements the notification dispatcher: independent
// best-effort delivery across email, in-app, and webhook channels.
package service

import (
	"context"
	"time"

	"chatdesk_backend/internal/notification/repository"
	"chatdesk_backend/internal/realtime"
	"chatdesk_backend/platform/apperr"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Notification kinds.
const (
	KindHotLead           = "hot_lead"
	KindWarmLead          = "warm_lead"
	KindEscalation        = "escalation"
	KindAppointmentBooked = "appointment_booked"
	KindTest              = "test"
)

const dispatchTimeout = 30 * time.Second

type SettingsRepository interface {
	GetOrDefault(ctx context.Context, orgID uuid.UUID) (*repository.Settings, error)
	Upsert(ctx context.Context, orgID uuid.UUID, p repository.UpsertParams) (*repository.Settings, error)
	MarkWebhookVerified(ctx context.Context, orgID uuid.UUID) error
	RecordWebhookFailure(ctx context.Context, orgID uuid.UUID) error
}

// EmailSender delivers one HTML email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// RealtimePublisher pushes an in-app event to dashboard subscribers.
type RealtimePublisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// Payload is one notification to fan out. Data feeds the webhook envelope
// and the in-app event; Subject and EmailBody feed the email channel.
type Payload struct {
	Subject   string
	EmailBody string
	// EmailTo is the fallback recipient when the organization has no
	// configured notify address.
	EmailTo string
	Data    map[string]any
}

type Dispatcher struct {
	settings SettingsRepository
	email    EmailSender
	rt       RealtimePublisher
	webhook  *webhookClient
	log      *logger.Logger
}

func NewDispatcher(settings SettingsRepository, email EmailSender, rt RealtimePublisher, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		settings: settings,
		email:    email,
		rt:       rt,
		webhook:  newWebhookClient(),
		log:      log,
	}
}

// Notify fans the payload out across all enabled channels concurrently.
// Each channel fails independently; Notify itself never fails the caller.
func (d *Dispatcher) Notify(ctx context.Context, kind string, orgID uuid.UUID, payload Payload) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()

	settings, err := d.settings.GetOrDefault(ctx, orgID)
	if err != nil {
		d.log.DatabaseError("load notification settings", err)
		settings = &repository.Settings{
			OrganizationID: orgID,
			EmailEnabled:   true,
			InAppEnabled:   true,
		}
	}

	var g errgroup.Group

	if settings.EmailEnabled && d.email != nil {
		g.Go(func() error {
			if err := d.sendEmail(ctx, settings, payload); err != nil {
				d.log.ChannelError("email", kind, err)
			}
			return nil
		})
	}

	if settings.InAppEnabled && d.rt != nil {
		g.Go(func() error {
			event := map[string]any{"kind": kind, "data": payload.Data}
			if err := d.rt.Publish(ctx, realtime.NotifyChannel(orgID), event); err != nil {
				d.log.ChannelError("in_app", kind, err)
			}
			return nil
		})
	}

	if settings.WebhookEnabled && settings.WebhookURL != "" {
		g.Go(func() error {
			d.deliverWebhook(ctx, orgID, settings.WebhookURL, kind, payload.Data)
			return nil
		})
	}

	_ = g.Wait()
}

func (d *Dispatcher) sendEmail(ctx context.Context, settings *repository.Settings, payload Payload) error {
	to := settings.NotifyEmail
	if to == "" {
		to = payload.EmailTo
	}
	if to == "" || payload.Subject == "" {
		return nil
	}
	return d.email.Send(ctx, to, payload.Subject, payload.EmailBody)
}

// deliverWebhook posts the envelope and records the outcome on the settings
// row. Test sends use this exact same path.
func (d *Dispatcher) deliverWebhook(ctx context.Context, orgID uuid.UUID, targetURL, kind string, data map[string]any) {
	if err := d.webhook.deliver(ctx, targetURL, kind, data); err != nil {
		d.log.ChannelError("webhook", kind, err)
		if dbErr := d.settings.RecordWebhookFailure(ctx, orgID); dbErr != nil {
			d.log.DatabaseError("record webhook failure", dbErr)
		}
		return
	}

	if err := d.settings.MarkWebhookVerified(ctx, orgID); err != nil {
		d.log.DatabaseError("mark webhook verified", err)
	}
}

// TestWebhook sends a test envelope through the production delivery path
// and reports the outcome to the caller.
func (d *Dispatcher) TestWebhook(ctx context.Context, orgID uuid.UUID, targetURL string) error {
	if err := ValidateWebhookURL(targetURL); err != nil {
		return err
	}

	data := map[string]any{"message": "test notification"}
	if err := d.webhook.deliver(ctx, targetURL, KindTest, data); err != nil {
		if dbErr := d.settings.RecordWebhookFailure(ctx, orgID); dbErr != nil {
			d.log.DatabaseError("record webhook failure", dbErr)
		}
		return apperr.Wrap(apperr.KindUnavailable, "webhook target did not accept the test delivery", err)
	}

	return d.settings.MarkWebhookVerified(ctx, orgID)
}

func (d *Dispatcher) Settings(ctx context.Context, orgID uuid.UUID) (*repository.Settings, error) {
	return d.settings.GetOrDefault(ctx, orgID)
}

func (d *Dispatcher) UpdateSettings(ctx context.Context, orgID uuid.UUID, p repository.UpsertParams) (*repository.Settings, error) {
	if p.WebhookEnabled && p.WebhookURL != "" {
		if err := ValidateWebhookURL(p.WebhookURL); err != nil {
			return nil, err
		}
	}
	return d.settings.Upsert(ctx, orgID, p)
}
