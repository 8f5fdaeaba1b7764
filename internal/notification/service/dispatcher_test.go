package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"chatdesk_backend/internal/notification/repository"
	"chatdesk_backend/platform/apperr"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings *repository.Settings
	getErr   error
	verified int
	failures int
	upserted *repository.UpsertParams
}

func (f *fakeSettingsRepo) GetOrDefault(_ context.Context, orgID uuid.UUID) (*repository.Settings, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.settings != nil {
		return f.settings, nil
	}
	return &repository.Settings{OrganizationID: orgID, EmailEnabled: true, InAppEnabled: true}, nil
}

func (f *fakeSettingsRepo) Upsert(_ context.Context, orgID uuid.UUID, p repository.UpsertParams) (*repository.Settings, error) {
	f.upserted = &p
	return &repository.Settings{OrganizationID: orgID}, nil
}

func (f *fakeSettingsRepo) MarkWebhookVerified(_ context.Context, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified++
	return nil
}

func (f *fakeSettingsRepo) RecordWebhookFailure(_ context.Context, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
	return nil
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeEmailSender) Send(_ context.Context, to, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

type fakeRealtime struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (f *fakeRealtime) Publish(_ context.Context, channel string, _ any) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, channel)
	return nil
}

func TestNotify_FansOutToEnabledChannels(t *testing.T) {
	repo := &fakeSettingsRepo{}
	email := &fakeEmailSender{}
	rt := &fakeRealtime{}
	d := NewDispatcher(repo, email, rt, logger.New("test"))

	d.Notify(context.Background(), KindHotLead, uuid.New(), Payload{
		Subject:   "Hot lead",
		EmailBody: "<p>lead</p>",
		EmailTo:   "owner@acme.test",
		Data:      map[string]any{"name": "Jamie"},
	})

	if len(email.sent) != 1 || email.sent[0] != "owner@acme.test" {
		t.Fatalf("expected one email to the fallback recipient, got %v", email.sent)
	}
	if len(rt.published) != 1 {
		t.Fatalf("expected one in-app publish, got %v", rt.published)
	}
}

func TestNotify_ConfiguredAddressBeatsFallback(t *testing.T) {
	repo := &fakeSettingsRepo{settings: &repository.Settings{
		EmailEnabled: true,
		NotifyEmail:  "alerts@acme.test",
	}}
	email := &fakeEmailSender{}
	d := NewDispatcher(repo, email, nil, logger.New("test"))

	d.Notify(context.Background(), KindHotLead, uuid.New(), Payload{
		Subject: "Hot lead",
		EmailTo: "owner@acme.test",
	})

	if len(email.sent) != 1 || email.sent[0] != "alerts@acme.test" {
		t.Fatalf("expected the configured address, got %v", email.sent)
	}
}

func TestNotify_EmailFailureDoesNotStopInApp(t *testing.T) {
	repo := &fakeSettingsRepo{}
	email := &fakeEmailSender{err: errors.New("smtp down")}
	rt := &fakeRealtime{}
	d := NewDispatcher(repo, email, rt, logger.New("test"))

	d.Notify(context.Background(), KindEscalation, uuid.New(), Payload{
		Subject: "Escalation",
		EmailTo: "owner@acme.test",
		Data:    map[string]any{"reason": "angry customer"},
	})

	if len(rt.published) != 1 {
		t.Fatalf("in-app delivery must not depend on the email channel, got %v", rt.published)
	}
}

func TestNotify_SettingsLoadFailureUsesDefaults(t *testing.T) {
	repo := &fakeSettingsRepo{getErr: errors.New("db down")}
	email := &fakeEmailSender{}
	rt := &fakeRealtime{}
	d := NewDispatcher(repo, email, rt, logger.New("test"))

	d.Notify(context.Background(), KindWarmLead, uuid.New(), Payload{
		Subject: "Warm lead",
		EmailTo: "owner@acme.test",
	})

	if len(email.sent) != 1 {
		t.Fatalf("defaults keep email enabled, got %v", email.sent)
	}
	if len(rt.published) != 1 {
		t.Fatalf("defaults keep in-app enabled, got %v", rt.published)
	}
}

func TestNotify_DisabledChannelsStaySilent(t *testing.T) {
	repo := &fakeSettingsRepo{settings: &repository.Settings{}}
	email := &fakeEmailSender{}
	rt := &fakeRealtime{}
	d := NewDispatcher(repo, email, rt, logger.New("test"))

	d.Notify(context.Background(), KindHotLead, uuid.New(), Payload{
		Subject: "Hot lead",
		EmailTo: "owner@acme.test",
	})

	if len(email.sent) != 0 || len(rt.published) != 0 {
		t.Fatalf("disabled channels must not deliver: email=%v inapp=%v", email.sent, rt.published)
	}
}

func TestValidateWebhookURL_HTTPSOnly(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://hooks.example.com/x", true},
		{"http://hooks.example.com/x", false},
		{"ftp://hooks.example.com/x", false},
		{"https://", false},
		{"not a url at all://", false},
		{"", false},
	}

	for _, tc := range cases {
		err := ValidateWebhookURL(tc.url)
		if tc.want && err != nil {
			t.Fatalf("%q: expected valid, got %v", tc.url, err)
		}
		if !tc.want && !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%q: expected a validation error, got %v", tc.url, err)
		}
	}
}

func TestTestWebhook_RejectsPlainHTTPBeforeDelivery(t *testing.T) {
	repo := &fakeSettingsRepo{}
	d := NewDispatcher(repo, nil, nil, logger.New("test"))

	err := d.TestWebhook(context.Background(), uuid.New(), "http://internal.example.com/hook")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if repo.failures != 0 {
		t.Fatalf("a rejected URL must not count as a delivery failure")
	}
}

func TestUpdateSettings_ValidatesWebhookURLWhenEnabling(t *testing.T) {
	repo := &fakeSettingsRepo{}
	d := NewDispatcher(repo, nil, nil, logger.New("test"))

	_, err := d.UpdateSettings(context.Background(), uuid.New(), repository.UpsertParams{
		WebhookEnabled: true,
		WebhookURL:     "http://insecure.example.com",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if repo.upserted != nil {
		t.Fatalf("invalid settings must not be persisted")
	}
}
