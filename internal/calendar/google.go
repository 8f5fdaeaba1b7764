package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatdesk_backend/platform/config"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultBaseURL = "https://www.googleapis.com/calendar/v3"
	tokenURL       = "https://oauth2.googleapis.com/token"
	requestTimeout = 15 * time.Second
)

// BusyInterval is one busy window from a free/busy query.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

type EventRequest struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	TimeZone      string
	AttendeeEmail string
}

type CreatedEvent struct {
	ID          string
	MeetingLink string
	HTMLLink    string
}

// Client talks to the Google Calendar REST API with per-organization OAuth
// credentials. Every call has a bounded timeout; a timeout is a failure,
// never a retry loop.
type Client struct {
	store   *CredentialStore
	http    *http.Client
	baseURL string
	cfg     config.CalendarConfig
	log     *logger.Logger
}

func NewClient(store *CredentialStore, cfg config.CalendarConfig, log *logger.Logger) *Client {
	baseURL := cfg.GetCalendarBaseURL()
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		store:   store,
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		cfg:     cfg,
		log:     log,
	}
}

// IsConnected reports whether the organization has a stored credential.
func (c *Client) IsConnected(ctx context.Context, orgID uuid.UUID) bool {
	_, err := c.store.Get(ctx, orgID)
	return err == nil
}

// FreeBusy returns the busy intervals of the organization's calendar between
// timeMin and timeMax.
func (c *Client) FreeBusy(ctx context.Context, orgID uuid.UUID, timeMin, timeMax time.Time) ([]BusyInterval, error) {
	cred, token, err := c.freshToken(ctx, orgID)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"timeMin": timeMin.Format(time.RFC3339),
		"timeMax": timeMax.Format(time.RFC3339),
		"items":   []map[string]string{{"id": cred.CalendarID}},
	}

	var result struct {
		Calendars map[string]struct {
			Busy []struct {
				Start time.Time `json:"start"`
				End   time.Time `json:"end"`
			} `json:"busy"`
		} `json:"calendars"`
	}

	if err := c.do(ctx, http.MethodPost, c.baseURL+"/freeBusy", token, body, &result); err != nil {
		return nil, fmt.Errorf("free/busy query failed: %w", err)
	}

	intervals := make([]BusyInterval, 0)
	for _, cal := range result.Calendars {
		for _, b := range cal.Busy {
			intervals = append(intervals, BusyInterval{Start: b.Start, End: b.End})
		}
	}
	return intervals, nil
}

// CreateEvent inserts a calendar event with a conference link when the
// provider grants one.
func (c *Client) CreateEvent(ctx context.Context, orgID uuid.UUID, req EventRequest) (*CreatedEvent, error) {
	cred, token, err := c.freshToken(ctx, orgID)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"summary":     req.Summary,
		"description": req.Description,
		"start": map[string]string{
			"dateTime": req.Start.Format(time.RFC3339),
			"timeZone": req.TimeZone,
		},
		"end": map[string]string{
			"dateTime": req.End.Format(time.RFC3339),
			"timeZone": req.TimeZone,
		},
		"conferenceData": map[string]any{
			"createRequest": map[string]any{
				"requestId":             uuid.NewString(),
				"conferenceSolutionKey": map[string]string{"type": "hangoutsMeet"},
			},
		},
	}
	if req.AttendeeEmail != "" {
		body["attendees"] = []map[string]string{{"email": req.AttendeeEmail}}
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events?conferenceDataVersion=1",
		c.baseURL, url.PathEscape(cred.CalendarID))

	var result struct {
		ID             string `json:"id"`
		HangoutLink    string `json:"hangoutLink"`
		HTMLLink       string `json:"htmlLink"`
		ConferenceData struct {
			EntryPoints []struct {
				EntryPointType string `json:"entryPointType"`
				URI            string `json:"uri"`
			} `json:"entryPoints"`
		} `json:"conferenceData"`
	}

	if err := c.do(ctx, http.MethodPost, endpoint, token, body, &result); err != nil {
		return nil, fmt.Errorf("event creation failed: %w", err)
	}

	meetingLink := result.HangoutLink
	if meetingLink == "" {
		for _, ep := range result.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				meetingLink = ep.URI
				break
			}
		}
	}

	return &CreatedEvent{ID: result.ID, MeetingLink: meetingLink, HTMLLink: result.HTMLLink}, nil
}

// DeleteEvent removes an event, tolerating already-deleted events.
func (c *Client) DeleteEvent(ctx context.Context, orgID uuid.UUID, eventID string) error {
	cred, token, err := c.freshToken(ctx, orgID)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s",
		c.baseURL, url.PathEscape(cred.CalendarID), url.PathEscape(eventID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("event deletion failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusGone {
		return fmt.Errorf("event deletion failed: status %d", resp.StatusCode)
	}
	return nil
}

// freshToken returns the credential and a usable access token, refreshing
// through the OAuth endpoint when the stored one is about to expire.
func (c *Client) freshToken(ctx context.Context, orgID uuid.UUID) (*Credential, string, error) {
	cred, err := c.store.Get(ctx, orgID)
	if err != nil {
		return nil, "", err
	}

	if time.Until(cred.TokenExpiry) > time.Minute {
		return cred, cred.AccessToken, nil
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.GetCalendarOAuthClientID())
	form.Set("client_secret", c.cfg.GetCalendarOAuthClientSecret())
	form.Set("refresh_token", cred.RefreshToken)
	form.Set("grant_type", "refresh_token")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("failed to build token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("token refresh failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, "", fmt.Errorf("token refresh failed: status %d: %s", resp.StatusCode, payload)
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, "", fmt.Errorf("failed to decode token response: %w", err)
	}

	expiry := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	if err := c.store.UpdateAccessToken(ctx, orgID, token.AccessToken, expiry); err != nil {
		// The refreshed token still works for this call.
		c.log.DatabaseError("persist refreshed calendar token", err)
	}

	cred.AccessToken = token.AccessToken
	cred.TokenExpiry = expiry
	return cred, token.AccessToken, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("status %d: %s", resp.StatusCode, payload)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
