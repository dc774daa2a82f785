package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const calendarScope = "https://www.googleapis.com/auth/calendar.events.owned"

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// GoogleCalendar talks to the Google Calendar v3 events API with an OAuth
// token persisted on disk. Until a token has been obtained it reports
// unauthorized and every call fails.
type GoogleCalendar struct {
	conf       *oauth2.Config
	calendarID string
	tokenPath  string
	baseURL    string

	mu    sync.Mutex
	token *oauth2.Token
}

func NewGoogleCalendar(clientID, clientSecret, redirectURI, calendarID, tokenPath string) *GoogleCalendar {
	c := &GoogleCalendar{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{calendarScope},
			Endpoint:     google.Endpoint,
		},
		calendarID: calendarID,
		tokenPath:  tokenPath,
		baseURL:    defaultBaseURL,
	}
	c.loadToken()
	return c
}

func (c *GoogleCalendar) loadToken() {
	data, err := os.ReadFile(c.tokenPath)
	if err != nil {
		return
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return
	}
	c.token = &token
}

// Authorized reports whether a token is available.
func (c *GoogleCalendar) Authorized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != nil
}

// AuthURL returns the consent URL the operator must visit.
func (c *GoogleCalendar) AuthURL() string {
	return c.conf.AuthCodeURL("state", oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and persists it.
func (c *GoogleCalendar) Exchange(ctx context.Context, code string) error {
	token, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.tokenPath), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(c.tokenPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

func (c *GoogleCalendar) client(ctx context.Context) (*http.Client, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == nil {
		return nil, fmt.Errorf("calendar API not authorized")
	}
	return c.conf.Client(ctx, token), nil
}

// Wire shape of a calendar v3 event.
type googleEvent struct {
	ID          string         `json:"id,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location,omitempty"`
	Start       googleDateTime `json:"start"`
	End         googleDateTime `json:"end"`
}

type googleDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
}

func toGoogleEvent(event Event) googleEvent {
	return googleEvent{
		ID:          event.ID,
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start:       googleDateTime{DateTime: event.Start.Format(time.RFC3339)},
		End:         googleDateTime{DateTime: event.End.Format(time.RFC3339)},
	}
}

func fromGoogleEvent(event googleEvent) Event {
	start, _ := time.Parse(time.RFC3339, event.Start.DateTime)
	end, _ := time.Parse(time.RFC3339, event.End.DateTime)
	return Event{
		ID:          event.ID,
		Title:       event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Start:       start,
		End:         end,
	}
}

func (c *GoogleCalendar) eventsURL(parts ...string) string {
	u := c.baseURL + "/calendars/" + url.PathEscape(c.calendarID) + "/events"
	for _, part := range parts {
		u += "/" + url.PathEscape(part)
	}
	return u
}

func (c *GoogleCalendar) do(ctx context.Context, method, rawURL string, body interface{}, out interface{}) error {
	client, err := c.client(ctx)
	if err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("calendar API returned %s: %s", resp.Status, payload)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListUpcoming returns events starting from now.
func (c *GoogleCalendar) ListUpcoming(ctx context.Context) ([]Event, error) {
	query := url.Values{}
	query.Set("timeMin", time.Now().UTC().Format(time.RFC3339))
	query.Set("timeZone", "UTC")
	var response struct {
		Items []googleEvent `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, c.eventsURL()+"?"+query.Encode(), nil, &response); err != nil {
		return nil, err
	}
	events := make([]Event, len(response.Items))
	for i, item := range response.Items {
		events[i] = fromGoogleEvent(item)
	}
	return events, nil
}

func (c *GoogleCalendar) Create(ctx context.Context, event Event) error {
	return c.do(ctx, http.MethodPost, c.eventsURL(), toGoogleEvent(event), nil)
}

func (c *GoogleCalendar) Update(ctx context.Context, event Event) error {
	return c.do(ctx, http.MethodPut, c.eventsURL(event.ID), toGoogleEvent(event), nil)
}

func (c *GoogleCalendar) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.eventsURL(id), nil, nil)
}

var _ Calendar = (*GoogleCalendar)(nil)
