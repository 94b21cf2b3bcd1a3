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
	"sync"
	"time"

	"github.com/roomninja/roomninja/internal/models"
)

const (
	defaultBaseURL   = "https://outlook.office.com/api/v2.0"
	defaultAuthority = "https://login.windows.net"
	outlookResource  = "https://outlook.office.com"
)

// Client is a REST client for an Outlook-style calendar API, authenticating
// with OAuth client credentials. It implements Service and SubscriptionAPI.
type Client struct {
	baseURL    string
	authority  string
	creds      models.CalendarCredentials
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL overrides the API base URL
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAuthority overrides the token-endpoint authority
func WithAuthority(u string) Option {
	return func(c *Client) { c.authority = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a calendar client for one organization's credentials
func NewClient(creds models.CalendarCredentials, opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		authority: defaultAuthority,
		creds:     creds,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// token returns a valid access token, refreshing it when missing or expired
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	if !c.creds.Valid() {
		return "", fmt.Errorf("calendar credentials are not configured")
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", c.creds.ClientID)
	data.Set("client_secret", c.creds.ClientSecret)
	data.Set("resource", outlookResource)

	tokenURL := fmt.Sprintf("%s/%s/oauth2/token", c.authority, c.creds.TenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed (status %d): %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	c.accessToken = tokenResp.AccessToken
	// refresh a bit before the actual expiry to avoid races
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)
	return c.accessToken, nil
}

// do performs one authenticated API call, decoding a JSON response into out
// when out is non-nil. Missing/forbidden mailboxes map to ErrAccessDenied.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w (status %d)", ErrAccessDenied, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("calendar API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func userPath(roomAddress string) string {
	return fmt.Sprintf("/Users('%s')", url.PathEscape(roomAddress))
}

// wire formats

type wireDateTime struct {
	DateTime string `json:"DateTime"`
	TimeZone string `json:"TimeZone"`
}

func toWireDateTime(t time.Time) wireDateTime {
	return wireDateTime{DateTime: t.UTC().Format("2006-01-02T15:04:05"), TimeZone: "UTC"}
}

func (w wireDateTime) parse() time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05.9999999", "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, w.DateTime); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

type wireEmailAddress struct {
	Name    string `json:"Name"`
	Address string `json:"Address"`
}

type wireRecipient struct {
	EmailAddress wireEmailAddress `json:"EmailAddress"`
}

type wireAttendee struct {
	EmailAddress wireEmailAddress `json:"EmailAddress"`
	Type         string           `json:"Type,omitempty"`
}

type wireEvent struct {
	ID          string         `json:"Id"`
	Subject     string         `json:"Subject"`
	Sensitivity string         `json:"Sensitivity"`
	ShowAs      string         `json:"ShowAs"`
	IsAllDay    bool           `json:"IsAllDay"`
	Start       wireDateTime   `json:"Start"`
	End         wireDateTime   `json:"End"`
	Organizer   wireRecipient  `json:"Organizer"`
	Attendees   []wireAttendee `json:"Attendees"`
}

func (w *wireEvent) toEvent() *Event {
	e := &Event{
		ID:          w.ID,
		Subject:     w.Subject,
		Sensitivity: strings.ToLower(w.Sensitivity),
		ShowAs:      strings.ToLower(w.ShowAs),
		IsAllDay:    w.IsAllDay,
		Start:       w.Start.parse(),
		End:         w.End.parse(),
		Organizer:   Attendee{Name: w.Organizer.EmailAddress.Name, Address: w.Organizer.EmailAddress.Address},
	}
	if e.Sensitivity == "" {
		e.Sensitivity = SensitivityNormal
	}
	for _, a := range w.Attendees {
		attendee := Attendee{Name: a.EmailAddress.Name, Address: a.EmailAddress.Address}
		if strings.EqualFold(a.Type, "Optional") {
			e.OptionalAttendees = append(e.OptionalAttendees, attendee)
		} else {
			e.RequiredAttendees = append(e.RequiredAttendees, attendee)
		}
	}
	return e
}

// FindUpcomingEvents lists the room's events overlapping the window
func (c *Client) FindUpcomingEvents(ctx context.Context, roomAddress string, windowStart, windowEnd time.Time) ([]*Event, error) {
	path := fmt.Sprintf("%s/calendarview?startDateTime=%s&endDateTime=%s",
		userPath(roomAddress),
		url.QueryEscape(windowStart.UTC().Format(time.RFC3339)),
		url.QueryEscape(windowEnd.UTC().Format(time.RFC3339)))

	var resp struct {
		Value []wireEvent `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	events := make([]*Event, 0, len(resp.Value))
	for i := range resp.Value {
		events = append(events, resp.Value[i].toEvent())
	}
	return events, nil
}

// GetEvent fetches a single event from the room's calendar
func (c *Client) GetEvent(ctx context.Context, roomAddress, eventID string) (*Event, error) {
	var resp wireEvent
	path := fmt.Sprintf("%s/events/%s", userPath(roomAddress), url.PathEscape(eventID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toEvent(), nil
}

// RewriteEventEnd updates the event's end time on the external system
func (c *Client) RewriteEventEnd(ctx context.Context, roomAddress, eventID string, newEnd time.Time) error {
	payload := map[string]interface{}{
		"End": toWireDateTime(newEnd),
	}
	path := fmt.Sprintf("%s/events/%s", userPath(roomAddress), url.PathEscape(eventID))
	return c.do(ctx, http.MethodPatch, path, payload, nil)
}

// CreateEvent books a new event on the room's calendar and returns its id
func (c *Client) CreateEvent(ctx context.Context, roomAddress string, start, end time.Time, subject, body string) (string, error) {
	payload := map[string]interface{}{
		"Subject": subject,
		"Body": map[string]string{
			"ContentType": "Text",
			"Content":     body,
		},
		"Start": toWireDateTime(start),
		"End":   toWireDateTime(end),
	}

	var resp wireEvent
	path := userPath(roomAddress) + "/events"
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ResolveRoomIdentity returns the room's display name
func (c *Client) ResolveRoomIdentity(ctx context.Context, roomAddress string) (string, error) {
	var resp struct {
		DisplayName string `json:"DisplayName"`
	}
	if err := c.do(ctx, http.MethodGet, userPath(roomAddress), nil, &resp); err != nil {
		return "", err
	}
	return resp.DisplayName, nil
}

// RoomLists returns the room lists defined on the calendar server
func (c *Client) RoomLists(ctx context.Context) ([]models.RoomList, error) {
	var resp struct {
		Value []struct {
			Name    string `json:"Name"`
			Address string `json:"Address"`
		} `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, "/findroomlists", nil, &resp); err != nil {
		return nil, err
	}

	lists := make([]models.RoomList, 0, len(resp.Value))
	for _, v := range resp.Value {
		lists = append(lists, models.RoomList{Name: v.Name, Address: v.Address})
	}
	return lists, nil
}

// Rooms returns the rooms in the given room list
func (c *Client) Rooms(ctx context.Context, roomListAddress string) ([]models.Room, error) {
	var resp struct {
		Value []struct {
			Name    string `json:"Name"`
			Address string `json:"Address"`
		} `json:"value"`
	}
	path := "/findrooms?roomlist=" + url.QueryEscape(roomListAddress)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	rooms := make([]models.Room, 0, len(resp.Value))
	for _, v := range resp.Value {
		rooms = append(rooms, models.Room{Name: v.Name, Address: v.Address})
	}
	return rooms, nil
}

// SendEmail sends a notification mail from the service account
func (c *Client) SendEmail(ctx context.Context, to Attendee, cc []Attendee, subject, body string) error {
	ccRecipients := make([]wireRecipient, 0, len(cc))
	for _, a := range cc {
		ccRecipients = append(ccRecipients, wireRecipient{EmailAddress: wireEmailAddress{Name: a.Name, Address: a.Address}})
	}

	payload := map[string]interface{}{
		"Message": map[string]interface{}{
			"Subject": subject,
			"Body": map[string]string{
				"ContentType": "Text",
				"Content":     body,
			},
			"ToRecipients": []wireRecipient{{EmailAddress: wireEmailAddress{Name: to.Name, Address: to.Address}}},
			"CcRecipients": ccRecipients,
		},
	}
	return c.do(ctx, http.MethodPost, "/me/sendmail", payload, nil)
}

// RenewSubscription extends an existing push subscription
func (c *Client) RenewSubscription(ctx context.Context, roomAddress, subscriptionID string, expiration time.Time) error {
	payload := map[string]interface{}{
		"@odata.type":                    "#Microsoft.OutlookServices.PushSubscription",
		"SubscriptionExpirationDateTime": expiration.UTC().Format(time.RFC3339),
	}
	path := fmt.Sprintf("%s/subscriptions/%s", userPath(roomAddress), url.PathEscape(subscriptionID))
	return c.do(ctx, http.MethodPatch, path, payload, nil)
}

// CreateSubscription registers a new push subscription on the room's event
// feed, asking for created/updated/deleted notifications, and returns the new
// subscription id.
func (c *Client) CreateSubscription(ctx context.Context, roomAddress, notificationURL, clientState string, expiration time.Time) (string, error) {
	payload := map[string]interface{}{
		"@odata.type":                    "#Microsoft.OutlookServices.PushSubscription",
		"Resource":                       c.baseURL + userPath(roomAddress) + "/events",
		"NotificationURL":                notificationURL,
		"ChangeType":                     "Created,Deleted,Updated",
		"ClientState":                    clientState,
		"SubscriptionExpirationDateTime": expiration.UTC().Format(time.RFC3339),
	}

	var resp struct {
		ID string `json:"Id"`
	}
	if err := c.do(ctx, http.MethodPost, userPath(roomAddress)+"/subscriptions", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}
