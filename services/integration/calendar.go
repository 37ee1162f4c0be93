package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"slotline/models"
	"slotline/services/resilience"
)

// CalendarClient mirrors the external calendar collaborator. Every method is
// best-effort from the booking engine's point of view; unavailability never
// blocks a booking outcome.
type CalendarClient interface {
	GetBusyIntervals(ctx context.Context, start, end time.Time) ([]models.Interval, error)
	CreateEvent(ctx context.Context, booking *models.Booking) (string, error)
	UpdateEvent(ctx context.Context, eventID string, booking *models.Booking) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// HTTPCalendarClient talks to the calendar provider's REST API.
type HTTPCalendarClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPCalendarClient(baseURL, apiKey string) *HTTPCalendarClient {
	return &HTTPCalendarClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{},
	}
}

type calendarEventPayload struct {
	Summary string    `json:"summary"`
	Email   string    `json:"attendeeEmail"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

func eventPayload(booking *models.Booking) calendarEventPayload {
	return calendarEventPayload{
		Summary: fmt.Sprintf("Appointment: %s", booking.RequesterName),
		Email:   booking.RequesterEmail,
		Start:   booking.StartTime,
		End:     booking.EndTime(),
	}
}

func (c *HTTPCalendarClient) GetBusyIntervals(ctx context.Context, start, end time.Time) ([]models.Interval, error) {
	url := fmt.Sprintf("%s/busy?start=%s&end=%s",
		c.BaseURL, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar busy lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar busy lookup returned status %d", resp.StatusCode)
	}

	var intervals []models.Interval
	if err := json.NewDecoder(resp.Body).Decode(&intervals); err != nil {
		return nil, fmt.Errorf("failed to decode busy intervals: %w", err)
	}
	return intervals, nil
}

func (c *HTTPCalendarClient) CreateEvent(ctx context.Context, booking *models.Booking) (string, error) {
	body, err := json.Marshal(eventPayload(booking))
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calendar event create failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("calendar event create returned status %d", resp.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode created event: %w", err)
	}
	return created.ID, nil
}

func (c *HTTPCalendarClient) UpdateEvent(ctx context.Context, eventID string, booking *models.Booking) error {
	body, err := json.Marshal(eventPayload(booking))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BaseURL+"/events/"+eventID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("calendar event update failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("calendar event update returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPCalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/events/"+eventID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("calendar event delete failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("calendar event delete returned status %d", resp.StatusCode)
	}
	return nil
}

// GuardedCalendar wraps a CalendarClient with the calendar dependency's
// breaker and retry policy. The breaker is owned here, not shared globally.
type GuardedCalendar struct {
	client CalendarClient
	guard  *resilience.Guard
}

func NewGuardedCalendar(client CalendarClient, guard *resilience.Guard) *GuardedCalendar {
	return &GuardedCalendar{client: client, guard: guard}
}

// Breaker exposes the calendar breaker for health reporting.
func (g *GuardedCalendar) Breaker() *resilience.CircuitBreaker {
	return g.guard.Breaker()
}

func (g *GuardedCalendar) GetBusyIntervals(ctx context.Context, start, end time.Time) ([]models.Interval, error) {
	var intervals []models.Interval
	err := g.guard.Call(ctx, func(ctx context.Context) error {
		var err error
		intervals, err = g.client.GetBusyIntervals(ctx, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return intervals, nil
}

func (g *GuardedCalendar) CreateEvent(ctx context.Context, booking *models.Booking) (string, error) {
	var id string
	err := g.guard.Call(ctx, func(ctx context.Context) error {
		var err error
		id, err = g.client.CreateEvent(ctx, booking)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (g *GuardedCalendar) UpdateEvent(ctx context.Context, eventID string, booking *models.Booking) error {
	return g.guard.Call(ctx, func(ctx context.Context) error {
		return g.client.UpdateEvent(ctx, eventID, booking)
	})
}

func (g *GuardedCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	return g.guard.Call(ctx, func(ctx context.Context) error {
		return g.client.DeleteEvent(ctx, eventID)
	})
}
