package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"slotline/models"
	"slotline/services/resilience"
)

// CRMClient mirrors the external CRM collaborator. Best-effort only.
type CRMClient interface {
	UpsertContact(ctx context.Context, booking *models.Booking) (string, error)
	UpdateStatus(ctx context.Context, contactID, bookingStatus string) error
}

// HTTPCRMClient talks to the CRM provider's REST API.
type HTTPCRMClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPCRMClient(baseURL, apiKey string) *HTTPCRMClient {
	return &HTTPCRMClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{},
	}
}

func (c *HTTPCRMClient) UpsertContact(ctx context.Context, booking *models.Booking) (string, error) {
	payload := map[string]string{
		"email":   booking.RequesterEmail,
		"name":    booking.RequesterName,
		"phone":   booking.RequesterPhone,
		"company": booking.Company,
		"inquiry": booking.Inquiry,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/contacts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("crm contact upsert failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("crm contact upsert returned status %d", resp.StatusCode)
	}

	var contact struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&contact); err != nil {
		return "", fmt.Errorf("failed to decode crm contact: %w", err)
	}
	return contact.ID, nil
}

func (c *HTTPCRMClient) UpdateStatus(ctx context.Context, contactID, bookingStatus string) error {
	body, err := json.Marshal(map[string]string{"bookingStatus": bookingStatus})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.BaseURL+"/contacts/"+contactID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("crm status update failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("crm status update returned status %d", resp.StatusCode)
	}
	return nil
}

// GuardedCRM wraps a CRMClient with the CRM dependency's own breaker and
// retry policy.
type GuardedCRM struct {
	client CRMClient
	guard  *resilience.Guard
}

func NewGuardedCRM(client CRMClient, guard *resilience.Guard) *GuardedCRM {
	return &GuardedCRM{client: client, guard: guard}
}

// Breaker exposes the CRM breaker for health reporting.
func (g *GuardedCRM) Breaker() *resilience.CircuitBreaker {
	return g.guard.Breaker()
}

func (g *GuardedCRM) UpsertContact(ctx context.Context, booking *models.Booking) (string, error) {
	var id string
	err := g.guard.Call(ctx, func(ctx context.Context) error {
		var err error
		id, err = g.client.UpsertContact(ctx, booking)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (g *GuardedCRM) UpdateStatus(ctx context.Context, contactID, bookingStatus string) error {
	return g.guard.Call(ctx, func(ctx context.Context) error {
		return g.client.UpdateStatus(ctx, contactID, bookingStatus)
	})
}
