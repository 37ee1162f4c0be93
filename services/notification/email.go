package notification

import (
	"context"
	"fmt"
	"sync"

	"slotline/config"
	"slotline/models"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailNotificationService sends booking emails through SendGrid.
type EmailNotificationService struct {
	APIKey    string
	FromEmail string
}

func NewEmailNotificationService() *EmailNotificationService {
	return &EmailNotificationService{
		APIKey:    config.AppConfig.SendgridAPIKey,
		FromEmail: config.AppConfig.NotifyFromEmail,
	}
}

func (s *EmailNotificationService) SendBookingNotification(ctx context.Context, booking *models.Booking, kind string) error {
	if s.APIKey == "" {
		return fmt.Errorf("sendgrid api key not configured")
	}

	when := booking.StartTime.Format("Monday, 2 January at 3:04 PM")

	var subject, body string
	switch kind {
	case KindConfirmation:
		subject = "Your appointment is confirmed"
		body = fmt.Sprintf("Hi %s,\n\nYour %d-minute appointment on %s is confirmed.\n\nBooking reference: %s\n",
			booking.RequesterName, booking.DurationMinutes, when, booking.ID)
	case KindUpdate:
		subject = "Your appointment has been rescheduled"
		body = fmt.Sprintf("Hi %s,\n\nYour appointment has been moved to %s (%d minutes).\n\nBooking reference: %s\n",
			booking.RequesterName, when, booking.DurationMinutes, booking.ID)
	case KindCancellation:
		subject = "Your appointment has been cancelled"
		body = fmt.Sprintf("Hi %s,\n\nYour appointment on %s has been cancelled.\n\nBooking reference: %s\n",
			booking.RequesterName, when, booking.ID)
	default:
		return fmt.Errorf("unknown notification kind %q", kind)
	}

	from := mail.NewEmail("Slotline", s.FromEmail)
	to := mail.NewEmail(booking.RequesterName, booking.RequesterEmail)
	message := mail.NewSingleEmail(from, subject, to, body, "")

	client := sendgrid.NewSendClient(s.APIKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// FakeNotificationService records sends for tests.
type FakeNotificationService struct {
	mu   sync.Mutex
	Sent []string // "<kind>:<bookingID>"
	Fail bool
}

func (f *FakeNotificationService) SendBookingNotification(ctx context.Context, booking *models.Booking, kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return fmt.Errorf("notification send failed")
	}
	f.Sent = append(f.Sent, kind+":"+booking.ID)
	return nil
}
