package notification

import (
	"context"

	"slotline/models"
)

// Notification kinds sent after lifecycle transitions.
const (
	KindConfirmation = "confirmation"
	KindUpdate       = "update"
	KindCancellation = "cancellation"
)

// NotificationService sends fire-and-forget booking emails. Failures are
// logged by callers and never affect a booking outcome.
type NotificationService interface {
	SendBookingNotification(ctx context.Context, booking *models.Booking, kind string) error
}
