package booking

import (
	"context"

	"slotline/models"
)

// Dispatcher enqueues best-effort post-write sync work (calendar, CRM,
// notification). Enqueue failures are logged, never surfaced to the booking
// caller.
type Dispatcher interface {
	DispatchSync(bookingID, operation string) error
}

// BookingService orchestrates the booking lifecycle. The durable write is the
// success boundary for every operation; external sync happens afterwards
// through the outbox and can only flip the manual-sync flags.
type BookingService interface {
	Create(ctx context.Context, req models.BookingRequest) (*models.Booking, error)
	Reschedule(ctx context.Context, req models.RescheduleRequest) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID, email string) error
	FindByEmail(ctx context.Context, email string) ([]models.Booking, error)
	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)
}
