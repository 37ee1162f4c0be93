package bookingRepo

import (
	"context"
	"errors"
	"time"

	"slotline/models"
)

// ErrConflict is returned by conflict-checked writes when the requested
// interval is already taken by another active booking.
var ErrConflict = errors.New("booking interval conflict")

// ErrNotFound is returned when no booking matches the given id.
var ErrNotFound = errors.New("booking not found")

// BookingRepository is the store contract the booking engine requires.
// Create and Reschedule re-validate interval uniqueness inside the write so a
// check-then-write race can never produce overlapping active bookings.
type BookingRepository interface {
	// Create inserts the booking, failing with ErrConflict if its interval
	// overlaps any active booking.
	Create(ctx context.Context, booking *models.Booking) error

	// Reschedule moves a booking to a new start/duration in place, failing
	// with ErrConflict if the new interval overlaps any other active booking.
	Reschedule(ctx context.Context, bookingID string, newStart time.Time, durationMinutes int) error

	// UpdateStatus sets the booking status (cancel and terminal transitions).
	UpdateStatus(ctx context.Context, bookingID string, status string) error

	// UpdateSyncState records the outcome of an external sync attempt.
	UpdateSyncState(ctx context.Context, bookingID string, update SyncStateUpdate) error

	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)

	// FindActiveOverlapping returns non-cancelled bookings whose interval
	// intersects [start, end), excluding excludeID when non-empty.
	FindActiveOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]models.Booking, error)

	// FindActiveByEmailInWindow returns non-cancelled bookings for the email
	// whose start time falls in [windowStart, windowEnd), excluding excludeID
	// when non-empty.
	FindActiveByEmailInWindow(ctx context.Context, email string, windowStart, windowEnd time.Time, excludeID string) ([]models.Booking, error)

	// FindActiveByEmail lists a requester's upcoming non-cancelled bookings.
	FindActiveByEmail(ctx context.Context, email string) ([]models.Booking, error)

	// FindNeedingManualSync lists bookings flagged for manual calendar or CRM
	// reconciliation.
	FindNeedingManualSync(ctx context.Context) ([]models.Booking, error)
}

// SyncStateUpdate carries the post-sync flag changes for one booking. Nil
// fields are left untouched.
type SyncStateUpdate struct {
	CalendarEventID       *string
	CRMContactID          *string
	CalendarSynced        *bool
	CRMSynced             *bool
	RequiresManualCalSync *bool
	RequiresManualCRMSync *bool
}
