package bookingRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"slotline/models"
)

// MemoryBookingRepo is an in-memory BookingRepository used in tests and local
// development. The mutex makes its conflict-checked writes atomic, matching
// the transactional guarantee of the mongo implementation.
type MemoryBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func NewMemoryBookingRepo() *MemoryBookingRepo {
	return &MemoryBookingRepo{
		bookings: make(map[string]*models.Booking),
	}
}

func overlaps(b *models.Booking, start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime().After(start)
}

func (r *MemoryBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.bookings {
		if existing.Active() && overlaps(existing, booking.StartTime, booking.EndTime()) {
			return ErrConflict
		}
	}
	cp := *booking
	r.bookings[booking.ID] = &cp
	return nil
}

func (r *MemoryBookingRepo) Reschedule(ctx context.Context, bookingID string, newStart time.Time, durationMinutes int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.bookings[bookingID]
	if !ok {
		return ErrNotFound
	}
	newEnd := newStart.Add(time.Duration(durationMinutes) * time.Minute)
	for id, existing := range r.bookings {
		if id == bookingID || !existing.Active() {
			continue
		}
		if overlaps(existing, newStart, newEnd) {
			return ErrConflict
		}
	}
	target.StartTime = newStart
	target.DurationMinutes = durationMinutes
	target.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryBookingRepo) UpdateStatus(ctx context.Context, bookingID string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[bookingID]
	if !ok {
		return ErrNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryBookingRepo) UpdateSyncState(ctx context.Context, bookingID string, su SyncStateUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[bookingID]
	if !ok {
		return ErrNotFound
	}
	if su.CalendarEventID != nil {
		b.CalendarEventID = *su.CalendarEventID
	}
	if su.CRMContactID != nil {
		b.CRMContactID = *su.CRMContactID
	}
	if su.CalendarSynced != nil {
		b.CalendarSynced = *su.CalendarSynced
	}
	if su.CRMSynced != nil {
		b.CRMSynced = *su.CRMSynced
	}
	if su.RequiresManualCalSync != nil {
		b.RequiresManualCalSync = *su.RequiresManualCalSync
	}
	if su.RequiresManualCRMSync != nil {
		b.RequiresManualCRMSync = *su.RequiresManualCRMSync
	}
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryBookingRepo) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[bookingID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *MemoryBookingRepo) FindActiveOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []models.Booking
	for id, b := range r.bookings {
		if id == excludeID || !b.Active() {
			continue
		}
		if overlaps(b, start, end) {
			result = append(result, *b)
		}
	}
	sortByStart(result)
	return result, nil
}

func (r *MemoryBookingRepo) FindActiveByEmailInWindow(ctx context.Context, email string, windowStart, windowEnd time.Time, excludeID string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []models.Booking
	for id, b := range r.bookings {
		if id == excludeID || !b.Active() || b.RequesterEmail != email {
			continue
		}
		if !b.StartTime.Before(windowStart) && b.StartTime.Before(windowEnd) {
			result = append(result, *b)
		}
	}
	sortByStart(result)
	return result, nil
}

func (r *MemoryBookingRepo) FindActiveByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var result []models.Booking
	for _, b := range r.bookings {
		if b.Active() && b.RequesterEmail == email && b.StartTime.After(now) {
			result = append(result, *b)
		}
	}
	sortByStart(result)
	return result, nil
}

func (r *MemoryBookingRepo) FindNeedingManualSync(ctx context.Context) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []models.Booking
	for _, b := range r.bookings {
		if b.RequiresManualCalSync || b.RequiresManualCRMSync {
			result = append(result, *b)
		}
	}
	sortByStart(result)
	return result, nil
}

func sortByStart(bookings []models.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].StartTime.Before(bookings[j].StartTime)
	})
}
