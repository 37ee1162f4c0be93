package booking

import (
	"context"
	"fmt"
	"time"

	bookingRepo "slotline/database/repository/booking"
)

// FrequencyRule caps bookings per requester inside a rolling window.
type FrequencyRule struct {
	MaxBookings int
	Window      time.Duration
}

// DefaultFrequencyRules scales the window by duration so the cap stays
// proportional to how much time a booking consumes.
var DefaultFrequencyRules = map[int]FrequencyRule{
	15: {MaxBookings: 2, Window: 90 * time.Minute},
	30: {MaxBookings: 2, Window: 180 * time.Minute},
	45: {MaxBookings: 2, Window: 300 * time.Minute},
	60: {MaxBookings: 2, Window: 720 * time.Minute},
}

// FrequencyLimiter counts a requester's recent bookings in the rolling window
// ending at the requested start, sized for the requested duration.
type FrequencyLimiter struct {
	Repo  bookingRepo.BookingRepository
	Rules map[int]FrequencyRule
}

func NewFrequencyLimiter(repo bookingRepo.BookingRepository) *FrequencyLimiter {
	return &FrequencyLimiter{Repo: repo, Rules: DefaultFrequencyRules}
}

// Check returns a FrequencyLimitError when the cap is hit. excludeID removes
// the booking being rescheduled from the count.
func (l *FrequencyLimiter) Check(ctx context.Context, email string, requestedStart time.Time, durationMinutes int, excludeID string) error {
	rule, ok := l.Rules[durationMinutes]
	if !ok {
		return &ValidationError{Field: "duration", Message: fmt.Sprintf("%d minutes is not a supported duration", durationMinutes)}
	}

	windowStart := requestedStart.Add(-rule.Window)
	recent, err := l.Repo.FindActiveByEmailInWindow(ctx, email, windowStart, requestedStart, excludeID)
	if err != nil {
		return fmt.Errorf("%w: frequency window query: %v", ErrStore, err)
	}

	if len(recent) >= rule.MaxBookings {
		return &FrequencyLimitError{Limit: rule.MaxBookings, Window: rule.Window}
	}
	return nil
}
