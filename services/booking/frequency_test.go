package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingRepo "slotline/database/repository/booking"
	"slotline/models"
	"slotline/services/booking"
)

func seedBooking(t *testing.T, repo *bookingRepo.MemoryBookingRepo, id, email string, start time.Time, duration int) {
	t.Helper()
	err := repo.Create(context.Background(), &models.Booking{
		ID:              id,
		RequesterName:   "Test",
		RequesterEmail:  email,
		StartTime:       start,
		DurationMinutes: duration,
		Status:          models.BookingStatusConfirmed,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestFrequencyLimitPerDurationWindow(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	limiter := booking.NewFrequencyLimiter(repo)
	ctx := context.Background()

	base := time.Date(2024, 12, 10, 14, 0, 0, 0, time.UTC)

	// Two prior 30-minute bookings inside the last 3 hours.
	seedBooking(t, repo, "b1", "a@example.com", base.Add(-150*time.Minute), 30)
	seedBooking(t, repo, "b2", "a@example.com", base.Add(-60*time.Minute), 30)

	// A third 30-minute request inside the same rolling window is rejected.
	err := limiter.Check(ctx, "a@example.com", base, 30, "")
	var freqErr *booking.FrequencyLimitError
	if !errors.As(err, &freqErr) {
		t.Fatalf("expected FrequencyLimitError, got %v", err)
	}
	if freqErr.Limit != 2 || freqErr.Window != 180*time.Minute {
		t.Fatalf("error should carry the 30-minute rule, got %+v", freqErr)
	}

	// Another requester is unaffected.
	if err := limiter.Check(ctx, "b@example.com", base, 30, ""); err != nil {
		t.Fatalf("different email should pass: %v", err)
	}
}

func TestFrequencyWindowScalesByRequestedDuration(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	limiter := booking.NewFrequencyLimiter(repo)
	ctx := context.Background()

	// Two bookings 13 hours ago: inside no window of any duration relative to
	// a request for now + 0, since the 60-minute window is 12 hours.
	now := time.Date(2024, 12, 10, 22, 0, 0, 0, time.UTC)
	seedBooking(t, repo, "b1", "a@example.com", now.Add(-13*time.Hour), 30)
	seedBooking(t, repo, "b2", "a@example.com", now.Add(-13*time.Hour).Add(40*time.Minute), 30)

	// The 60-minute request is evaluated against its own 12-hour window and
	// those bookings fall outside it.
	if err := limiter.Check(ctx, "a@example.com", now, 60, ""); err != nil {
		t.Fatalf("60-minute request should be unaffected: %v", err)
	}

	// Move them inside the 12-hour window and the 60-minute request trips.
	seedBooking(t, repo, "b3", "a@example.com", now.Add(-2*time.Hour), 60)
	seedBooking(t, repo, "b4", "a@example.com", now.Add(-5*time.Hour), 60)
	err := limiter.Check(ctx, "a@example.com", now, 60, "")
	var freqErr *booking.FrequencyLimitError
	if !errors.As(err, &freqErr) {
		t.Fatalf("expected FrequencyLimitError, got %v", err)
	}
}

func TestFrequencyIgnoresCancelledAndExcluded(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	limiter := booking.NewFrequencyLimiter(repo)
	ctx := context.Background()

	base := time.Date(2024, 12, 10, 14, 0, 0, 0, time.UTC)
	seedBooking(t, repo, "b1", "a@example.com", base.Add(-100*time.Minute), 30)
	seedBooking(t, repo, "b2", "a@example.com", base.Add(-50*time.Minute), 30)

	// Cancelled bookings do not count.
	if err := repo.UpdateStatus(ctx, "b1", models.BookingStatusCancelled); err != nil {
		t.Fatalf("cancel seed: %v", err)
	}
	if err := limiter.Check(ctx, "a@example.com", base, 30, ""); err != nil {
		t.Fatalf("cancelled booking should not count: %v", err)
	}

	// A reschedule excludes the record being moved.
	seedBooking(t, repo, "b3", "a@example.com", base.Add(-20*time.Minute), 30)
	if err := limiter.Check(ctx, "a@example.com", base, 30, "b3"); err != nil {
		t.Fatalf("moved record should be excluded: %v", err)
	}
	err := limiter.Check(ctx, "a@example.com", base, 30, "")
	var freqErr *booking.FrequencyLimitError
	if !errors.As(err, &freqErr) {
		t.Fatalf("expected FrequencyLimitError without exclusion, got %v", err)
	}
}
