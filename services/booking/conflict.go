package booking

import (
	"context"
	"time"

	bookingRepo "slotline/database/repository/booking"
	"slotline/models"
	"slotline/services/integration"
	"slotline/utils"

	"go.uber.org/zap"
)

// ConflictResolver answers "is this interval free?". The booking-store check
// is authoritative; the calendar check runs through the calendar breaker and
// is skipped when it fails, in which case the caller proceeds on store truth
// alone and the written record is flagged for manual calendar sync.
type ConflictResolver struct {
	Repo     bookingRepo.BookingRepository
	Calendar *integration.GuardedCalendar
}

// Availability is the advisory pre-check result. CalendarChecked reports
// whether the calendar could be consulted.
type Availability struct {
	Free            bool
	CalendarChecked bool
}

// IsAvailable checks [start, start+duration) against the store and, when
// reachable, the calendar. excludeID removes the booking being rescheduled
// from the store check.
func (r *ConflictResolver) IsAvailable(ctx context.Context, start time.Time, durationMinutes int, excludeID string) (Availability, error) {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	overlapping, err := r.Repo.FindActiveOverlapping(ctx, start, end, excludeID)
	if err != nil {
		return Availability{}, err
	}
	if len(overlapping) > 0 {
		return Availability{Free: false, CalendarChecked: false}, nil
	}

	if r.Calendar == nil {
		return Availability{Free: true, CalendarChecked: false}, nil
	}

	busy, err := r.Calendar.GetBusyIntervals(ctx, start, end)
	if err != nil {
		utils.GetLogger().Warn("calendar conflict check skipped",
			zap.Time("start", start), zap.Error(err))
		return Availability{Free: true, CalendarChecked: false}, nil
	}

	candidate := models.Interval{Start: start, End: end}
	for _, iv := range busy {
		if candidate.Overlaps(iv) {
			return Availability{Free: false, CalendarChecked: true}, nil
		}
	}
	return Availability{Free: true, CalendarChecked: true}, nil
}
