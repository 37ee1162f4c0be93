package availability

import (
	"context"
	"time"

	bookingRepo "slotline/database/repository/booking"
	"slotline/models"
	"slotline/services/integration"
	"slotline/utils"

	"go.uber.org/zap"
)

// BusyIntervalSource yields the occupied windows inside a range.
type BusyIntervalSource interface {
	BusyIntervals(ctx context.Context, start, end time.Time) ([]models.Interval, error)
}

// CombinedBusySource merges busy intervals from the booking store with the
// external calendar. The store is authoritative; the calendar is advisory and
// is skipped whenever its guarded call fails, so calendar degradation never
// hides store truth or blocks slot listing.
type CombinedBusySource struct {
	Repo     bookingRepo.BookingRepository
	Calendar *integration.GuardedCalendar
}

func (s *CombinedBusySource) BusyIntervals(ctx context.Context, start, end time.Time) ([]models.Interval, error) {
	bookings, err := s.Repo.FindActiveOverlapping(ctx, start, end, "")
	if err != nil {
		return nil, err
	}

	intervals := make([]models.Interval, 0, len(bookings))
	for _, b := range bookings {
		intervals = append(intervals, models.Interval{Start: b.StartTime, End: b.EndTime()})
	}

	if s.Calendar != nil {
		calBusy, err := s.Calendar.GetBusyIntervals(ctx, start, end)
		if err != nil {
			utils.GetLogger().Warn("calendar busy lookup skipped",
				zap.Time("rangeStart", start), zap.Error(err))
		} else {
			intervals = append(intervals, calBusy...)
		}
	}

	return intervals, nil
}
