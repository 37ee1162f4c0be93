package availability

import (
	"context"
	"fmt"
	"time"

	"slotline/config"
	"slotline/models"
)

// Allowed appointment durations, in minutes.
var AllowedDurations = []int{15, 30, 45, 60}

// ValidDuration reports whether the duration belongs to the fixed set.
func ValidDuration(minutes int) bool {
	for _, d := range AllowedDurations {
		if d == minutes {
			return true
		}
	}
	return false
}

// Engine generates free candidate slots under business-hours and
// advance-window constraints. All interval arithmetic runs in Location;
// callers convert to other timezones only at the I/O boundary.
type Engine struct {
	Hours      models.BusinessHours
	MinAdvance time.Duration
	MaxAdvance time.Duration
	Buffer     time.Duration
	Location   *time.Location
	Busy       BusyIntervalSource

	now func() time.Time
}

// NewEngine builds an Engine from app configuration.
func NewEngine(cfg config.Config, busy BusyIntervalSource) (*Engine, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	days, err := parseBusinessDays(cfg.BusinessDays)
	if err != nil {
		return nil, err
	}
	return &Engine{
		Hours: models.BusinessHours{
			Days:      days,
			StartHour: cfg.BusinessStartHour,
			EndHour:   cfg.BusinessEndHour,
		},
		MinAdvance: time.Duration(cfg.MinAdvanceHours) * time.Hour,
		MaxAdvance: time.Duration(cfg.MaxAdvanceHours) * time.Hour,
		Buffer:     time.Duration(cfg.BufferMinutes) * time.Minute,
		Location:   loc,
		Busy:       busy,
		now:        time.Now,
	}, nil
}

var weekdayNames = map[string]time.Weekday{
	"Sun": time.Sunday, "Mon": time.Monday, "Tue": time.Tuesday,
	"Wed": time.Wednesday, "Thu": time.Thursday, "Fri": time.Friday,
	"Sat": time.Saturday,
}

func parseBusinessDays(list string) ([]time.Weekday, error) {
	var days []time.Weekday
	start := 0
	for i := 0; i <= len(list); i++ {
		if i == len(list) || list[i] == ',' {
			name := list[start:i]
			start = i + 1
			if name == "" {
				continue
			}
			day, ok := weekdayNames[name]
			if !ok {
				return nil, fmt.Errorf("unknown business day %q", name)
			}
			days = append(days, day)
		}
	}
	return days, nil
}

// Slots returns every free candidate slot of the given duration inside
// [rangeStart, rangeEnd). Candidates step through each business day from the
// configured start hour in duration-sized increments; a trailing candidate
// that would run past the end hour is dropped, not shortened.
func (e *Engine) Slots(ctx context.Context, rangeStart, rangeEnd time.Time, durationMinutes int) ([]models.TimeSlot, error) {
	if !ValidDuration(durationMinutes) {
		return nil, fmt.Errorf("unsupported duration %d minutes", durationMinutes)
	}
	duration := time.Duration(durationMinutes) * time.Minute

	rangeStart = rangeStart.In(e.Location)
	rangeEnd = rangeEnd.In(e.Location)

	now := e.now().In(e.Location)
	earliest := now.Add(e.MinAdvance)
	latest := now.Add(e.MaxAdvance)

	busy, err := e.Busy.BusyIntervals(ctx, rangeStart, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load busy intervals: %w", err)
	}
	if e.Buffer > 0 {
		for i := range busy {
			busy[i].Start = busy[i].Start.Add(-e.Buffer)
			busy[i].End = busy[i].End.Add(e.Buffer)
		}
	}

	var slots []models.TimeSlot
	day := time.Date(rangeStart.Year(), rangeStart.Month(), rangeStart.Day(), 0, 0, 0, 0, e.Location)
	for ; day.Before(rangeEnd); day = day.AddDate(0, 0, 1) {
		if !e.Hours.Includes(day.Weekday()) {
			continue
		}
		// Wall-clock bounds. Adding hours to midnight drifts on DST
		// transition days, so the bounds are built as calendar times.
		dayOpen := time.Date(day.Year(), day.Month(), day.Day(), e.Hours.StartHour, 0, 0, 0, e.Location)
		dayClose := time.Date(day.Year(), day.Month(), day.Day(), e.Hours.EndHour, 0, 0, 0, e.Location)

		for start := dayOpen; ; start = start.Add(duration) {
			end := start.Add(duration)
			if end.After(dayClose) {
				break
			}
			if start.Before(rangeStart) || end.After(rangeEnd) {
				continue
			}
			if start.Before(earliest) || start.After(latest) {
				continue
			}
			candidate := models.Interval{Start: start, End: end}
			if overlapsAny(candidate, busy) {
				continue
			}
			slots = append(slots, models.TimeSlot{
				Start:           start,
				End:             end,
				DurationMinutes: durationMinutes,
			})
		}
	}
	return slots, nil
}

// NextAvailable returns up to limit free slots at or after from, scanning
// forward one week; used to offer alternatives on conflict.
func (e *Engine) NextAvailable(ctx context.Context, from time.Time, durationMinutes, limit int) ([]models.TimeSlot, error) {
	slots, err := e.Slots(ctx, from, from.AddDate(0, 0, 7), durationMinutes)
	if err != nil {
		return nil, err
	}
	if len(slots) > limit {
		slots = slots[:limit]
	}
	return slots, nil
}

func overlapsAny(candidate models.Interval, busy []models.Interval) bool {
	for _, iv := range busy {
		if candidate.Overlaps(iv) {
			return true
		}
	}
	return false
}
