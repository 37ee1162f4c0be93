package models

import "time"

// TimeSlot is a candidate appointment window produced by the availability
// engine. Slots are computed on demand and never persisted.
type TimeSlot struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"durationMinutes"`
}

// Interval is a half-open busy window [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// BusinessHours describes the bookable weekdays and hour range, all evaluated
// in the service's reference timezone.
type BusinessHours struct {
	Days      []time.Weekday `json:"days"`
	StartHour int            `json:"startHour"`
	EndHour   int            `json:"endHour"`
}

// Includes reports whether the given weekday is a business day.
func (bh BusinessHours) Includes(day time.Weekday) bool {
	for _, d := range bh.Days {
		if d == day {
			return true
		}
	}
	return false
}
