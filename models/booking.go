package models

import "time"

// Booking statuses. CANCELLED bookings stay in the collection; they are
// excluded from every availability and conflict computation.
const (
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
	BookingStatusCompleted = "COMPLETED"
	BookingStatusNoShow    = "NO_SHOW"
)

// Booking represents a confirmed appointment record.
type Booking struct {
	ID              string    `bson:"id" json:"id"`
	RequesterName   string    `bson:"requester_name" json:"requesterName"`
	RequesterEmail  string    `bson:"requester_email" json:"requesterEmail"`
	RequesterPhone  string    `bson:"requester_phone,omitempty" json:"requesterPhone,omitempty"`
	Company         string    `bson:"company,omitempty" json:"company,omitempty"`
	Inquiry         string    `bson:"inquiry,omitempty" json:"inquiry,omitempty"`
	StartTime       time.Time `bson:"start_time" json:"startTime"`
	DurationMinutes int       `bson:"duration_minutes" json:"durationMinutes"`
	Status          string    `bson:"status" json:"status"`

	CalendarEventID string `bson:"calendar_event_id,omitempty" json:"calendarEventId,omitempty"`
	CRMContactID    string `bson:"crm_contact_id,omitempty" json:"crmContactId,omitempty"`

	CalendarSynced        bool `bson:"calendar_synced" json:"calendarSynced"`
	CRMSynced             bool `bson:"crm_synced" json:"crmSynced"`
	RequiresManualCalSync bool `bson:"requires_manual_cal_sync" json:"requiresManualCalendarSync"`
	RequiresManualCRMSync bool `bson:"requires_manual_crm_sync" json:"requiresManualCrmSync"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// EndTime is the exclusive end of the booked interval.
func (b *Booking) EndTime() time.Time {
	return b.StartTime.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Active reports whether the booking still occupies its interval.
func (b *Booking) Active() bool {
	return b.Status != BookingStatusCancelled
}
