package models

import "time"

// Conversation intents. Once a session is classified as book, reschedule or
// cancel, the intent stays pinned for every later turn.
const (
	IntentNone         = ""
	IntentBook         = "book"
	IntentReschedule   = "reschedule"
	IntentCancel       = "cancel"
	IntentAvailability = "availability"
	IntentGeneral      = "general"
)

// Conversation dialog states.
const (
	DialogIdle       = "IDLE"
	DialogCollecting = "COLLECTING"
	DialogConfirming = "CONFIRMING"
	DialogComplete   = "COMPLETE"
	DialogAborted    = "ABORTED"
)

// Fields collected across turns, in prompting order.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldCompany  = "company"
	FieldInquiry  = "inquiry"
	FieldDate     = "date"
	FieldTime     = "time"
	FieldDuration = "duration"
	FieldBooking  = "booking" // disambiguation between multiple bookings
)

// ConversationSession is the per-session dialog state. It is stored as a JSON
// blob in redis with a TTL and owned exclusively by the conversation service.
type ConversationSession struct {
	SessionID string `json:"sessionId"`
	Intent    string `json:"intent"`
	State     string `json:"state"`
	NextField string `json:"nextField"`

	// Collected so far.
	Name            string    `json:"name,omitempty"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Company         string    `json:"company,omitempty"`
	Inquiry         string    `json:"inquiry,omitempty"`
	Date            string    `json:"date,omitempty"` // YYYY-MM-DD
	TimeOfDay       string    `json:"timeOfDay,omitempty"`
	DurationMinutes int       `json:"durationMinutes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`

	// Reschedule/cancel: candidate bookings found for the email, and the one
	// the user picked.
	CandidateBookingIDs []string `json:"candidateBookingIds,omitempty"`
	TargetBookingID     string   `json:"targetBookingId,omitempty"`
}
