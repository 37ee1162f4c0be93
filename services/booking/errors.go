package booking

import (
	"errors"
	"fmt"
	"time"

	"slotline/models"
)

// ErrStore marks a durable-write failure. The store is the correctness
// boundary, so this is fatal to the operation.
var ErrStore = errors.New("booking store failure")

// ErrNotFound is returned when the referenced booking does not exist or does
// not belong to the given requester.
var ErrNotFound = errors.New("booking not found")

// ValidationError reports malformed input. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError reports that the requested interval was taken, either at the
// advisory check or at write time. Alternatives carry free slots near the
// requested start.
type ConflictError struct {
	Requested    models.Interval
	Alternatives []models.TimeSlot
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s is not available", e.Requested.Start.Format(time.RFC3339))
}

// FrequencyLimitError reports that the requester exceeded the rolling-window
// booking cap for the requested duration.
type FrequencyLimitError struct {
	Limit  int
	Window time.Duration
}

func (e *FrequencyLimitError) Error() string {
	return fmt.Sprintf("frequency limit exceeded: max %d bookings per %d minutes",
		e.Limit, int(e.Window.Minutes()))
}
