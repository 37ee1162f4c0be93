package models

import "time"

// BookingRequest is the input to the booking lifecycle's Create operation.
type BookingRequest struct {
	Name            string    `json:"name" binding:"required"`
	Email           string    `json:"email" binding:"required"`
	Phone           string    `json:"phone,omitempty"`
	Company         string    `json:"company,omitempty"`
	Inquiry         string    `json:"inquiry,omitempty"`
	StartTime       time.Time `json:"startTime" binding:"required"`
	DurationMinutes int       `json:"durationMinutes" binding:"required"`
}

// RescheduleRequest moves an existing booking to a new start/duration.
type RescheduleRequest struct {
	BookingID       string    `json:"bookingId" binding:"required"`
	Email           string    `json:"email" binding:"required"`
	NewStartTime    time.Time `json:"newStartTime" binding:"required"`
	DurationMinutes int       `json:"durationMinutes,omitempty"`
}

// SyncTaskPayload is carried by outbox tasks dispatched after the durable
// write (calendar, CRM and notification sync).
type SyncTaskPayload struct {
	BookingID string `json:"bookingId"`
	Operation string `json:"operation"` // "create", "update" or "cancel"
}
