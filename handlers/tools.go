package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slotline/models"
	"slotline/services/availability"
	"slotline/services/booking"
)

// ToolsHandler is the function-call surface for external voice agents. Each
// endpoint maps one tool onto one lifecycle operation and returns structured
// JSON the agent can read back to the caller.
type ToolsHandler struct {
	Bookings booking.BookingService
	Engine   *availability.Engine
}

func NewToolsHandler(bookings booking.BookingService, engine *availability.Engine) *ToolsHandler {
	return &ToolsHandler{Bookings: bookings, Engine: engine}
}

type checkAvailabilityArgs struct {
	Date            string `json:"date" binding:"required"` // YYYY-MM-DD
	DurationMinutes int    `json:"duration" binding:"required"`
}

func (h *ToolsHandler) CheckAvailability(c *gin.Context) {
	var args checkAvailabilityArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	if !availability.ValidDuration(args.DurationMinutes) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%d minutes is not a supported duration", args.DurationMinutes)})
		return
	}

	dayStart, err := time.ParseInLocation("2006-01-02", args.Date, h.Engine.Location)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	slots, err := h.Engine.Slots(c.Request.Context(), dayStart, dayStart.AddDate(0, 0, 1), args.DurationMinutes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "availability lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": args.Date, "slots": slots})
}

type bookAppointmentArgs struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Phone           string `json:"phone"`
	Company         string `json:"company"`
	Inquiry         string `json:"inquiry"`
	Date            string `json:"date" binding:"required"` // YYYY-MM-DD
	Time            string `json:"time" binding:"required"` // HH:MM
	DurationMinutes int    `json:"duration" binding:"required"`
}

func (h *ToolsHandler) BookAppointment(c *gin.Context) {
	var args bookAppointmentArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", args.Date+" "+args.Time, h.Engine.Location)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD and time HH:MM"})
		return
	}

	created, err := h.Bookings.Create(c.Request.Context(), models.BookingRequest{
		Name:            args.Name,
		Email:           args.Email,
		Phone:           args.Phone,
		Company:         args.Company,
		Inquiry:         args.Inquiry,
		StartTime:       start,
		DurationMinutes: args.DurationMinutes,
	})
	if err != nil {
		renderLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

type rescheduleAppointmentArgs struct {
	Email           string `json:"email" binding:"required"`
	BookingID       string `json:"bookingId" binding:"required"`
	NewDate         string `json:"newDate" binding:"required"`
	NewTime         string `json:"newTime" binding:"required"`
	DurationMinutes int    `json:"duration"`
}

func (h *ToolsHandler) RescheduleAppointment(c *gin.Context) {
	var args rescheduleAppointmentArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", args.NewDate+" "+args.NewTime, h.Engine.Location)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "newDate must be YYYY-MM-DD and newTime HH:MM"})
		return
	}

	moved, err := h.Bookings.Reschedule(c.Request.Context(), models.RescheduleRequest{
		BookingID:       args.BookingID,
		Email:           args.Email,
		NewStartTime:    start,
		DurationMinutes: args.DurationMinutes,
	})
	if err != nil {
		renderLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, moved)
}

type cancelAppointmentArgs struct {
	Email     string `json:"email" binding:"required"`
	BookingID string `json:"bookingId" binding:"required"`
}

func (h *ToolsHandler) CancelAppointment(c *gin.Context) {
	var args cancelAppointmentArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	if err := h.Bookings.Cancel(c.Request.Context(), args.BookingID, args.Email); err != nil {
		renderLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "bookingId": args.BookingID})
}

// renderLifecycleError maps lifecycle errors onto status codes. Conflicts
// carry the alternative slots so the agent can offer them.
func renderLifecycleError(c *gin.Context, err error) {
	var conflict *booking.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{
			"error":        "requested slot is not available",
			"alternatives": conflict.Alternatives,
		})
		return
	}
	var limit *booking.FrequencyLimitError
	if errors.As(err, &limit) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":         "booking frequency limit reached",
			"limit":         limit.Limit,
			"windowMinutes": int(limit.Window.Minutes()),
		})
		return
	}
	var invalid *booking.ValidationError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error()})
		return
	}
	if errors.Is(err, booking.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
}
