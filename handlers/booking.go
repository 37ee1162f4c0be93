package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	bookingRepo "slotline/database/repository/booking"
	"slotline/models"
	"slotline/services/booking"
	"slotline/utils"
)

// AdminHandler exposes the operational surface: inspecting bookings, the
// manual-sync backlog and forcing a resync for a specific booking.
type AdminHandler struct {
	Repo bookingRepo.BookingRepository
	Sync *booking.SyncService
}

func NewAdminHandler(repo bookingRepo.BookingRepository, syncSvc *booking.SyncService) *AdminHandler {
	return &AdminHandler{Repo: repo, Sync: syncSvc}
}

// ListBookings returns the active upcoming bookings for an email.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		utils.JSONError(c, http.StatusBadRequest, "email query parameter is required", "")
		return
	}

	found, err := h.Repo.FindActiveByEmail(c.Request.Context(), email)
	if err != nil {
		utils.GetLogger().Error("admin booking lookup failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "booking lookup failed", "")
		return
	}
	if found == nil {
		found = []models.Booking{}
	}
	c.JSON(http.StatusOK, found)
}

// GetBooking returns one booking by id.
func (h *AdminHandler) GetBooking(c *gin.Context) {
	b, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "booking not found", "")
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListManualSync returns bookings flagged for manual calendar or CRM sync.
func (h *AdminHandler) ListManualSync(c *gin.Context) {
	flagged, err := h.Repo.FindNeedingManualSync(c.Request.Context())
	if err != nil {
		utils.GetLogger().Error("manual sync lookup failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "manual sync lookup failed", "")
		return
	}
	if flagged == nil {
		flagged = []models.Booking{}
	}
	c.JSON(http.StatusOK, flagged)
}

// ForceResync replays the outbox sync for one booking.
func (h *AdminHandler) ForceResync(c *gin.Context) {
	bookingID := c.Param("id")

	b, err := h.Repo.GetByID(c.Request.Context(), bookingID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "booking not found", "")
		return
	}

	operation := "update"
	if b.Status == models.BookingStatusCancelled {
		operation = "cancel"
	}
	if err := h.Sync.Run(c.Request.Context(), bookingID, operation); err != nil {
		utils.GetLogger().Error("forced resync failed",
			zap.String("bookingId", bookingID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "resync failed", "")
		return
	}

	refreshed, err := h.Repo.GetByID(c.Request.Context(), bookingID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "booking reload failed", "")
		return
	}
	c.JSON(http.StatusOK, refreshed)
}

// CancelBooking cancels any booking regardless of requester, for support use.
func (h *AdminHandler) CancelBooking(c *gin.Context) {
	bookingID := c.Param("id")

	b, err := h.Repo.GetByID(c.Request.Context(), bookingID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "booking not found", "")
		return
	}
	if b.Status == models.BookingStatusCancelled {
		c.JSON(http.StatusOK, gin.H{"status": "cancelled", "bookingId": bookingID})
		return
	}

	if err := h.Repo.UpdateStatus(c.Request.Context(), bookingID, models.BookingStatusCancelled); err != nil {
		utils.GetLogger().Error("admin cancel failed",
			zap.String("bookingId", bookingID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "cancel failed", "")
		return
	}
	if err := h.Sync.Run(c.Request.Context(), bookingID, "cancel"); err != nil {
		utils.GetLogger().Warn("post-cancel sync failed",
			zap.String("bookingId", bookingID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "bookingId": bookingID})
}

// HealthHandler reports the latest dependency health snapshot.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, utils.GetHealthStatus())
}
