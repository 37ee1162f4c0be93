package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	bookingRepo "slotline/database/repository/booking"
	"slotline/models"
	"slotline/services/booking"
	"slotline/utils"
)

// StartReconciler schedules the manual-sync sweep. Bookings flagged for
// manual calendar or CRM sync get their outbox operation replayed; flags are
// cleared only by a successful sync.
func StartReconciler(repo bookingRepo.BookingRepository, syncSvc *booking.SyncService) *cron.Cron {
	logger := utils.GetLogger()

	c := cron.New()
	_, err := c.AddFunc("@every 15m", func() {
		runSweep(repo, syncSvc)
	})
	if err != nil {
		logger.Fatal("failed to schedule reconciliation sweep", zap.Error(err))
	}
	c.Start()
	logger.Info("reconciliation sweep scheduled", zap.String("interval", "15m"))
	return c
}

func runSweep(repo bookingRepo.BookingRepository, syncSvc *booking.SyncService) {
	logger := utils.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	flagged, err := repo.FindNeedingManualSync(ctx)
	if err != nil {
		logger.Error("reconciliation sweep query failed", zap.Error(err))
		return
	}
	if len(flagged) == 0 {
		return
	}

	logger.Info("reconciliation sweep running", zap.Int("flagged", len(flagged)))
	for _, b := range flagged {
		operation := "update"
		if b.Status == models.BookingStatusCancelled {
			operation = "cancel"
		}
		if err := syncSvc.Run(ctx, b.ID, operation); err != nil {
			logger.Warn("reconciliation replay failed",
				zap.String("bookingId", b.ID), zap.Error(err))
		}
	}
}
