package booking

import (
	"context"
	"fmt"
	"sync"

	bookingRepo "slotline/database/repository/booking"
	"slotline/models"
	"slotline/services/integration"
	"slotline/services/notification"
	"slotline/utils"

	"go.uber.org/zap"
)

// SyncService performs the best-effort external sync after a durable write:
// calendar event create/update/delete, CRM contact upsert/status update and
// the notification email. It is invoked from the outbox worker and from the
// reconciliation sweep, never from the booking request path. A failed sync
// only flips the corresponding manual-sync flag.
type SyncService struct {
	Repo     bookingRepo.BookingRepository
	Calendar *integration.GuardedCalendar
	CRM      *integration.GuardedCRM
	Notifier notification.NotificationService
}

// Run executes calendar and CRM sync for one booking. The two dependencies
// are independent, so they run concurrently; the notification is sent last.
// Run always returns nil for integration failures; those are recorded on the
// booking, not propagated.
func (s *SyncService) Run(ctx context.Context, bookingID, operation string) error {
	booking, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("sync target lookup failed: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.syncCalendar(ctx, booking, operation)
	}()
	go func() {
		defer wg.Done()
		s.syncCRM(ctx, booking)
	}()
	wg.Wait()

	s.notify(ctx, booking, operation)
	return nil
}

func (s *SyncService) syncCalendar(ctx context.Context, booking *models.Booking, operation string) {
	logger := utils.GetLogger()
	if s.Calendar == nil {
		return
	}

	var err error
	eventID := booking.CalendarEventID
	switch operation {
	case "create":
		eventID, err = s.Calendar.CreateEvent(ctx, booking)
	case "update":
		if eventID == "" {
			// Never made it to the calendar; create instead of update so the
			// external event id stays stable across reschedules.
			eventID, err = s.Calendar.CreateEvent(ctx, booking)
		} else {
			err = s.Calendar.UpdateEvent(ctx, eventID, booking)
		}
	case "cancel":
		if eventID != "" {
			err = s.Calendar.DeleteEvent(ctx, eventID)
		}
	default:
		logger.Error("unknown calendar sync operation", zap.String("operation", operation))
		return
	}

	synced := err == nil
	manual := !synced
	update := bookingRepo.SyncStateUpdate{
		CalendarSynced:        &synced,
		RequiresManualCalSync: &manual,
	}
	if synced && eventID != "" {
		update.CalendarEventID = &eventID
	}
	if err != nil {
		logger.Warn("calendar sync failed, flagged for manual reconciliation",
			zap.String("bookingID", booking.ID),
			zap.String("operation", operation),
			zap.Error(err))
	}
	if uerr := s.Repo.UpdateSyncState(ctx, booking.ID, update); uerr != nil {
		logger.Error("failed to persist calendar sync state",
			zap.String("bookingID", booking.ID), zap.Error(uerr))
	}
}

func (s *SyncService) syncCRM(ctx context.Context, booking *models.Booking) {
	logger := utils.GetLogger()
	if s.CRM == nil {
		return
	}

	contactID := booking.CRMContactID
	var err error
	if contactID == "" {
		contactID, err = s.CRM.UpsertContact(ctx, booking)
	}
	if err == nil && contactID != "" {
		err = s.CRM.UpdateStatus(ctx, contactID, booking.Status)
	}

	synced := err == nil
	manual := !synced
	update := bookingRepo.SyncStateUpdate{
		CRMSynced:             &synced,
		RequiresManualCRMSync: &manual,
	}
	if synced && contactID != "" {
		update.CRMContactID = &contactID
	}
	if err != nil {
		logger.Warn("crm sync failed, flagged for manual reconciliation",
			zap.String("bookingID", booking.ID),
			zap.Error(err))
	}
	if uerr := s.Repo.UpdateSyncState(ctx, booking.ID, update); uerr != nil {
		logger.Error("failed to persist crm sync state",
			zap.String("bookingID", booking.ID), zap.Error(uerr))
	}
}

func (s *SyncService) notify(ctx context.Context, booking *models.Booking, operation string) {
	if s.Notifier == nil {
		return
	}
	kind := notification.KindConfirmation
	switch operation {
	case "update":
		kind = notification.KindUpdate
	case "cancel":
		kind = notification.KindCancellation
	}
	if err := s.Notifier.SendBookingNotification(ctx, booking, kind); err != nil {
		utils.GetLogger().Warn("booking notification failed",
			zap.String("bookingID", booking.ID),
			zap.String("kind", kind),
			zap.Error(err))
	}
}
