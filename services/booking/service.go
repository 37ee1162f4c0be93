package booking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	bookingRepo "slotline/database/repository/booking"
	"slotline/models"
	"slotline/services/availability"
	"slotline/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const alternativeSlotCount = 3

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// DefaultBookingService is the production booking lifecycle manager.
type DefaultBookingService struct {
	Repo       bookingRepo.BookingRepository
	Limiter    *FrequencyLimiter
	Resolver   *ConflictResolver
	Engine     *availability.Engine
	Dispatcher Dispatcher

	now func() time.Time
}

func NewDefaultBookingService(
	repo bookingRepo.BookingRepository,
	limiter *FrequencyLimiter,
	resolver *ConflictResolver,
	engine *availability.Engine,
	dispatcher Dispatcher,
) *DefaultBookingService {
	return &DefaultBookingService{
		Repo:       repo,
		Limiter:    limiter,
		Resolver:   resolver,
		Engine:     engine,
		Dispatcher: dispatcher,
		now:        time.Now,
	}
}

func (s *DefaultBookingService) validateRequest(name, email string, durationMinutes int) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Message: fmt.Sprintf("%q is not a valid email address", email)}
	}
	if !availability.ValidDuration(durationMinutes) {
		return &ValidationError{Field: "duration", Message: fmt.Sprintf("%d minutes is not a supported duration", durationMinutes)}
	}
	return nil
}

// conflictError builds a ConflictError carrying alternative free slots near
// the requested start. Alternative lookup is best-effort.
func (s *DefaultBookingService) conflictError(ctx context.Context, start time.Time, durationMinutes int) *ConflictError {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	alternatives, err := s.Engine.NextAvailable(ctx, start, durationMinutes, alternativeSlotCount)
	if err != nil {
		utils.GetLogger().Warn("failed to compute alternative slots", zap.Error(err))
	}
	return &ConflictError{
		Requested:    models.Interval{Start: start, End: end},
		Alternatives: alternatives,
	}
}

// Create books a new appointment. Frequency limiter, then conflict resolver,
// then the durable write; the write re-validates interval uniqueness so a
// racing create surfaces as a conflict rather than an overlap.
func (s *DefaultBookingService) Create(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	logger := utils.GetLogger()

	if err := s.validateRequest(req.Name, req.Email, req.DurationMinutes); err != nil {
		return nil, err
	}

	// Emails are stored lowercased; the limiter must count against the same
	// normalized value or the rolling cap would not see prior bookings.
	email := strings.ToLower(req.Email)

	if err := s.Limiter.Check(ctx, email, req.StartTime, req.DurationMinutes, ""); err != nil {
		return nil, err
	}

	avail, err := s.Resolver.IsAvailable(ctx, req.StartTime, req.DurationMinutes, "")
	if err != nil {
		return nil, fmt.Errorf("%w: availability pre-check: %v", ErrStore, err)
	}
	if !avail.Free {
		return nil, s.conflictError(ctx, req.StartTime, req.DurationMinutes)
	}

	now := s.now().UTC()
	record := &models.Booking{
		ID:              uuid.New().String(),
		RequesterName:   req.Name,
		RequesterEmail:  email,
		RequesterPhone:  req.Phone,
		Company:         req.Company,
		Inquiry:         req.Inquiry,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Status:          models.BookingStatusConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Repo.Create(ctx, record); err != nil {
		if errors.Is(err, bookingRepo.ErrConflict) {
			return nil, s.conflictError(ctx, req.StartTime, req.DurationMinutes)
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	logger.Info("booking created",
		zap.String("bookingID", record.ID),
		zap.Time("start", record.StartTime),
		zap.Int("duration", record.DurationMinutes))

	s.dispatch(record.ID, "create")
	return record, nil
}

// Reschedule moves an existing booking, excluding the moved record from both
// the frequency and conflict checks.
func (s *DefaultBookingService) Reschedule(ctx context.Context, req models.RescheduleRequest) (*models.Booking, error) {
	logger := utils.GetLogger()

	existing, err := s.getOwned(ctx, req.BookingID, req.Email)
	if err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = existing.DurationMinutes
	}
	if !availability.ValidDuration(duration) {
		return nil, &ValidationError{Field: "duration", Message: fmt.Sprintf("%d minutes is not a supported duration", duration)}
	}

	if err := s.Limiter.Check(ctx, existing.RequesterEmail, req.NewStartTime, duration, existing.ID); err != nil {
		return nil, err
	}

	avail, err := s.Resolver.IsAvailable(ctx, req.NewStartTime, duration, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: availability pre-check: %v", ErrStore, err)
	}
	if !avail.Free {
		return nil, s.conflictError(ctx, req.NewStartTime, duration)
	}

	if err := s.Repo.Reschedule(ctx, existing.ID, req.NewStartTime, duration); err != nil {
		if errors.Is(err, bookingRepo.ErrConflict) {
			return nil, s.conflictError(ctx, req.NewStartTime, duration)
		}
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	logger.Info("booking rescheduled",
		zap.String("bookingID", existing.ID),
		zap.Time("newStart", req.NewStartTime))

	s.dispatch(existing.ID, "update")
	return s.GetByID(ctx, existing.ID)
}

// Cancel sets status=CANCELLED. Cancelling an already-cancelled booking is
// idempotent. The vacated interval becomes free immediately because every
// availability computation excludes cancelled records.
func (s *DefaultBookingService) Cancel(ctx context.Context, bookingID, email string) error {
	existing, err := s.getOwned(ctx, bookingID, email)
	if err != nil {
		return err
	}
	if existing.Status == models.BookingStatusCancelled {
		return nil
	}

	if err := s.Repo.UpdateStatus(ctx, bookingID, models.BookingStatusCancelled); err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	utils.GetLogger().Info("booking cancelled", zap.String("bookingID", bookingID))

	s.dispatch(bookingID, "cancel")
	return nil
}

func (s *DefaultBookingService) FindByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	bookings, err := s.Repo.FindActiveByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return bookings, nil
}

func (s *DefaultBookingService) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return b, nil
}

// getOwned fetches a booking and verifies the requester owns it. A mismatched
// email behaves exactly like a missing booking.
func (s *DefaultBookingService) getOwned(ctx context.Context, bookingID, email string) (*models.Booking, error) {
	b, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(b.RequesterEmail, email) {
		return nil, ErrNotFound
	}
	return b, nil
}

// dispatch enqueues post-write sync work. A dispatch failure never reverses
// the durable write; it is logged and left to the reconciliation sweep.
func (s *DefaultBookingService) dispatch(bookingID, operation string) {
	if s.Dispatcher == nil {
		return
	}
	if err := s.Dispatcher.DispatchSync(bookingID, operation); err != nil {
		utils.GetLogger().Error("failed to enqueue sync task",
			zap.String("bookingID", bookingID),
			zap.String("operation", operation),
			zap.Error(err))
		// Flag the record so the reconciliation sweep picks it up.
		flag := true
		_ = s.Repo.UpdateSyncState(context.Background(), bookingID, bookingRepo.SyncStateUpdate{
			RequiresManualCalSync: &flag,
			RequiresManualCRMSync: &flag,
		})
	}
}
