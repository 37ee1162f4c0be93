package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"slotline/config"
	bookingRepo "slotline/database/repository/booking"
	"slotline/models"
	"slotline/services/availability"
	"slotline/services/booking"
	"slotline/services/integration"
	"slotline/services/notification"
	"slotline/services/resilience"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *recordingDispatcher) DispatchSync(bookingID, operation string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, operation+":"+bookingID)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Timezone:          "America/New_York",
		BusinessStartHour: 9,
		BusinessEndHour:   17,
		BusinessDays:      "Mon,Tue,Wed,Thu,Fri",
		MinAdvanceHours:   2,
		MaxAdvanceHours:   24 * 60,
	}
}

type fixture struct {
	repo       *bookingRepo.MemoryBookingRepo
	svc        *booking.DefaultBookingService
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := bookingRepo.NewMemoryBookingRepo()
	engine, err := availability.NewEngine(testConfig(), &availability.CombinedBusySource{Repo: repo})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	dispatcher := &recordingDispatcher{}
	svc := booking.NewDefaultBookingService(
		repo,
		booking.NewFrequencyLimiter(repo),
		&booking.ConflictResolver{Repo: repo},
		engine,
		dispatcher,
	)
	return &fixture{repo: repo, svc: svc, dispatcher: dispatcher}
}

// nextBusinessDay returns 14:00 on a weekday at least a week out, inside the
// engine's advance window.
func nextBusinessDay(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	day := time.Now().In(loc).AddDate(0, 0, 7)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 14, 0, 0, 0, loc)
}

func request(start time.Time, duration int, email string) models.BookingRequest {
	return models.BookingRequest{
		Name:            "John Smith",
		Email:           email,
		StartTime:       start,
		DurationMinutes: duration,
	}
}

func TestCreateRejectsOverlapAndOffersAlternatives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := nextBusinessDay(t)

	if _, err := f.svc.Create(ctx, request(start, 60, "a@example.com")); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	// 14:30 for 30 minutes lands inside the 14:00-15:00 hold.
	_, err := f.svc.Create(ctx, request(start.Add(30*time.Minute), 30, "b@example.com"))
	var conflict *booking.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(conflict.Alternatives) == 0 {
		t.Fatal("expected alternative slots on conflict")
	}
	for _, alt := range conflict.Alternatives {
		if alt.Start.Before(start.Add(60*time.Minute)) && alt.End.After(start) {
			t.Fatalf("alternative overlaps the existing booking: %v", alt.Start)
		}
	}

	// 15:00 for 30 minutes is clear of the hold.
	if _, err := f.svc.Create(ctx, request(start.Add(60*time.Minute), 30, "b@example.com")); err != nil {
		t.Fatalf("adjacent booking failed: %v", err)
	}
}

func TestCreateFrequencyLimitIgnoresEmailCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := nextBusinessDay(t)

	// Two 30-minute bookings inside the 180-minute window before start.
	if _, err := f.svc.Create(ctx, request(start.Add(-120*time.Minute), 30, "a@example.com")); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	if _, err := f.svc.Create(ctx, request(start.Add(-60*time.Minute), 30, "a@example.com")); err != nil {
		t.Fatalf("second booking failed: %v", err)
	}

	// The same requester with different casing is still the same requester.
	_, err := f.svc.Create(ctx, request(start, 30, "A@Example.com"))
	var limit *booking.FrequencyLimitError
	if !errors.As(err, &limit) {
		t.Fatalf("expected FrequencyLimitError for mixed-case email, got %v", err)
	}
	if limit.Limit != 2 || limit.Window != 180*time.Minute {
		t.Fatalf("unexpected rule: limit=%d window=%v", limit.Limit, limit.Window)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := nextBusinessDay(t)

	var verr *booking.ValidationError
	if _, err := f.svc.Create(ctx, request(start, 20, "a@example.com")); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for duration, got %v", err)
	}
	if _, err := f.svc.Create(ctx, request(start, 30, "not-an-email")); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for email, got %v", err)
	}
}

func TestRescheduleFreesOldSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := nextBusinessDay(t)

	created, err := f.svc.Create(ctx, request(start, 30, "a@example.com"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	newStart := start.Add(2 * time.Hour)
	moved, err := f.svc.Reschedule(ctx, models.RescheduleRequest{
		BookingID:    created.ID,
		Email:        "a@example.com",
		NewStartTime: newStart,
	})
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if !moved.StartTime.Equal(newStart) || moved.ID != created.ID {
		t.Fatalf("expected same record at new time, got %+v", moved)
	}

	// The vacated interval is bookable again.
	if _, err := f.svc.Create(ctx, request(start, 30, "b@example.com")); err != nil {
		t.Fatalf("old slot should be free after reschedule: %v", err)
	}
}

func TestRescheduleExcludesSelfFromConflictCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := nextBusinessDay(t)

	created, err := f.svc.Create(ctx, request(start, 60, "a@example.com"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Shifting within its own interval must not conflict with itself.
	if _, err := f.svc.Reschedule(ctx, models.RescheduleRequest{
		BookingID:       created.ID,
		Email:           "a@example.com",
		NewStartTime:    start.Add(15 * time.Minute),
		DurationMinutes: 30,
	}); err != nil {
		t.Fatalf("self-overlapping reschedule failed: %v", err)
	}
}

func TestCancelIsIdempotentAndFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := nextBusinessDay(t)

	created, err := f.svc.Create(ctx, request(start, 60, "a@example.com"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := f.svc.Cancel(ctx, created.ID, "a@example.com"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	// Second cancel is a no-op, not an error.
	if err := f.svc.Cancel(ctx, created.ID, "a@example.com"); err != nil {
		t.Fatalf("repeated cancel should be idempotent: %v", err)
	}

	// The vacated interval is visible as free immediately.
	if _, err := f.svc.Create(ctx, request(start, 60, "b@example.com")); err != nil {
		t.Fatalf("cancelled slot should be bookable: %v", err)
	}
}

func TestCancelOwnershipCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := nextBusinessDay(t)

	created, err := f.svc.Create(ctx, request(start, 30, "a@example.com"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := f.svc.Cancel(ctx, created.ID, "someone-else@example.com"); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong email, got %v", err)
	}
}

func TestCreateDispatchesSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, request(nextBusinessDay(t), 30, "a@example.com"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(f.dispatcher.calls) != 1 || f.dispatcher.calls[0] != "create:"+created.ID {
		t.Fatalf("expected create sync dispatch, got %v", f.dispatcher.calls)
	}
}

func TestSyncServiceFlagsFailedCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, request(nextBusinessDay(t), 30, "a@example.com"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cal := integration.NewFakeCalendar()
	cal.Fail = true
	crm := integration.NewFakeCRM()
	notifier := &notification.FakeNotificationService{}

	guardCfg := resilience.BreakerConfig{FailureThreshold: 5, ResetTimeout: time.Minute, MonitoringPeriod: time.Minute}
	retry := resilience.RetryConfig{Attempts: 1, Delay: time.Millisecond}

	syncSvc := &booking.SyncService{
		Repo:     f.repo,
		Calendar: integration.NewGuardedCalendar(cal, resilience.NewGuard(resilience.NewCircuitBreaker("calendar", guardCfg), retry, time.Second)),
		CRM:      integration.NewGuardedCRM(crm, resilience.NewGuard(resilience.NewCircuitBreaker("crm", guardCfg), retry, time.Second)),
		Notifier: notifier,
	}

	if err := syncSvc.Run(ctx, created.ID, "create"); err != nil {
		t.Fatalf("sync run failed: %v", err)
	}

	after, err := f.repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("fetch after sync: %v", err)
	}
	if !after.RequiresManualCalSync {
		t.Fatal("expected requiresManualCalendarSync after calendar failure")
	}
	if after.CalendarSynced {
		t.Fatal("calendar must not be marked synced")
	}
	// CRM side is independent and succeeded.
	if !after.CRMSynced || after.RequiresManualCRMSync {
		t.Fatalf("expected clean CRM sync, got %+v", after)
	}
	if after.CRMContactID == "" {
		t.Fatal("expected CRM contact id recorded")
	}
	if len(notifier.Sent) != 1 {
		t.Fatalf("expected 1 notification, got %v", notifier.Sent)
	}
}

func TestSyncServiceKeepsCalendarEventAcrossReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := nextBusinessDay(t)

	created, err := f.svc.Create(ctx, request(start, 30, "a@example.com"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cal := integration.NewFakeCalendar()
	guardCfg := resilience.BreakerConfig{FailureThreshold: 5, ResetTimeout: time.Minute, MonitoringPeriod: time.Minute}
	retry := resilience.RetryConfig{Attempts: 1, Delay: time.Millisecond}
	syncSvc := &booking.SyncService{
		Repo:     f.repo,
		Calendar: integration.NewGuardedCalendar(cal, resilience.NewGuard(resilience.NewCircuitBreaker("calendar", guardCfg), retry, time.Second)),
	}

	if err := syncSvc.Run(ctx, created.ID, "create"); err != nil {
		t.Fatalf("create sync failed: %v", err)
	}
	synced, _ := f.repo.GetByID(ctx, created.ID)
	if synced.CalendarEventID == "" {
		t.Fatal("expected calendar event id after create sync")
	}

	if _, err := f.svc.Reschedule(ctx, models.RescheduleRequest{
		BookingID:    created.ID,
		Email:        "a@example.com",
		NewStartTime: start.Add(2 * time.Hour),
	}); err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if err := syncSvc.Run(ctx, created.ID, "update"); err != nil {
		t.Fatalf("update sync failed: %v", err)
	}

	after, _ := f.repo.GetByID(ctx, created.ID)
	if after.CalendarEventID != synced.CalendarEventID {
		t.Fatalf("calendar event should be updated in place, got %s then %s",
			synced.CalendarEventID, after.CalendarEventID)
	}
	if len(cal.Events) != 1 {
		t.Fatalf("expected a single calendar event, got %d", len(cal.Events))
	}
}
