package conversation

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"slotline/config"
	"slotline/models"
	"slotline/services/availability"
	"slotline/services/booking"
)

// fakeBookingService records lifecycle calls and replays canned results.
type fakeBookingService struct {
	bookings []models.Booking

	created     []models.BookingRequest
	rescheduled []models.RescheduleRequest
	cancelled   []string

	createErr     error
	rescheduleErr error
}

func (f *fakeBookingService) Create(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &models.Booking{
		ID:              "bk-1",
		RequesterName:   req.Name,
		RequesterEmail:  req.Email,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Status:          models.BookingStatusConfirmed,
	}, nil
}

func (f *fakeBookingService) Reschedule(ctx context.Context, req models.RescheduleRequest) (*models.Booking, error) {
	if f.rescheduleErr != nil {
		return nil, f.rescheduleErr
	}
	f.rescheduled = append(f.rescheduled, req)
	b := f.mustFind(req.BookingID)
	b.StartTime = req.NewStartTime
	return b, nil
}

func (f *fakeBookingService) Cancel(ctx context.Context, bookingID, email string) error {
	f.cancelled = append(f.cancelled, bookingID)
	return nil
}

func (f *fakeBookingService) FindByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if strings.EqualFold(b.RequesterEmail, email) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingService) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	if b := f.mustFind(bookingID); b != nil {
		return b, nil
	}
	return nil, booking.ErrNotFound
}

func (f *fakeBookingService) mustFind(bookingID string) *models.Booking {
	for i := range f.bookings {
		if f.bookings[i].ID == bookingID {
			copied := f.bookings[i]
			return &copied
		}
	}
	return nil
}

func testLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func newTestService(t *testing.T, fake *fakeBookingService) *DefaultConversationService {
	t.Helper()
	engine, err := availability.NewEngine(config.Config{
		Timezone:          "America/New_York",
		BusinessStartHour: 9,
		BusinessEndHour:   17,
		BusinessDays:      "Mon,Tue,Wed,Thu,Fri",
		MinAdvanceHours:   2,
		MaxAdvanceHours:   720,
	}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	svc := NewDefaultConversationService(NewMemorySessionStore(), KeywordClassifier{}, fake, engine)
	// Monday morning.
	svc.now = func() time.Time {
		return time.Date(2025, 12, 8, 8, 0, 0, 0, testLocation(t))
	}
	return svc
}

func say(t *testing.T, svc *DefaultConversationService, sessionID, message string) string {
	t.Helper()
	reply, err := svc.HandleMessage(context.Background(), sessionID, message)
	if err != nil {
		t.Fatalf("HandleMessage(%q): %v", message, err)
	}
	return reply
}

func TestBookingDialogPinnedIntent(t *testing.T) {
	fake := &fakeBookingService{}
	svc := newTestService(t, fake)
	sid := "sess-1"

	reply := say(t, svc, sid, "I want to book an appointment")
	if !strings.Contains(reply, "full name") {
		t.Fatalf("expected name prompt, got %q", reply)
	}

	// A bare name answers the pinned booking flow, not a fresh classification.
	reply = say(t, svc, sid, "John Smith")
	if !strings.Contains(reply, "email") {
		t.Fatalf("expected email prompt after name, got %q", reply)
	}

	say(t, svc, sid, "john.smith@example.com")
	say(t, svc, sid, "skip") // phone
	say(t, svc, sid, "Acme Corp")
	say(t, svc, sid, "Quarterly onboarding review")
	say(t, svc, sid, "2025-12-10")
	reply = say(t, svc, sid, "2pm")
	if !strings.Contains(reply, "15, 30, 45 or 60") {
		t.Fatalf("expected duration prompt, got %q", reply)
	}

	reply = say(t, svc, sid, "30 minutes")
	if !strings.Contains(reply, "30-minute") || !strings.Contains(reply, "John Smith") {
		t.Fatalf("expected confirmation summary, got %q", reply)
	}

	reply = say(t, svc, sid, "yes")
	if !strings.Contains(reply, "booked") {
		t.Fatalf("expected booked reply, got %q", reply)
	}
	if len(fake.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(fake.created))
	}
	req := fake.created[0]
	if req.Name != "John Smith" || req.Email != "john.smith@example.com" || req.DurationMinutes != 30 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Phone != "" {
		t.Fatalf("skipped phone should persist empty, got %q", req.Phone)
	}
	wantStart := time.Date(2025, 12, 10, 14, 0, 0, 0, testLocation(t))
	if !req.StartTime.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", req.StartTime, wantStart)
	}

	// Terminal sessions are cleared.
	sess, err := svc.Store.Get(context.Background(), sid)
	if err != nil || sess != nil {
		t.Fatalf("expected cleared session, got %+v (err %v)", sess, err)
	}
}

func TestInlineDetailsSkipTheirPrompts(t *testing.T) {
	fake := &fakeBookingService{}
	svc := newTestService(t, fake)
	sid := "sess-2"

	say(t, svc, sid, "Book me a 30 minute appointment on 2025-12-10 at 2pm, email jane@example.com")
	say(t, svc, sid, "Jane Roe")
	say(t, svc, sid, "skip")
	say(t, svc, sid, "skip")
	reply := say(t, svc, sid, "Contract renewal")

	// Date, time and duration were captured up front, so the dialog jumps
	// straight to confirmation.
	if !strings.Contains(reply, "Shall I book it?") {
		t.Fatalf("expected confirmation, got %q", reply)
	}

	reply = say(t, svc, sid, "yes")
	if len(fake.created) != 1 {
		t.Fatalf("expected one create call, got %d: %q", len(fake.created), reply)
	}
	if fake.created[0].DurationMinutes != 30 || fake.created[0].Email != "jane@example.com" {
		t.Fatalf("unexpected request: %+v", fake.created[0])
	}
}

func TestUnparseableAnswerReprompts(t *testing.T) {
	svc := newTestService(t, &fakeBookingService{})
	sid := "sess-3"

	say(t, svc, sid, "I'd like to book a slot")
	say(t, svc, sid, "Ann Lee")
	reply := say(t, svc, sid, "you can just call me")
	if !strings.Contains(reply, "email address") {
		t.Fatalf("expected email re-prompt, got %q", reply)
	}
	// Session survives the bad turn.
	reply = say(t, svc, sid, "ann@example.com")
	if !strings.Contains(reply, "phone") {
		t.Fatalf("expected phone prompt after recovery, got %q", reply)
	}
}

func TestDeclineAtConfirmationAborts(t *testing.T) {
	fake := &fakeBookingService{}
	svc := newTestService(t, fake)
	sid := "sess-4"

	say(t, svc, sid, "book an appointment for 2025-12-10 at 10am for 15 minutes")
	say(t, svc, sid, "Bob Toms")
	say(t, svc, sid, "bob@example.com")
	say(t, svc, sid, "skip")
	say(t, svc, sid, "skip")
	reply := say(t, svc, sid, "Pricing question")
	if !strings.Contains(reply, "Shall I book it?") {
		t.Fatalf("expected confirmation, got %q", reply)
	}

	reply = say(t, svc, sid, "no")
	if !strings.Contains(reply, "discarded") {
		t.Fatalf("expected abort reply, got %q", reply)
	}
	if len(fake.created) != 0 {
		t.Fatal("declined confirmation must not create a booking")
	}
	sess, _ := svc.Store.Get(context.Background(), sid)
	if sess != nil {
		t.Fatalf("expected cleared session, got %+v", sess)
	}
}

func TestConflictReopensTimeWithAlternatives(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	alt := time.Date(2025, 12, 10, 15, 0, 0, 0, loc)
	fake := &fakeBookingService{createErr: &booking.ConflictError{
		Requested: models.Interval{Start: alt.Add(-time.Hour), End: alt.Add(-30 * time.Minute)},
		Alternatives: []models.TimeSlot{
			{Start: alt, End: alt.Add(30 * time.Minute), DurationMinutes: 30},
		},
	}}
	svc := newTestService(t, fake)
	sid := "sess-5"

	say(t, svc, sid, "book a 30 minute appointment on 2025-12-10 at 2pm")
	say(t, svc, sid, "Cara Lin")
	say(t, svc, sid, "cara@example.com")
	say(t, svc, sid, "skip")
	say(t, svc, sid, "skip")
	say(t, svc, sid, "Renewal chat")
	reply := say(t, svc, sid, "yes")
	if !strings.Contains(reply, "already taken") || !strings.Contains(reply, "3:00 PM") {
		t.Fatalf("expected conflict reply with alternatives, got %q", reply)
	}

	// The session stays live with the time slot reopened.
	fake.createErr = nil
	reply = say(t, svc, sid, "3pm")
	if !strings.Contains(reply, "Shall I book it?") {
		t.Fatalf("expected fresh confirmation, got %q", reply)
	}
	say(t, svc, sid, "yes")
	if len(fake.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(fake.created))
	}
	want := time.Date(2025, 12, 10, 15, 0, 0, 0, testLocation(t))
	if !fake.created[0].StartTime.Equal(want) {
		t.Fatalf("retry start = %v, want %v", fake.created[0].StartTime, want)
	}
}

func TestFrequencyLimitEndsSession(t *testing.T) {
	fake := &fakeBookingService{createErr: &booking.FrequencyLimitError{Limit: 2, Window: 3 * time.Hour}}
	svc := newTestService(t, fake)
	sid := "sess-6"

	say(t, svc, sid, "book a 30 minute appointment on 2025-12-10 at 2pm")
	say(t, svc, sid, "Dan Wu")
	say(t, svc, sid, "dan@example.com")
	say(t, svc, sid, "skip")
	say(t, svc, sid, "skip")
	say(t, svc, sid, "Review")
	reply := say(t, svc, sid, "yes")
	if !strings.Contains(reply, "at most 2 appointments") || !strings.Contains(reply, "3 hours") {
		t.Fatalf("expected frequency limit reply, got %q", reply)
	}
	sess, _ := svc.Store.Get(context.Background(), sid)
	if sess != nil {
		t.Fatal("frequency limit should end the session")
	}
}

func TestRescheduleWithDisambiguation(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	fake := &fakeBookingService{bookings: []models.Booking{
		{ID: "bk-a", RequesterEmail: "eve@example.com", StartTime: time.Date(2025, 12, 11, 10, 0, 0, 0, loc), DurationMinutes: 30, Status: models.BookingStatusConfirmed},
		{ID: "bk-b", RequesterEmail: "eve@example.com", StartTime: time.Date(2025, 12, 12, 14, 0, 0, 0, loc), DurationMinutes: 60, Status: models.BookingStatusConfirmed},
	}}
	svc := newTestService(t, fake)
	sid := "sess-7"

	reply := say(t, svc, sid, "I need to reschedule my appointment")
	if !strings.Contains(reply, "email") {
		t.Fatalf("expected email prompt, got %q", reply)
	}

	reply = say(t, svc, sid, "eve@example.com")
	if !strings.Contains(reply, "more than one") || !strings.Contains(reply, "2.") {
		t.Fatalf("expected disambiguation list, got %q", reply)
	}

	reply = say(t, svc, sid, "2")
	if !strings.Contains(reply, "move it to") {
		t.Fatalf("expected new-date prompt, got %q", reply)
	}

	say(t, svc, sid, "2025-12-15")
	reply = say(t, svc, sid, "11am")
	if !strings.Contains(reply, "Shall I go ahead?") {
		t.Fatalf("expected reschedule confirmation, got %q", reply)
	}

	say(t, svc, sid, "yes")
	if len(fake.rescheduled) != 1 {
		t.Fatalf("expected one reschedule call, got %d", len(fake.rescheduled))
	}
	req := fake.rescheduled[0]
	if req.BookingID != "bk-b" || req.Email != "eve@example.com" {
		t.Fatalf("unexpected reschedule request: %+v", req)
	}
	want := time.Date(2025, 12, 15, 11, 0, 0, 0, testLocation(t))
	if !req.NewStartTime.Equal(want) {
		t.Fatalf("new start = %v, want %v", req.NewStartTime, want)
	}
}

func TestCancelSingleMatchSkipsDisambiguation(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	fake := &fakeBookingService{bookings: []models.Booking{
		{ID: "bk-c", RequesterEmail: "finn@example.com", StartTime: time.Date(2025, 12, 11, 10, 0, 0, 0, loc), DurationMinutes: 45, Status: models.BookingStatusConfirmed},
	}}
	svc := newTestService(t, fake)
	sid := "sess-8"

	say(t, svc, sid, "please cancel my appointment")
	reply := say(t, svc, sid, "finn@example.com")
	if !strings.Contains(reply, "Are you sure?") {
		t.Fatalf("expected cancel confirmation, got %q", reply)
	}

	reply = say(t, svc, sid, "yes")
	if !strings.Contains(reply, "cancelled") {
		t.Fatalf("expected cancelled reply, got %q", reply)
	}
	if len(fake.cancelled) != 1 || fake.cancelled[0] != "bk-c" {
		t.Fatalf("unexpected cancel calls: %v", fake.cancelled)
	}
}

func TestLookupWithNoBookings(t *testing.T) {
	fake := &fakeBookingService{}
	svc := newTestService(t, fake)
	sid := "sess-9"

	say(t, svc, sid, "cancel my appointment")
	reply := say(t, svc, sid, "ghost@example.com")
	if !strings.Contains(reply, "couldn't find any upcoming appointments") {
		t.Fatalf("expected no-bookings reply, got %q", reply)
	}
	sess, _ := svc.Store.Get(context.Background(), sid)
	if sess != nil {
		t.Fatal("no-bookings lookup should end the session")
	}
}

func TestGeneralIntentGetsMenu(t *testing.T) {
	svc := newTestService(t, &fakeBookingService{})
	reply := say(t, svc, "sess-10", "what's your refund policy?")
	if !strings.Contains(reply, "book, reschedule or cancel") {
		t.Fatalf("expected menu reply, got %q", reply)
	}
}

func TestConcurrentMessageGetsBusyReply(t *testing.T) {
	svc := newTestService(t, &fakeBookingService{})
	sid := "sess-11"

	lockAny, _ := svc.locks.LoadOrStore(sid, new(sync.Mutex))
	lockAny.(*sync.Mutex).Lock()
	defer lockAny.(*sync.Mutex).Unlock()

	reply := say(t, svc, sid, "book an appointment")
	if reply != replyBusy {
		t.Fatalf("expected busy reply, got %q", reply)
	}
}
