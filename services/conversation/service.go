package conversation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"slotline/models"
	"slotline/services/availability"
	"slotline/services/booking"
	"slotline/utils"
)

// DefaultConversationService is the scripted state machine behind the chat
// and voice channels. Sessions move IDLE -> COLLECTING -> CONFIRMING and end
// in COMPLETE or ABORTED. The first booking-like intent is pinned for the
// rest of the session.
type DefaultConversationService struct {
	Store      SessionStore
	Classifier Classifier
	Bookings   booking.BookingService
	Engine     *availability.Engine

	// One writer per session. A message that arrives while another is being
	// processed gets a busy reply instead of racing the session state.
	locks sync.Map

	now func() time.Time
}

func NewDefaultConversationService(store SessionStore, classifier Classifier, bookings booking.BookingService, engine *availability.Engine) *DefaultConversationService {
	return &DefaultConversationService{
		Store:      store,
		Classifier: classifier,
		Bookings:   bookings,
		Engine:     engine,
		now:        time.Now,
	}
}

func (s *DefaultConversationService) HandleMessage(ctx context.Context, sessionID, message string) (string, error) {
	lockAny, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)
	if !lock.TryLock() {
		return replyBusy, nil
	}
	defer lock.Unlock()

	sess, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		utils.GetLogger().Error("conversation: session load failed",
			zap.String("sessionId", sessionID), zap.Error(err))
		return replyApology, nil
	}
	if sess == nil {
		sess = &models.ConversationSession{
			SessionID: sessionID,
			State:     models.DialogIdle,
			CreatedAt: s.now(),
		}
	}

	reply := s.process(ctx, sess, strings.TrimSpace(message))

	if sess.State == models.DialogComplete || sess.State == models.DialogAborted {
		if err := s.Store.Clear(ctx, sessionID); err != nil {
			utils.GetLogger().Warn("conversation: session clear failed",
				zap.String("sessionId", sessionID), zap.Error(err))
		}
		s.locks.Delete(sessionID)
		return reply, nil
	}
	if err := s.Store.Save(ctx, sess); err != nil {
		utils.GetLogger().Error("conversation: session save failed",
			zap.String("sessionId", sessionID), zap.Error(err))
		return replyApology, nil
	}
	return reply, nil
}

func (s *DefaultConversationService) process(ctx context.Context, sess *models.ConversationSession, message string) string {
	switch sess.State {
	case models.DialogIdle:
		return s.handleIdle(ctx, sess, message)
	case models.DialogCollecting:
		return s.handleCollecting(ctx, sess, message)
	case models.DialogConfirming:
		return s.handleConfirming(ctx, sess, message)
	default:
		sess.State = models.DialogIdle
		return s.handleIdle(ctx, sess, message)
	}
}

// handleIdle classifies the first message and pins the intent. Details the
// user volunteered up front (date, time, duration, email) are captured
// before the first prompt goes out.
func (s *DefaultConversationService) handleIdle(ctx context.Context, sess *models.ConversationSession, message string) string {
	if message == "" {
		return replyGreeting
	}

	c, err := s.Classifier.Classify(ctx, message)
	if err != nil {
		utils.GetLogger().Warn("conversation: classification failed", zap.Error(err))
		c = Classification{Intent: models.IntentGeneral}
	}

	switch c.Intent {
	case models.IntentBook:
		sess.Intent = models.IntentBook
		sess.State = models.DialogCollecting
		s.absorb(sess, message)
		return s.advanceBooking(sess)
	case models.IntentReschedule, models.IntentCancel:
		sess.Intent = c.Intent
		sess.State = models.DialogCollecting
		s.absorb(sess, message)
		if sess.Email != "" {
			return s.lookupBookings(ctx, sess)
		}
		sess.NextField = models.FieldEmail
		return "Sure. " + promptForField(models.FieldEmail)
	case models.IntentAvailability:
		sess.Intent = models.IntentAvailability
		sess.State = models.DialogCollecting
		s.absorb(sess, message)
		if sess.Date != "" {
			return s.answerAvailability(ctx, sess)
		}
		sess.NextField = models.FieldDate
		return "Happy to check. " + promptForField(models.FieldDate)
	default:
		return replyGeneral
	}
}

// handleCollecting fills the prompted field from the message, then whatever
// else the message happens to contain, and moves on to the next gap.
func (s *DefaultConversationService) handleCollecting(ctx context.Context, sess *models.ConversationSession, message string) string {
	if sess.NextField != "" {
		if ok := s.fillField(sess, sess.NextField, message); !ok {
			return repromptForField(sess.NextField)
		}
	}
	s.absorb(sess, message)

	switch sess.Intent {
	case models.IntentBook:
		return s.advanceBooking(sess)
	case models.IntentReschedule, models.IntentCancel:
		return s.advanceLookup(ctx, sess)
	case models.IntentAvailability:
		if sess.Date == "" {
			sess.NextField = models.FieldDate
			return repromptForField(models.FieldDate)
		}
		return s.answerAvailability(ctx, sess)
	default:
		sess.State = models.DialogAborted
		return replyAborted
	}
}

// fillField parses the message as the answer to one prompted field.
func (s *DefaultConversationService) fillField(sess *models.ConversationSession, field, message string) bool {
	switch field {
	case models.FieldName:
		name, ok := extractName(message)
		if !ok {
			return false
		}
		sess.Name = name
	case models.FieldEmail:
		email, ok := extractEmail(message)
		if !ok {
			return false
		}
		sess.Email = email
	case models.FieldPhone:
		if skipped(message) {
			sess.Phone = "-"
			return true
		}
		sess.Phone = strings.TrimSpace(message)
	case models.FieldCompany:
		if skipped(message) {
			sess.Company = "-"
			return true
		}
		sess.Company = strings.TrimSpace(message)
	case models.FieldInquiry:
		sess.Inquiry = strings.TrimSpace(message)
		if sess.Inquiry == "" {
			return false
		}
	case models.FieldDate:
		date, ok := extractDate(message, s.now(), s.Engine.Location)
		if !ok {
			return false
		}
		sess.Date = date
	case models.FieldTime:
		tod, ok := extractTimeOfDay(message)
		if !ok {
			return false
		}
		sess.TimeOfDay = tod
	case models.FieldDuration:
		d, ok := extractDuration(message)
		if !ok {
			return false
		}
		sess.DurationMinutes = d
	case models.FieldBooking:
		n, err := strconv.Atoi(strings.TrimSpace(message))
		if err != nil || n < 1 || n > len(sess.CandidateBookingIDs) {
			return false
		}
		sess.TargetBookingID = sess.CandidateBookingIDs[n-1]
	default:
		return false
	}
	return true
}

// absorb opportunistically captures any fields present in the message beyond
// the one being prompted. It never overwrites an already-collected value.
func (s *DefaultConversationService) absorb(sess *models.ConversationSession, message string) {
	if sess.Email == "" {
		if email, ok := extractEmail(message); ok {
			sess.Email = email
		}
	}
	if sess.Date == "" {
		if date, ok := extractDate(message, s.now(), s.Engine.Location); ok {
			sess.Date = date
		}
	}
	if sess.TimeOfDay == "" {
		if tod, ok := extractTimeOfDay(message); ok {
			sess.TimeOfDay = tod
		}
	}
	if sess.DurationMinutes == 0 {
		if d, ok := extractDuration(message); ok {
			sess.DurationMinutes = d
		}
	}
}

// advanceBooking prompts for the next missing field, or moves to CONFIRMING
// once everything needed for Create is in hand.
func (s *DefaultConversationService) advanceBooking(sess *models.ConversationSession) string {
	if missing := s.nextMissingBookingField(sess); missing != "" {
		sess.NextField = missing
		return promptForField(missing)
	}
	start, err := combineDateTime(sess.Date, sess.TimeOfDay, s.Engine.Location)
	if err != nil {
		sess.Date = ""
		sess.TimeOfDay = ""
		sess.NextField = models.FieldDate
		return repromptForField(models.FieldDate)
	}
	sess.NextField = ""
	sess.State = models.DialogConfirming
	return confirmationSummary(sess, start)
}

func (s *DefaultConversationService) nextMissingBookingField(sess *models.ConversationSession) string {
	switch {
	case sess.Name == "":
		return models.FieldName
	case sess.Email == "":
		return models.FieldEmail
	case sess.Phone == "":
		return models.FieldPhone
	case sess.Company == "":
		return models.FieldCompany
	case sess.Inquiry == "":
		return models.FieldInquiry
	case sess.Date == "":
		return models.FieldDate
	case sess.TimeOfDay == "":
		return models.FieldTime
	case sess.DurationMinutes == 0:
		return models.FieldDuration
	default:
		return ""
	}
}

// advanceLookup drives reschedule and cancel: email first, then which
// booking, then (for reschedule) the new date and time.
func (s *DefaultConversationService) advanceLookup(ctx context.Context, sess *models.ConversationSession) string {
	if sess.Email == "" {
		sess.NextField = models.FieldEmail
		return promptForField(models.FieldEmail)
	}
	if sess.TargetBookingID == "" {
		if len(sess.CandidateBookingIDs) == 0 {
			return s.lookupBookings(ctx, sess)
		}
		sess.NextField = models.FieldBooking
		return "Sorry, I need the number of the appointment from the list. Which one did you mean?"
	}
	if sess.Intent == models.IntentCancel {
		return s.confirmCancel(ctx, sess)
	}
	switch {
	case sess.Date == "":
		sess.NextField = models.FieldDate
		return "What day should I move it to?"
	case sess.TimeOfDay == "":
		sess.NextField = models.FieldTime
		return promptForField(models.FieldTime)
	}
	start, err := combineDateTime(sess.Date, sess.TimeOfDay, s.Engine.Location)
	if err != nil {
		sess.Date = ""
		sess.TimeOfDay = ""
		sess.NextField = models.FieldDate
		return repromptForField(models.FieldDate)
	}
	sess.NextField = ""
	sess.State = models.DialogConfirming
	return rescheduleSummary(start)
}

// lookupBookings finds the requester's upcoming bookings and either selects
// the single match or asks which one they meant.
func (s *DefaultConversationService) lookupBookings(ctx context.Context, sess *models.ConversationSession) string {
	found, err := s.Bookings.FindByEmail(ctx, sess.Email)
	if err != nil {
		utils.GetLogger().Error("conversation: booking lookup failed",
			zap.String("sessionId", sess.SessionID), zap.Error(err))
		return replyApology
	}
	if len(found) == 0 {
		sess.State = models.DialogComplete
		return noBookingsReply(sess.Email)
	}
	if len(found) == 1 {
		sess.TargetBookingID = found[0].ID
		return s.advanceLookup(ctx, sess)
	}
	candidates := make([]*models.Booking, 0, len(found))
	sess.CandidateBookingIDs = sess.CandidateBookingIDs[:0]
	for i := range found {
		candidates = append(candidates, &found[i])
		sess.CandidateBookingIDs = append(sess.CandidateBookingIDs, found[i].ID)
	}
	sess.NextField = models.FieldBooking
	return disambiguationReply(candidates)
}

func (s *DefaultConversationService) confirmCancel(ctx context.Context, sess *models.ConversationSession) string {
	target, err := s.Bookings.GetByID(ctx, sess.TargetBookingID)
	if err != nil {
		utils.GetLogger().Error("conversation: booking fetch failed",
			zap.String("bookingId", sess.TargetBookingID), zap.Error(err))
		return replyApology
	}
	sess.NextField = ""
	sess.State = models.DialogConfirming
	return cancelSummary(target)
}

func (s *DefaultConversationService) answerAvailability(ctx context.Context, sess *models.ConversationSession) string {
	duration := sess.DurationMinutes
	if duration == 0 {
		duration = 30
	}
	dayStart, err := time.ParseInLocation("2006-01-02", sess.Date, s.Engine.Location)
	if err != nil {
		sess.Date = ""
		sess.NextField = models.FieldDate
		return repromptForField(models.FieldDate)
	}
	slots, err := s.Engine.Slots(ctx, dayStart, dayStart.AddDate(0, 0, 1), duration)
	if err != nil {
		utils.GetLogger().Error("conversation: availability query failed", zap.Error(err))
		return replyApology
	}
	sess.State = models.DialogComplete
	return availabilityReply(dayStart.Format("Monday, January 2"), slots)
}

// handleConfirming runs the pinned operation on a yes, aborts on a no, and
// re-prompts otherwise.
func (s *DefaultConversationService) handleConfirming(ctx context.Context, sess *models.ConversationSession, message string) string {
	confirmed, ok := extractYesNo(message)
	if !ok {
		return "Sorry, I need a yes or no. Shall I go ahead?"
	}
	if !confirmed {
		sess.State = models.DialogAborted
		return replyAborted
	}

	switch sess.Intent {
	case models.IntentBook:
		return s.executeCreate(ctx, sess)
	case models.IntentReschedule:
		return s.executeReschedule(ctx, sess)
	case models.IntentCancel:
		return s.executeCancel(ctx, sess)
	default:
		sess.State = models.DialogAborted
		return replyAborted
	}
}

func (s *DefaultConversationService) executeCreate(ctx context.Context, sess *models.ConversationSession) string {
	start, err := combineDateTime(sess.Date, sess.TimeOfDay, s.Engine.Location)
	if err != nil {
		sess.State = models.DialogCollecting
		sess.Date = ""
		sess.TimeOfDay = ""
		sess.NextField = models.FieldDate
		return repromptForField(models.FieldDate)
	}
	created, err := s.Bookings.Create(ctx, models.BookingRequest{
		Name:            sess.Name,
		Email:           sess.Email,
		Phone:           optional(sess.Phone),
		Company:         optional(sess.Company),
		Inquiry:         sess.Inquiry,
		StartTime:       start,
		DurationMinutes: sess.DurationMinutes,
	})
	if err != nil {
		return s.renderBookingError(sess, err)
	}
	sess.State = models.DialogComplete
	return confirmedReply(created)
}

func (s *DefaultConversationService) executeReschedule(ctx context.Context, sess *models.ConversationSession) string {
	start, err := combineDateTime(sess.Date, sess.TimeOfDay, s.Engine.Location)
	if err != nil {
		sess.State = models.DialogCollecting
		sess.Date = ""
		sess.TimeOfDay = ""
		sess.NextField = models.FieldDate
		return repromptForField(models.FieldDate)
	}
	moved, err := s.Bookings.Reschedule(ctx, models.RescheduleRequest{
		BookingID:       sess.TargetBookingID,
		Email:           sess.Email,
		NewStartTime:    start,
		DurationMinutes: sess.DurationMinutes,
	})
	if err != nil {
		return s.renderBookingError(sess, err)
	}
	sess.State = models.DialogComplete
	return rescheduledReply(moved)
}

func (s *DefaultConversationService) executeCancel(ctx context.Context, sess *models.ConversationSession) string {
	if err := s.Bookings.Cancel(ctx, sess.TargetBookingID, sess.Email); err != nil {
		return s.renderBookingError(sess, err)
	}
	sess.State = models.DialogComplete
	return cancelledReply
}

// renderBookingError translates lifecycle errors into dialog moves. A
// conflict reopens the time slot with alternatives, a frequency limit ends
// the session, a validation error reopens the offending field, and a store
// failure gets an apology without losing the session.
func (s *DefaultConversationService) renderBookingError(sess *models.ConversationSession, err error) string {
	var conflict *booking.ConflictError
	if errors.As(err, &conflict) {
		sess.State = models.DialogCollecting
		sess.TimeOfDay = ""
		sess.NextField = models.FieldTime
		return conflictReply(conflict.Alternatives)
	}
	var limit *booking.FrequencyLimitError
	if errors.As(err, &limit) {
		sess.State = models.DialogComplete
		return frequencyLimitReply(limit.Limit, limit.Window)
	}
	var invalid *booking.ValidationError
	if errors.As(err, &invalid) {
		sess.State = models.DialogCollecting
		sess.NextField = s.fieldFor(invalid.Field)
		s.clearField(sess, sess.NextField)
		return validationReply(invalid.Field, invalid.Message)
	}
	if errors.Is(err, booking.ErrNotFound) {
		sess.State = models.DialogComplete
		return noBookingsReply(sess.Email)
	}
	utils.GetLogger().Error("conversation: booking operation failed",
		zap.String("sessionId", sess.SessionID), zap.Error(err))
	return replyApology
}

func (s *DefaultConversationService) fieldFor(validationField string) string {
	switch validationField {
	case "name":
		return models.FieldName
	case "email":
		return models.FieldEmail
	case "duration", "durationMinutes":
		return models.FieldDuration
	case "startTime", "start_time":
		return models.FieldTime
	default:
		return models.FieldDate
	}
}

func (s *DefaultConversationService) clearField(sess *models.ConversationSession, field string) {
	switch field {
	case models.FieldName:
		sess.Name = ""
	case models.FieldEmail:
		sess.Email = ""
	case models.FieldDuration:
		sess.DurationMinutes = 0
	case models.FieldTime:
		sess.TimeOfDay = ""
	case models.FieldDate:
		sess.Date = ""
	}
}

func skipped(message string) bool {
	lowered := strings.ToLower(strings.TrimSpace(message))
	return lowered == "skip" || lowered == "none" || lowered == "no" || lowered == "n/a" || lowered == "-"
}

// optional maps the "skipped" placeholder back to empty for persistence.
func optional(v string) string {
	if v == "-" {
		return ""
	}
	return v
}
