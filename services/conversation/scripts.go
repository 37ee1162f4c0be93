package conversation

import (
	"fmt"
	"strings"
	"time"

	"slotline/models"
)

// Reply templates for the scripted side of the dialog. Everything the
// caller sees comes from here so the tone stays consistent across turns.

const (
	replyGreeting = "Hi! I can book, reschedule or cancel an appointment for you, or check availability. What would you like to do?"
	replyGeneral  = "I can help with appointments. Would you like to book, reschedule or cancel one, or check availability?"
	replyBusy     = "One moment, I'm still working on your last message."
	replyApology  = "Sorry, something went wrong on our side and I couldn't complete that. Please try again in a few minutes."
	replyAborted  = "No problem, I've discarded that. Let me know if you need anything else."
)

func promptForField(field string) string {
	switch field {
	case models.FieldName:
		return "Can I have your full name?"
	case models.FieldEmail:
		return "What email address should I use for the appointment?"
	case models.FieldPhone:
		return "What's the best phone number to reach you? You can say \"skip\" if you'd rather not share one."
	case models.FieldCompany:
		return "Which company are you with? Say \"skip\" if none."
	case models.FieldInquiry:
		return "Briefly, what is the appointment about?"
	case models.FieldDate:
		return "What day works for you?"
	case models.FieldTime:
		return "What time of day would you like?"
	case models.FieldDuration:
		return "How long should the appointment be? We offer 15, 30, 45 or 60 minutes."
	default:
		return "Could you tell me a bit more?"
	}
}

func repromptForField(field string) string {
	switch field {
	case models.FieldName:
		return "Sorry, I didn't catch your name. Could you spell out your full name?"
	case models.FieldEmail:
		return "That doesn't look like an email address. Could you retype it, like name@example.com?"
	case models.FieldDate:
		return "I couldn't work out the date. Try something like \"December 10\", \"2025-12-10\" or \"next Tuesday\"."
	case models.FieldTime:
		return "I couldn't work out the time. Try something like \"3pm\" or \"14:30\"."
	case models.FieldDuration:
		return "I can only book 15, 30, 45 or 60 minute appointments. Which would you like?"
	case models.FieldBooking:
		return "Please reply with just the number of the appointment from the list."
	default:
		return "Sorry, I didn't quite get that. " + promptForField(field)
	}
}

func confirmationSummary(sess *models.ConversationSession, start time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I have: a %d-minute appointment for %s on %s.",
		sess.DurationMinutes, sess.Name, start.Format("Monday, January 2 at 3:04 PM"))
	if sess.Inquiry != "" {
		fmt.Fprintf(&b, " Topic: %s.", sess.Inquiry)
	}
	fmt.Fprintf(&b, " I'll send the confirmation to %s. Shall I book it?", sess.Email)
	return b.String()
}

func rescheduleSummary(start time.Time) string {
	return fmt.Sprintf("I'll move your appointment to %s. Shall I go ahead?",
		start.Format("Monday, January 2 at 3:04 PM"))
}

func cancelSummary(booking *models.Booking) string {
	return fmt.Sprintf("I'll cancel your %d-minute appointment on %s. Are you sure?",
		booking.DurationMinutes, booking.StartTime.Format("Monday, January 2 at 3:04 PM"))
}

func confirmedReply(booking *models.Booking) string {
	return fmt.Sprintf("Done! Your appointment is booked for %s. A confirmation is on its way to %s.",
		booking.StartTime.Format("Monday, January 2 at 3:04 PM"), booking.RequesterEmail)
}

func rescheduledReply(booking *models.Booking) string {
	return fmt.Sprintf("All set, your appointment now starts on %s.",
		booking.StartTime.Format("Monday, January 2 at 3:04 PM"))
}

const cancelledReply = "Your appointment has been cancelled. You'll receive a confirmation email shortly."

func conflictReply(alternatives []models.TimeSlot) string {
	if len(alternatives) == 0 {
		return "That time is already taken and I couldn't find a nearby opening. Could you suggest another day or time?"
	}
	var b strings.Builder
	b.WriteString("That time is already taken. The nearest openings are ")
	b.WriteString(formatSlotList(alternatives))
	b.WriteString(". Would any of those work? Just tell me a new date or time.")
	return b.String()
}

func frequencyLimitReply(limit int, window time.Duration) string {
	return fmt.Sprintf("I'm sorry, we allow at most %d appointments of that length within %s, and you've reached that limit. Please pick a time further out.",
		limit, formatWindow(window))
}

func validationReply(field, message string) string {
	return fmt.Sprintf("There's a problem with the %s: %s. Could you give me that again?", field, message)
}

func disambiguationReply(candidates []*models.Booking) string {
	var b strings.Builder
	b.WriteString("I found more than one upcoming appointment under that email:\n")
	for i, booking := range candidates {
		fmt.Fprintf(&b, "%d. %s (%d minutes)\n", i+1,
			booking.StartTime.Format("Monday, January 2 at 3:04 PM"), booking.DurationMinutes)
	}
	b.WriteString("Which one did you mean? Reply with the number.")
	return b.String()
}

func noBookingsReply(email string) string {
	return fmt.Sprintf("I couldn't find any upcoming appointments for %s. Would you like to book one instead?", email)
}

func availabilityReply(date string, slots []models.TimeSlot) string {
	if len(slots) == 0 {
		return fmt.Sprintf("There are no openings on %s. Would you like to try another day?", date)
	}
	return fmt.Sprintf("On %s we have openings at %s. Would you like to book one?",
		date, formatSlotList(slots))
}

func formatSlotList(slots []models.TimeSlot) string {
	parts := make([]string, 0, len(slots))
	for _, s := range slots {
		parts = append(parts, s.Start.Format("Mon Jan 2, 3:04 PM"))
	}
	return strings.Join(parts, "; ")
}

func formatWindow(window time.Duration) string {
	hours := window.Hours()
	if hours < 1 {
		return fmt.Sprintf("%d minutes", int(window.Minutes()))
	}
	if hours == float64(int(hours)) {
		if int(hours) == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", int(hours))
	}
	return fmt.Sprintf("%.1f hours", hours)
}
