package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"slotline/services/availability"
)

var (
	emailRe    = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}))?\b`)
	monthDayRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	clockRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	durationRe = regexp.MustCompile(`\b(\d{1,3})\s*(?:min|mins|minute|minutes)\b`)
	bareNumRe  = regexp.MustCompile(`^\d{1,3}$`)
	nameRe     = regexp.MustCompile(`^[\p{L}][\p{L}'.\- ]{1,60}$`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

// Ordered so a message naming two weekdays always resolves the same way:
// the earliest mention in the text wins.
var weekdayNames = []struct {
	name string
	day  time.Weekday
}{
	{"sunday", time.Sunday}, {"monday", time.Monday}, {"tuesday", time.Tuesday},
	{"wednesday", time.Wednesday}, {"thursday", time.Thursday},
	{"friday", time.Friday}, {"saturday", time.Saturday},
}

// extractEmail finds an email address anywhere in the text.
func extractEmail(text string) (string, bool) {
	match := emailRe.FindString(text)
	if match == "" {
		return "", false
	}
	return strings.ToLower(match), true
}

// extractName accepts a plausible person name. Used only when the name slot
// is being prompted, so a bare "John Smith" fills it without keywords.
func extractName(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	for _, prefix := range []string{"my name is ", "i'm ", "i am ", "this is ", "it's "} {
		if strings.HasPrefix(strings.ToLower(trimmed), prefix) {
			trimmed = strings.TrimSpace(trimmed[len(prefix):])
			break
		}
	}
	if !nameRe.MatchString(trimmed) {
		return "", false
	}
	return trimmed, true
}

// extractDate resolves absolute, slash, month-day, relative and day-of-week
// date forms against today in loc. Returns a YYYY-MM-DD string.
func extractDate(text string, now time.Time, loc *time.Location) (string, bool) {
	lowered := strings.ToLower(text)
	today := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		if d, err := time.ParseInLocation("2006-01-02", m[0], loc); err == nil {
			return d.Format("2006-01-02"), true
		}
	}

	if strings.Contains(lowered, "today") {
		return today.Format("2006-01-02"), true
	}
	if strings.Contains(lowered, "tomorrow") {
		return today.AddDate(0, 0, 1).Format("2006-01-02"), true
	}

	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		month := monthsByName[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		candidate := time.Date(today.Year(), month, day, 0, 0, 0, 0, loc)
		if candidate.Before(today) {
			candidate = candidate.AddDate(1, 0, 0)
		}
		return candidate.Format("2006-01-02"), true
	}

	firstAt := -1
	var firstDay time.Weekday
	for _, wd := range weekdayNames {
		if at := strings.Index(lowered, wd.name); at >= 0 && (firstAt < 0 || at < firstAt) {
			firstAt = at
			firstDay = wd.day
		}
	}
	if firstAt >= 0 {
		days := int(firstDay-today.Weekday()+7) % 7
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, days).Format("2006-01-02"), true
	}

	if m := slashRe.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return "", false
		}
		year := today.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
		if m[3] == "" && candidate.Before(today) {
			candidate = candidate.AddDate(1, 0, 0)
		}
		return candidate.Format("2006-01-02"), true
	}

	return "", false
}

// extractTimeOfDay parses "3pm", "3:30 pm", "15:00" and similar. Bare hours
// without am/pm are treated as 24-hour clock and must carry minutes, so
// stray numbers never read as times. The first candidate that validates
// wins.
func extractTimeOfDay(text string) (string, bool) {
	for _, m := range clockRe.FindAllStringSubmatch(text, -1) {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		meridiem := strings.ToLower(m[3])

		switch meridiem {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		default:
			if m[2] == "" {
				continue
			}
		}

		if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			continue
		}
		return twoDigit(hour) + ":" + twoDigit(minute), true
	}
	return "", false
}

func twoDigit(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// extractDuration maps the text onto the fixed duration set. A bare number
// counts only when it is the whole message, so "15:00" and "December 10" are
// never read as durations.
func extractDuration(text string) (int, bool) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if strings.Contains(lowered, "half an hour") || strings.Contains(lowered, "half hour") {
		return 30, true
	}
	if strings.Contains(lowered, "an hour") || strings.Contains(lowered, "one hour") || strings.Contains(lowered, "1 hour") {
		return 60, true
	}
	if bareNumRe.MatchString(lowered) {
		n, _ := strconv.Atoi(lowered)
		if availability.ValidDuration(n) {
			return n, true
		}
		return 0, false
	}
	for _, m := range durationRe.FindAllStringSubmatch(lowered, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if availability.ValidDuration(n) {
			return n, true
		}
	}
	return 0, false
}

// extractYesNo parses a confirmation turn.
func extractYesNo(text string) (bool, bool) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, w := range []string{"yes", "yeah", "yep", "sure", "confirm", "correct", "ok", "okay", "please do", "go ahead"} {
		if lowered == w || strings.HasPrefix(lowered, w+" ") || strings.HasPrefix(lowered, w+",") {
			return true, true
		}
	}
	for _, w := range []string{"no", "nope", "nah", "don't", "do not", "stop", "never mind", "nevermind"} {
		if lowered == w || strings.HasPrefix(lowered, w+" ") || strings.HasPrefix(lowered, w+",") {
			return false, true
		}
	}
	return false, false
}

// combineDateTime builds the appointment start instant in loc.
func combineDateTime(date, timeOfDay string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", date+" "+timeOfDay, loc)
}
