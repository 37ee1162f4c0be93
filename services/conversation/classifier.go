package conversation

import (
	"context"
	"strings"

	"slotline/models"
)

// Classification is a typed intent result, decoupled from the dialog state
// machine so the keyword matcher can be swapped for a model-backed one.
type Classification struct {
	Intent     string
	Confidence float64
}

// Classifier turns a raw first message into an intent.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// KeywordClassifier is the default local classifier. Order matters:
// "reschedule my appointment" must win over the bare booking keywords it
// also contains.
type KeywordClassifier struct{}

var intentKeywords = []struct {
	intent   string
	keywords []string
}{
	{models.IntentReschedule, []string{"reschedule", "move my", "change my", "different time", "different day"}},
	{models.IntentCancel, []string{"cancel", "call off", "can't make"}},
	{models.IntentAvailability, []string{"availability", "available", "openings", "open slots", "free slots", "what times"}},
	{models.IntentBook, []string{"book", "appointment", "schedule", "reserve", "meeting", "set up a call", "talk to someone"}},
}

func (KeywordClassifier) Classify(ctx context.Context, text string) (Classification, error) {
	lowered := strings.ToLower(text)
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lowered, kw) {
				return Classification{Intent: group.intent, Confidence: 0.9}, nil
			}
		}
	}
	return Classification{Intent: models.IntentGeneral, Confidence: 0.5}, nil
}
