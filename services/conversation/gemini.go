package conversation

import (
	"context"
	"fmt"
	"strings"

	"slotline/models"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClassifier asks a Gemini model for the intent and falls back to the
// keyword classifier when the model output is unusable.
type GeminiClassifier struct {
	model    *genai.GenerativeModel
	fallback KeywordClassifier
}

func NewGeminiClassifier(apiKey string) (*GeminiClassifier, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("models/gemini-1.5-pro")
	return &GeminiClassifier{model: model}, nil
}

const classifyPrompt = `Classify the visitor message into exactly one word out of:
book, reschedule, cancel, availability, general.
Message: %q
Answer with the single word only.`

func (g *GeminiClassifier) Classify(ctx context.Context, text string) (Classification, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(fmt.Sprintf(classifyPrompt, text)))
	if err != nil {
		return g.fallback.Classify(ctx, text)
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if textPart, ok := part.(genai.Text); ok {
				sb.WriteString(string(textPart))
			}
		}
	}

	switch strings.ToLower(strings.TrimSpace(sb.String())) {
	case models.IntentBook:
		return Classification{Intent: models.IntentBook, Confidence: 0.95}, nil
	case models.IntentReschedule:
		return Classification{Intent: models.IntentReschedule, Confidence: 0.95}, nil
	case models.IntentCancel:
		return Classification{Intent: models.IntentCancel, Confidence: 0.95}, nil
	case models.IntentAvailability:
		return Classification{Intent: models.IntentAvailability, Confidence: 0.95}, nil
	case models.IntentGeneral:
		return Classification{Intent: models.IntentGeneral, Confidence: 0.95}, nil
	}
	return g.fallback.Classify(ctx, text)
}
