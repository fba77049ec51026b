package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/openai/openai-go"

	"github.com/carebuddy/carebuddy/internal/genai"
	"github.com/carebuddy/carebuddy/internal/models"
)

const (
	extractorTemperature = 0.1
	extractorHistoryMax  = 5
)

var extractedFactsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"glucose":           map[string]any{"type": []string{"number", "null"}, "description": "Blood glucose reading in mg/dL if mentioned"},
		"medications_taken": map[string]any{"type": []string{"boolean", "null"}, "description": "Whether the patient said they took their medications"},
		"mood":              map[string]any{"type": []string{"string", "null"}, "description": "The patient's stated mood"},
		"symptoms":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Symptoms the patient mentioned"},
		"concerns":          map[string]any{"type": []string{"string", "null"}, "description": "Concerns or questions the patient raised"},
	},
	"required":             []string{"glucose", "medications_taken", "mood", "symptoms", "concerns"},
	"additionalProperties": false,
}

const extractorInstruction = `Extract health facts from the patient's check-in conversation. Only report what the patient explicitly stated. A missing field means "not mentioned", never false or zero.`

// Extractor pulls structured facts out of the latest exchange. Extraction
// is best-effort: any failure yields the all-null facts and a nil error.
type Extractor struct {
	gen genai.ClientInterface
}

// NewExtractor creates the extractor stage.
func NewExtractor(gen genai.ClientInterface) *Extractor {
	return &Extractor{gen: gen}
}

func (e *Extractor) Name() string { return "extractor" }

// Run extracts facts from the last few history turns plus the latest
// exchange. Older turns are not needed for point-in-time extraction.
func (e *Extractor) Run(ctx context.Context, state *models.ConversationState) error {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(extractorInstruction),
	}
	history := state.History
	if len(history) > extractorHistoryMax {
		history = history[len(history)-extractorHistoryMax:]
	}
	for _, m := range history {
		if m.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(state.UserMessage))
	if state.Reply != "" {
		messages = append(messages, openai.AssistantMessage(state.Reply))
	}

	raw, err := e.gen.GenerateStructured(ctx, messages, "extracted_facts", extractedFactsSchema, extractorTemperature)
	if err != nil {
		slog.Warn("Extractor.Run: generation failed, using empty facts", "error", err)
		state.Extracted = models.EmptyExtractedFacts()
		return nil
	}
	var facts models.ExtractedFacts
	if err := json.Unmarshal([]byte(raw), &facts); err != nil {
		slog.Warn("Extractor.Run: malformed output, using empty facts", "error", err)
		state.Extracted = models.EmptyExtractedFacts()
		return nil
	}
	if facts.Symptoms == nil {
		facts.Symptoms = []string{}
	}
	state.Extracted = &facts
	return nil
}
