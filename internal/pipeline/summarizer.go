package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/openai/openai-go"

	"github.com/carebuddy/carebuddy/internal/genai"
	"github.com/carebuddy/carebuddy/internal/models"
)

const summarizerTemperature = 0.7

// summaryFallback is the fixed placeholder used when generation fails.
const summaryFallback = "Thank you for checking in today. Take care!"

const summarizerInstruction = `Write a 2-4 sentence narrative summary of this diabetes check-in for the patient's care record. Mention glucose, medications, mood, and any symptoms or concerns that came up. Write in plain, warm language.`

// Summarizer produces the narrative check-in summary.
type Summarizer struct {
	gen genai.ClientInterface
}

// NewSummarizer creates the summarizer stage.
func NewSummarizer(gen genai.ClientInterface) *Summarizer {
	return &Summarizer{gen: gen}
}

func (s *Summarizer) Name() string { return "summarizer" }

func (s *Summarizer) Run(ctx context.Context, state *models.ConversationState) error {
	turn := map[string]any{
		"user_message": state.UserMessage,
		"reply":        state.Reply,
		"extracted":    state.Extracted,
		"risk":         state.Risk,
	}
	turnJSON, err := json.Marshal(turn)
	if err != nil {
		state.Summary = summaryFallback
		return nil
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(summarizerInstruction),
		openai.UserMessage(string(turnJSON)),
	}
	summary, err := s.gen.GenerateWithMessages(ctx, messages, summarizerTemperature)
	if err != nil {
		slog.Warn("Summarizer.Run: generation failed, using placeholder", "error", err)
		state.Summary = summaryFallback
		return nil
	}
	state.Summary = summary
	return nil
}
