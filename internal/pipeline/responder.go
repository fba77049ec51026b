package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/carebuddy/carebuddy/internal/genai"
	"github.com/carebuddy/carebuddy/internal/models"
)

const responderTemperature = 0.7

// emergencyKeywords is the fixed substring list scanned case-insensitively
// against the raw user utterance.
var emergencyKeywords = []string{
	"chest pain",
	"trouble breathing",
	"can't breathe",
	"difficulty breathing",
	"confusion",
	"passing out",
	"fainted",
	"unconscious",
	"emergency",
	"very high",
	"very low",
	"extremely high",
	"extremely low",
	"severe",
	"critical",
	"urgent",
	"help",
	"911",
}

// Responder produces the conversational reply and flags emergencies. It is
// the only stage whose generation failure propagates; every later stage has
// a documented fallback instead.
type Responder struct {
	gen genai.ClientInterface
}

// NewResponder creates the responder stage.
func NewResponder(gen genai.ClientInterface) *Responder {
	return &Responder{gen: gen}
}

func (r *Responder) Name() string { return "responder" }

// Run scans the utterance for emergency keywords, then generates the reply
// under the selected specialist persona. The keyword scan happens before
// the generation call so escalation still fires when generation fails.
func (r *Responder) Run(ctx context.Context, state *models.ConversationState) error {
	state.IsEmergency = detectEmergency(state.UserMessage)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(personaFor(state.Specialist).systemPrompt()),
	}
	if state.CarePlanContext != "" {
		messages = append(messages, openai.SystemMessage("Patient care plan context:\n"+state.CarePlanContext))
	}
	for _, m := range state.History {
		if m.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(state.UserMessage))

	reply, err := r.gen.GenerateWithMessages(ctx, messages, responderTemperature)
	if err != nil {
		return fmt.Errorf("responder generation failed: %w", err)
	}
	state.Reply = reply
	return nil
}

func detectEmergency(message string) bool {
	lowered := strings.ToLower(message)
	for _, kw := range emergencyKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
