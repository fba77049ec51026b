package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/openai/openai-go"

	"github.com/carebuddy/carebuddy/internal/genai"
	"github.com/carebuddy/carebuddy/internal/models"
)

const riskTemperature = 0.1

var riskAssessmentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"level":           map[string]any{"type": "string", "enum": []string{"low", "moderate", "high", "critical"}},
		"glucose_risk":    map[string]any{"type": "string"},
		"symptom_risk":    map[string]any{"type": "string"},
		"overall_risk":    map[string]any{"type": "string"},
		"recommendations": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Non-medical lifestyle recommendations only"},
	},
	"required":             []string{"level", "glucose_risk", "symptom_risk", "overall_risk", "recommendations"},
	"additionalProperties": false,
}

const riskInstruction = `Assess the health risk for a diabetes patient from the extracted check-in facts. Grade an overall level of low, moderate, high, or critical. Recommendations must be non-medical lifestyle suggestions only; never suggest medication changes.`

// RiskClassifier grades the extracted facts. It never sees the raw
// conversation and falls back to a low assessment on any failure.
type RiskClassifier struct {
	gen genai.ClientInterface
}

// NewRiskClassifier creates the risk classification stage.
func NewRiskClassifier(gen genai.ClientInterface) *RiskClassifier {
	return &RiskClassifier{gen: gen}
}

func (r *RiskClassifier) Name() string { return "risk_classifier" }

func (r *RiskClassifier) Run(ctx context.Context, state *models.ConversationState) error {
	facts := state.Extracted
	if facts == nil {
		facts = models.EmptyExtractedFacts()
	}
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		state.Risk = models.FallbackRiskAssessment()
		return nil
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(riskInstruction),
		openai.UserMessage("Extracted facts:\n" + string(factsJSON)),
	}
	raw, err := r.gen.GenerateStructured(ctx, messages, "risk_assessment", riskAssessmentSchema, riskTemperature)
	if err != nil {
		slog.Warn("RiskClassifier.Run: generation failed, using fallback assessment", "error", err)
		state.Risk = models.FallbackRiskAssessment()
		return nil
	}
	var assessment models.RiskAssessment
	if err := json.Unmarshal([]byte(raw), &assessment); err != nil {
		slog.Warn("RiskClassifier.Run: malformed output, using fallback assessment", "error", err)
		state.Risk = models.FallbackRiskAssessment()
		return nil
	}
	if assessment.Recommendations == nil {
		assessment.Recommendations = []string{}
	}
	state.Risk = &assessment
	return nil
}
