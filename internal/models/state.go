// Package models defines conversation state structures for the agent pipeline.
package models

// SpecialistMode selects which check-in persona drives the conversation.
type SpecialistMode string

const (
	SpecialistGeneral   SpecialistMode = "general"
	SpecialistNutrition SpecialistMode = "nutrition"
	SpecialistFitness   SpecialistMode = "fitness"
	SpecialistTherapist SpecialistMode = "therapist"
	SpecialistNurse     SpecialistMode = "nurse"
)

// ParseSpecialistMode maps a raw tag onto the closed set of specialist
// modes. Unrecognized tags fall back to the general persona.
func ParseSpecialistMode(s string) SpecialistMode {
	switch SpecialistMode(s) {
	case SpecialistNutrition, SpecialistFitness, SpecialistTherapist, SpecialistNurse:
		return SpecialistMode(s)
	default:
		return SpecialistGeneral
	}
}

// ConversationMessage is a single turn in a conversation history.
type ConversationMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ConversationState is the record threaded through one pipeline invocation.
// It is created fresh per inbound message, owned exclusively by that
// invocation, and never shared across concurrent runs. History is
// append-only and supplied by the session owner, not by the pipeline.
type ConversationState struct {
	UserMessage       string                `json:"user_message"`
	History           []ConversationMessage `json:"history"`
	Reply             string                `json:"reply"`
	Extracted         *ExtractedFacts       `json:"extracted,omitempty"`
	Risk              *RiskAssessment       `json:"risk,omitempty"`
	Summary           string                `json:"summary"`
	IsEmergency       bool                  `json:"is_emergency"`
	InsightsGenerated bool                  `json:"insights_generated"`
	PatientID         string                `json:"patient_id,omitempty"`
	CarePlanContext   string                `json:"care_plan_context,omitempty"`
	Specialist        SpecialistMode        `json:"specialist"`
}

// ExtractedFacts is the structured extraction produced once per pipeline
// invocation. A nil field means "not mentioned", never "false" or "zero".
type ExtractedFacts struct {
	Glucose          *float64 `json:"glucose"`
	MedicationsTaken *bool    `json:"medications_taken"`
	Mood             *string  `json:"mood"`
	Symptoms         []string `json:"symptoms"`
	Concerns         *string  `json:"concerns"`
}

// EmptyExtractedFacts returns the all-null extraction used when the
// generation capability fails. Extraction is best-effort and must not
// abort the pipeline.
func EmptyExtractedFacts() *ExtractedFacts {
	return &ExtractedFacts{Symptoms: []string{}}
}

// RiskLevel grades a risk assessment.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskAssessment is the pipeline's risk classification for one check-in.
// Recommendations are non-medical by contract.
type RiskAssessment struct {
	Level           RiskLevel `json:"level"`
	GlucoseRisk     string    `json:"glucose_risk"`
	SymptomRisk     string    `json:"symptom_risk"`
	OverallRisk     string    `json:"overall_risk"`
	Recommendations []string  `json:"recommendations"`
}

// FallbackRiskAssessment returns the assessment used when the generation
// capability fails: default to low rather than raising.
func FallbackRiskAssessment() *RiskAssessment {
	return &RiskAssessment{
		Level:           RiskLow,
		GlucoseRisk:     "Unable to assess",
		SymptomRisk:     "Unable to assess",
		OverallRisk:     "Unable to assess",
		Recommendations: []string{},
	}
}
