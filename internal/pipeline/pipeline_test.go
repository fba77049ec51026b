package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/carebuddy/carebuddy/internal/models"
)

// mockGenClient implements genai.ClientInterface for testing.
type mockGenClient struct {
	reply          string
	structured     map[string]string // schema name -> raw JSON
	err            error
	structuredErr  error
	freeformCalls  int
	structCalls    []string
	lastTemps      []float64
	lastMessageSet [][]openai.ChatCompletionMessageParamUnion
}

func (m *mockGenClient) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, temperature float64) (string, error) {
	m.freeformCalls++
	m.lastTemps = append(m.lastTemps, temperature)
	m.lastMessageSet = append(m.lastMessageSet, messages)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockGenClient) GenerateStructured(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, schemaName string, schema map[string]any, temperature float64) (string, error) {
	m.structCalls = append(m.structCalls, schemaName)
	m.lastTemps = append(m.lastTemps, temperature)
	if m.structuredErr != nil {
		return "", m.structuredErr
	}
	if raw, ok := m.structured[schemaName]; ok {
		return raw, nil
	}
	return "", errors.New("no canned response")
}

func newTestState(message string) models.ConversationState {
	return models.ConversationState{UserMessage: message, Specialist: models.SpecialistGeneral}
}

func TestRunFast_OrdinaryTurn(t *testing.T) {
	gen := &mockGenClient{reply: "Glad to hear it!"}
	o := NewOrchestrator(gen)

	out, err := o.RunFast(context.Background(), newTestState("Feeling fine, glucose was 110"))
	if err != nil {
		t.Fatalf("RunFast failed: %v", err)
	}
	if out.Reply != "Glad to hear it!" {
		t.Errorf("unexpected reply: %q", out.Reply)
	}
	if out.IsEmergency || out.InsightsGenerated {
		t.Errorf("ordinary turn should not escalate, got %+v", out)
	}
	if gen.freeformCalls != 1 {
		t.Errorf("fast graph should make exactly one generation call, made %d", gen.freeformCalls)
	}
	if len(gen.structCalls) != 0 {
		t.Errorf("fast graph should not run structured stages, ran %v", gen.structCalls)
	}
}

func TestRunFast_EscalatesOnChestPain(t *testing.T) {
	gen := &mockGenClient{
		reply: "Please call emergency services now.",
		structured: map[string]string{
			"extracted_facts": `{"glucose":null,"medications_taken":null,"mood":null,"symptoms":["chest pain"],"concerns":null}`,
			"risk_assessment": `{"level":"critical","glucose_risk":"unknown","symptom_risk":"chest pain reported","overall_risk":"critical","recommendations":["Call 911"]}`,
		},
	}
	o := NewOrchestrator(gen)

	out, err := o.RunFast(context.Background(), newTestState("I have chest pain"))
	if err != nil {
		t.Fatalf("RunFast failed: %v", err)
	}
	if !out.IsEmergency {
		t.Error("expected emergency flag for chest pain")
	}
	if !out.InsightsGenerated {
		t.Error("escalation must yield a full insights result")
	}
	if out.Extracted == nil || len(out.Extracted.Symptoms) != 1 {
		t.Errorf("expected extracted symptoms, got %+v", out.Extracted)
	}
	if out.Risk == nil || out.Risk.Level != models.RiskCritical {
		t.Errorf("expected critical risk, got %+v", out.Risk)
	}
	if out.Summary == "" {
		t.Error("expected a summary after escalation")
	}
	// re-run from scratch: responder twice (fast + full), summarizer once
	if gen.freeformCalls != 3 {
		t.Errorf("expected 3 free-form calls (responder x2 + summarizer), got %d", gen.freeformCalls)
	}
}

func TestRunFull_PopulatesEverything(t *testing.T) {
	gen := &mockGenClient{
		reply: "Thanks for the update.",
		structured: map[string]string{
			"extracted_facts": `{"glucose":145.5,"medications_taken":true,"mood":"good","symptoms":[],"concerns":null}`,
			"risk_assessment": `{"level":"low","glucose_risk":"slightly elevated","symptom_risk":"none","overall_risk":"low","recommendations":["Take a short walk after meals"]}`,
		},
	}
	o := NewOrchestrator(gen)

	out, err := o.RunFull(context.Background(), newTestState("Glucose 145 after lunch, took my meds"))
	if err != nil {
		t.Fatalf("RunFull failed: %v", err)
	}
	if !out.InsightsGenerated {
		t.Error("full graph must mark insights generated")
	}
	if out.Extracted == nil || out.Extracted.Glucose == nil || *out.Extracted.Glucose != 145.5 {
		t.Errorf("unexpected extraction: %+v", out.Extracted)
	}
	if out.Extracted.MedicationsTaken == nil || !*out.Extracted.MedicationsTaken {
		t.Errorf("expected medications_taken true, got %+v", out.Extracted)
	}
	if out.Risk == nil || out.Risk.Level != models.RiskLow {
		t.Errorf("unexpected risk: %+v", out.Risk)
	}
	if out.Summary != "Thanks for the update." {
		t.Errorf("unexpected summary: %q", out.Summary)
	}
}

func TestRunFull_ExtractorFallbackShape(t *testing.T) {
	gen := &mockGenClient{
		reply:         "Thanks for sharing.",
		structuredErr: errors.New("model unavailable"),
	}
	o := NewOrchestrator(gen)

	out, err := o.RunFull(context.Background(), newTestState("Feeling okay"))
	if err != nil {
		t.Fatalf("structured failures must not abort the pipeline: %v", err)
	}
	e := out.Extracted
	if e == nil {
		t.Fatal("expected fallback extraction")
	}
	if e.Glucose != nil || e.MedicationsTaken != nil || e.Mood != nil || e.Concerns != nil {
		t.Errorf("fallback facts must be all-null, got %+v", e)
	}
	if e.Symptoms == nil || len(e.Symptoms) != 0 {
		t.Errorf("fallback symptoms must be an empty list, got %+v", e.Symptoms)
	}
	r := out.Risk
	if r == nil || r.Level != models.RiskLow || r.OverallRisk != "Unable to assess" {
		t.Errorf("unexpected risk fallback: %+v", r)
	}
	if len(r.Recommendations) != 0 {
		t.Errorf("fallback recommendations must be empty, got %v", r.Recommendations)
	}
}

func TestRunFull_SummarizerFallback(t *testing.T) {
	gen := &mockGenClient{
		structured: map[string]string{
			"extracted_facts": `{"glucose":null,"medications_taken":null,"mood":null,"symptoms":[],"concerns":null}`,
			"risk_assessment": `{"level":"low","glucose_risk":"n","symptom_risk":"n","overall_risk":"n","recommendations":[]}`,
		},
	}
	// free-form calls fail after the responder succeeds once
	responderOK := &sequencedGen{inner: gen, failAfter: 1}
	o := NewOrchestrator(responderOK)

	out, err := o.RunFull(context.Background(), newTestState("hi"))
	if err != nil {
		t.Fatalf("RunFull failed: %v", err)
	}
	if out.Summary != summaryFallback {
		t.Errorf("expected placeholder summary, got %q", out.Summary)
	}
}

// sequencedGen fails free-form generation after the first n calls.
type sequencedGen struct {
	inner     *mockGenClient
	failAfter int
	calls     int
}

func (s *sequencedGen) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, temperature float64) (string, error) {
	s.calls++
	if s.calls > s.failAfter {
		return "", errors.New("model unavailable")
	}
	return "A reply", nil
}

func (s *sequencedGen) GenerateStructured(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, schemaName string, schema map[string]any, temperature float64) (string, error) {
	return s.inner.GenerateStructured(ctx, messages, schemaName, schema, temperature)
}

func TestRunFast_ResponderErrorPropagates(t *testing.T) {
	gen := &mockGenClient{err: errors.New("auth failed")}
	o := NewOrchestrator(gen)
	_, err := o.RunFast(context.Background(), newTestState("hello"))
	if err == nil {
		t.Error("responder failure should propagate")
	}
}

func TestDetectEmergency(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"I have CHEST PAIN right now", true},
		{"my sugar is very high today", true},
		{"I fainted earlier", true},
		{"please help", true},
		{"should I call 911?", true},
		{"feeling great, glucose 105", false},
		{"had a salad for lunch", false},
	}
	for _, c := range cases {
		if got := detectEmergency(c.message); got != c.want {
			t.Errorf("detectEmergency(%q) = %v, want %v", c.message, got, c.want)
		}
	}
}

func TestPersonaDispatch(t *testing.T) {
	modes := []models.SpecialistMode{
		models.SpecialistGeneral,
		models.SpecialistNutrition,
		models.SpecialistFitness,
		models.SpecialistTherapist,
		models.SpecialistNurse,
	}
	seen := make(map[string]bool)
	for _, m := range modes {
		prompt := personaFor(m).systemPrompt()
		if seen[prompt] {
			t.Errorf("persona for %s is not distinct", m)
		}
		seen[prompt] = true
	}
	// every persona shares the safety block
	for _, m := range modes {
		prompt := personaFor(m).systemPrompt()
		if !containsAll(prompt, "Never adjust", "emergency services") {
			t.Errorf("persona %s is missing the safety policy", m)
		}
	}
	if personaFor(models.SpecialistMode("banana")) != (generalPersona{}) {
		t.Error("unknown mode should dispatch the general persona")
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
