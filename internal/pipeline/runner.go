package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carebuddy/carebuddy/internal/genai"
	"github.com/carebuddy/carebuddy/internal/models"
	"github.com/carebuddy/carebuddy/internal/store"
)

// Runner is the conversational entry point shared by the HTTP chat
// endpoint, the SMS webhook, and the voice webhooks. It owns session
// bookkeeping around the stateless orchestrator.
type Runner struct {
	orchestrator *Orchestrator
	sessions     SessionStore
	store        store.Store
}

// NewRunner wires an orchestrator to a session store. The data store may
// be nil; care-plan context is then omitted from prompts.
func NewRunner(gen genai.ClientInterface, sessions SessionStore, st store.Store) *Runner {
	return &Runner{orchestrator: NewOrchestrator(gen), sessions: sessions, store: st}
}

// Sessions exposes the session store for lifecycle management.
func (r *Runner) Sessions() SessionStore { return r.sessions }

// Chat runs one conversational turn for the given session. The session
// lock is held across the whole turn so concurrent messages for the same
// conversation cannot interleave histories. wantInsights selects the full
// graph; otherwise the fast graph runs with post-hoc escalation.
func (r *Runner) Chat(ctx context.Context, sessionID, patientID, message string, specialist models.SpecialistMode, wantInsights bool) (models.ConversationState, error) {
	session := r.sessions.GetOrCreate(sessionID)
	session.Lock()
	defer session.Unlock()

	if patientID != "" {
		session.PatientID = patientID
	}
	if specialist != "" {
		session.Specialist = models.ParseSpecialistMode(string(specialist))
	}

	state := models.ConversationState{
		UserMessage:     message,
		History:         session.HistorySnapshot(),
		PatientID:       session.PatientID,
		CarePlanContext: r.carePlanContext(session.PatientID),
		Specialist:      session.Specialist,
	}

	var (
		result models.ConversationState
		err    error
	)
	if wantInsights {
		result, err = r.orchestrator.RunFull(ctx, state)
	} else {
		result, err = r.orchestrator.RunFast(ctx, state)
	}
	if err != nil {
		return result, fmt.Errorf("chat turn failed: %w", err)
	}

	session.Append(message, result.Reply)
	return result, nil
}

// carePlanContext renders the patient's care plan as prompt context text.
func (r *Runner) carePlanContext(patientID string) string {
	if r.store == nil || patientID == "" {
		return ""
	}
	plan, err := r.store.GetCarePlan(patientID)
	if err != nil {
		slog.Warn("Runner.carePlanContext: failed to load care plan", "patientID", patientID, "error", err)
		return ""
	}
	if plan == nil {
		return ""
	}

	var b strings.Builder
	t := plan.GlucoseTargets
	fmt.Fprintf(&b, "Glucose targets: fasting %d-%d mg/dL, post-meal %d-%d mg/dL.\n", t.FastingMin, t.FastingMax, t.PostMealMin, t.PostMealMax)
	if len(plan.Medications) > 0 {
		b.WriteString("Medications:\n")
		for _, m := range plan.Medications {
			fmt.Fprintf(&b, "- %s %s, %s at %s\n", m.Name, m.Dosage, m.Frequency, strings.Join(m.Times, ", "))
		}
	}
	if plan.DietaryRecommendations != "" {
		fmt.Fprintf(&b, "Dietary recommendations: %s\n", plan.DietaryRecommendations)
	}
	if plan.HealthGoals.ActivityMinutesPerWeek > 0 {
		fmt.Fprintf(&b, "Activity goal: %d minutes per week.\n", plan.HealthGoals.ActivityMinutesPerWeek)
	}
	return b.String()
}
