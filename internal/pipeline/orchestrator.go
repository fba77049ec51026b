// Package pipeline implements the agent pipeline: four generation stages
// composed into a fast (reply-only) graph and a full (insight-generating)
// graph, with post-hoc emergency escalation from fast to full.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/carebuddy/carebuddy/internal/genai"
	"github.com/carebuddy/carebuddy/internal/models"
)

// Stage is one step of the pipeline. Each stage consumes and augments the
// conversation state via a single generation call.
type Stage interface {
	Name() string
	Run(ctx context.Context, state *models.ConversationState) error
}

// Orchestrator composes the stages into the two fixed execution orders.
// It is stateless; callers own the conversation state and its history.
type Orchestrator struct {
	responder  Stage
	extractor  Stage
	classifier Stage
	summarizer Stage
}

// NewOrchestrator builds the standard four-stage pipeline over the given
// generation client.
func NewOrchestrator(gen genai.ClientInterface) *Orchestrator {
	return &Orchestrator{
		responder:  NewResponder(gen),
		extractor:  NewExtractor(gen),
		classifier: NewRiskClassifier(gen),
		summarizer: NewSummarizer(gen),
	}
}

// RunFast executes the reply-only graph. If the responder flags an
// emergency, the full graph is re-invoked from scratch on the same initial
// state rather than resumed; emergencies are rare enough that re-running
// the cheap responder stage is an acceptable trade for avoiding
// checkpoint machinery.
func (o *Orchestrator) RunFast(ctx context.Context, state models.ConversationState) (models.ConversationState, error) {
	initial := state
	if err := o.responder.Run(ctx, &state); err != nil {
		return state, err
	}
	if state.IsEmergency {
		slog.Info("Orchestrator.RunFast: emergency detected, escalating to full pipeline")
		return o.RunFull(ctx, initial)
	}
	return state, nil
}

// RunFull executes all four stages in order and marks insights generated.
func (o *Orchestrator) RunFull(ctx context.Context, state models.ConversationState) (models.ConversationState, error) {
	for _, stage := range []Stage{o.responder, o.extractor, o.classifier, o.summarizer} {
		if err := stage.Run(ctx, &state); err != nil {
			return state, fmt.Errorf("stage %s failed: %w", stage.Name(), err)
		}
	}
	state.InsightsGenerated = true
	return state, nil
}
