// Package voice implements the Twilio telephony webhooks. Speech-to-text
// is Twilio's gather verb; no audio is handled in-process. Transcribed
// speech feeds the same conversational pipeline as text channels.
package voice

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/twilio/twilio-go/twiml"

	"github.com/carebuddy/carebuddy/internal/models"
)

const (
	greeting       = "Hello, this is CareBuddy, your diabetes check-in assistant. How are you feeling today?"
	reprompt       = "I didn't catch that. Could you say it again?"
	farewell       = "Thank you for checking in. Take care, and goodbye."
	failureMessage = "I'm sorry, I'm having trouble right now. Please try calling again later."
)

// goodbyeKeywords end the call when the transcript contains one.
var goodbyeKeywords = []string{"goodbye", "good bye", "bye", "hang up", "that's all", "that is all"}

// ChatRunner runs one conversational turn; satisfied by pipeline.Runner.
type ChatRunner interface {
	Chat(ctx context.Context, sessionID, patientID, message string, specialist models.SpecialistMode, wantInsights bool) (models.ConversationState, error)
}

// SessionEnder removes a conversation session when a call completes.
type SessionEnder interface {
	Delete(id string)
}

// Handler serves the Twilio voice webhook endpoints.
type Handler struct {
	chat       ChatRunner
	sessions   SessionEnder
	processURL string
}

// NewHandler creates a voice webhook handler. processURL is the action URL
// Twilio posts gathered speech to.
func NewHandler(chat ChatRunner, sessions SessionEnder, processURL string) *Handler {
	return &Handler{chat: chat, sessions: sessions, processURL: processURL}
}

// Answer handles the initial call webhook: greet and gather speech.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	slog.Info("voice.Handler.Answer: call answered", "from", r.FormValue("From"))
	h.respondTwiML(w, h.gatherWith(greeting))
}

// Process handles gathered speech: run a pipeline turn and speak the reply,
// then gather again unless the caller said goodbye.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	from := r.FormValue("From")
	speech := strings.TrimSpace(r.FormValue("SpeechResult"))
	if speech == "" {
		h.respondTwiML(w, h.gatherWith(reprompt))
		return
	}
	slog.Info("voice.Handler.Process: speech received", "from", from)

	if isGoodbye(speech) {
		h.endCall(w, from)
		return
	}

	state, err := h.chat.Chat(r.Context(), sessionID(from), "", speech, "", false)
	if err != nil {
		slog.Error("voice.Handler.Process: chat turn failed", "from", from, "error", err)
		h.respondTwiML(w, []twiml.Element{
			&twiml.VoiceSay{Message: failureMessage},
			&twiml.VoiceHangup{},
		})
		return
	}
	h.respondTwiML(w, h.gatherWith(state.Reply))
}

// Status handles call status callbacks, evicting the session when a call
// ends.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	status := r.FormValue("CallStatus")
	from := r.FormValue("From")
	if status == "completed" || status == "failed" || status == "no-answer" || status == "canceled" {
		if h.sessions != nil {
			h.sessions.Delete(sessionID(from))
		}
		slog.Info("voice.Handler.Status: call ended, session evicted", "from", from, "status", status)
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) endCall(w http.ResponseWriter, from string) {
	if h.sessions != nil {
		h.sessions.Delete(sessionID(from))
	}
	h.respondTwiML(w, []twiml.Element{
		&twiml.VoiceSay{Message: farewell},
		&twiml.VoiceHangup{},
	})
}

// gatherWith speaks the message inside a speech gather so the caller's
// next utterance comes back to the process endpoint.
func (h *Handler) gatherWith(message string) []twiml.Element {
	return []twiml.Element{
		&twiml.VoiceGather{
			Input:         "speech",
			Action:        h.processURL,
			Method:        "POST",
			SpeechTimeout: "auto",
			InnerElements: []twiml.Element{
				&twiml.VoiceSay{Message: message},
			},
		},
		&twiml.VoiceSay{Message: farewell},
		&twiml.VoiceHangup{},
	}
}

func (h *Handler) respondTwiML(w http.ResponseWriter, verbs []twiml.Element) {
	doc, err := twiml.Voice(verbs)
	if err != nil {
		slog.Error("voice.Handler: failed to build TwiML", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(doc))
}

// sessionID keys voice conversations separately from SMS ones for the same
// phone number.
func sessionID(from string) string {
	return "voice:" + from
}

func isGoodbye(speech string) bool {
	lowered := strings.ToLower(speech)
	for _, kw := range goodbyeKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
