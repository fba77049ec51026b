package messaging

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/twilio/twilio-go/twiml"
)

// ChatFunc runs one conversational turn for the session identified by the
// sender's phone number and returns the reply text.
type ChatFunc func(ctx context.Context, sessionID, message string) (string, error)

// WebhookHandler maps inbound Twilio SMS webhooks onto pipeline runs keyed
// by phone number and replies inline with TwiML.
type WebhookHandler struct {
	chat ChatFunc
}

// NewWebhookHandler creates an inbound SMS webhook handler.
func NewWebhookHandler(chat ChatFunc) *WebhookHandler {
	return &WebhookHandler{chat: chat}
}

// ServeHTTP handles POST callbacks from Twilio for inbound messages.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Error("WebhookHandler.ServeHTTP: failed to parse form", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	from := r.FormValue("From")
	body := r.FormValue("Body")
	if from == "" || body == "" {
		http.Error(w, "missing From or Body", http.StatusBadRequest)
		return
	}
	slog.Info("WebhookHandler.ServeHTTP: inbound SMS", "from", from)

	reply, err := h.chat(r.Context(), from, body)
	if err != nil {
		slog.Error("WebhookHandler.ServeHTTP: chat turn failed", "from", from, "error", err)
		reply = "Sorry, I couldn't process your message right now. Please try again in a moment."
	}

	doc, err := twiml.Messages([]twiml.Element{&twiml.MessagingMessage{Body: reply}})
	if err != nil {
		slog.Error("WebhookHandler.ServeHTTP: failed to build TwiML", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(doc))
}
