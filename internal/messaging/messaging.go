// Package messaging provides the outbound notification capability and the
// inbound SMS webhook. SMS delivery goes through Twilio; notification
// failures are always best-effort for callers.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
)

// Channel selects the delivery mechanism for a notification.
type Channel string

const (
	ChannelSMS  Channel = "sms"
	ChannelCall Channel = "call"
)

// Notifier is the fire-and-forget side channel for critical alerts and
// reminders. A delivery failure must never fail the caller's primary
// operation; callers log and move on.
type Notifier interface {
	Notify(ctx context.Context, channel Channel, destination, payload string) error
}

// SMSSender sends a single text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Service dispatches notifications onto the configured transports.
type Service struct {
	sender SMSSender
}

// NewService creates a notification service backed by the given SMS sender.
func NewService(sender SMSSender) *Service {
	return &Service{sender: sender}
}

// Notify delivers the payload on the requested channel. Voice calls are
// inbound-only (patients dial in), so the call channel is rejected here.
func (s *Service) Notify(ctx context.Context, channel Channel, destination, payload string) error {
	switch channel {
	case ChannelSMS:
		if err := s.sender.SendSMS(ctx, destination, payload); err != nil {
			slog.Error("Service.Notify: SMS delivery failed", "to", destination, "error", err)
			return fmt.Errorf("failed to send SMS: %w", err)
		}
		slog.Debug("Service.Notify: SMS sent", "to", destination)
		return nil
	case ChannelCall:
		return fmt.Errorf("call channel is not supported for outbound notifications")
	default:
		return fmt.Errorf("unknown notification channel: %s", channel)
	}
}

// MedicationReminderSMS builds the SMS body for a manually triggered
// medication reminder.
func MedicationReminderSMS(medicationName, dosage, timeStr string) string {
	return fmt.Sprintf("Medication Reminder\n\nTime to take: %s (%s)\nScheduled time: %s\n\nPlease take your medication as prescribed.", medicationName, dosage, timeStr)
}

// glucoseCheckBodies maps check-type tags to reminder texts. Unknown tags
// fall back to routine.
var glucoseCheckBodies = map[string]string{
	"routine":        "Time to check your blood sugar. Please take a reading now.",
	"before_driving": "Important: Check your blood sugar before driving. Ensure it's above 100 mg/dL.",
	"before_meal":    "Check your blood sugar before your meal.",
	"bedtime":        "Bedtime glucose check: Please take a reading before going to sleep.",
}

// GlucoseCheckSMS builds the SMS body for a glucose-check reminder.
func GlucoseCheckSMS(checkType string) string {
	if body, ok := glucoseCheckBodies[checkType]; ok {
		return body
	}
	return glucoseCheckBodies["routine"]
}

// CriticalGlucoseSMS builds the SMS body for a critical glucose alert.
func CriticalGlucoseSMS(patientName string, reading float64) string {
	if reading < 70 {
		return fmt.Sprintf("URGENT: %s, your glucose reading of %g mg/dL is dangerously low. Take 15g of fast-acting carbs now and re-check in 15 minutes. If symptoms worsen, call emergency services.", patientName, reading)
	}
	if reading > 300 {
		return fmt.Sprintf("URGENT: %s, your glucose reading of %g mg/dL is dangerously high. Drink water, avoid carbs, and contact your doctor right away.", patientName, reading)
	}
	return fmt.Sprintf("ALERT: %s, your glucose reading of %g mg/dL is outside your target range. Please follow your care plan and contact your care team if this persists.", patientName, reading)
}
