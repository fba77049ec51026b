package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carebuddy/carebuddy/internal/messaging"
	"github.com/carebuddy/carebuddy/internal/models"
	"github.com/carebuddy/carebuddy/internal/store"
)

// missedDoseGrace is how far past a scheduled dose time a missing "taken"
// log becomes a missed-dose alert.
const missedDoseGrace = 30 * time.Minute

// AlertEngine turns glucose readings and medication logs into persisted
// alerts, notifying the patient for critical severities.
type AlertEngine struct {
	store    store.Store
	notifier messaging.Notifier
	now      func() time.Time
}

// NewAlertEngine creates an alert engine. The notifier may be nil, in which
// case critical alerts persist without a notification attempt.
func NewAlertEngine(s store.Store, notifier messaging.Notifier) *AlertEngine {
	return &AlertEngine{store: s, notifier: notifier, now: time.Now}
}

// CheckGlucose classifies a reading against the patient's care plan targets
// and persists an alert when out of range. Critical severity marks the
// alert doctor-notified and fires the notifier best-effort; a notification
// failure never rolls back alert creation.
func (e *AlertEngine) CheckGlucose(ctx context.Context, patientID string, reading float64, readingType models.ReadingType) (*models.Alert, error) {
	targets := models.DefaultGlucoseTarget()
	plan, err := e.store.GetCarePlan(patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load care plan: %w", err)
	}
	if plan != nil {
		targets = plan.GlucoseTargets
	}

	c := Classify(reading, readingType, targets)
	if c.Direction == DirectionInRange {
		return nil, nil
	}

	alert := models.Alert{
		AlertID:   uuid.NewString(),
		PatientID: patientID,
		AlertType: glucoseAlertType(c),
		Severity:  c.Severity,
		Message:   glucoseAlertMessage(reading, readingType, c.Direction, targets),
		Timestamp: e.now(),
	}
	if c.Severity == models.SeverityCritical {
		alert.DoctorNotified = true
	}
	if err := e.store.CreateAlert(alert); err != nil {
		return nil, fmt.Errorf("failed to persist alert: %w", err)
	}
	slog.Info("AlertEngine.CheckGlucose: alert created", "patientID", patientID, "severity", alert.Severity, "type", alert.AlertType)

	if c.Severity == models.SeverityCritical {
		e.notifyCritical(ctx, patientID, reading)
	}
	return &alert, nil
}

func (e *AlertEngine) notifyCritical(ctx context.Context, patientID string, reading float64) {
	if e.notifier == nil {
		return
	}
	patient, err := e.store.GetPatient(patientID)
	if err != nil || patient == nil || patient.Phone == "" {
		slog.Warn("AlertEngine.notifyCritical: no reachable phone for patient", "patientID", patientID, "error", err)
		return
	}
	body := messaging.CriticalGlucoseSMS(patient.Name, reading)
	if err := e.notifier.Notify(ctx, messaging.ChannelSMS, patient.Phone, body); err != nil {
		slog.Error("AlertEngine.notifyCritical: notification failed", "patientID", patientID, "error", err)
	}
}

func glucoseAlertType(c Classification) models.AlertType {
	if c.Severity == models.SeverityCritical {
		return models.AlertCritical
	}
	if c.Direction == DirectionLow {
		return models.AlertLowGlucose
	}
	return models.AlertHighGlucose
}

func glucoseAlertMessage(reading float64, readingType models.ReadingType, dir Direction, targets models.GlucoseTarget) string {
	label := "glucose"
	if readingType == models.ReadingFasting {
		label = "fasting glucose"
	}
	prefix := "High"
	if dir == DirectionLow {
		prefix = "Low"
	}
	min, max := bandFor(readingType, targets)
	return fmt.Sprintf("%s %s: %g mg/dL (target: %d-%d)", prefix, label, reading, min, max)
}

// CheckMissedDoses scans today's medication schedule and raises one
// medium-severity alert per medication whose dose time passed more than the
// grace period ago without a "taken" log. Re-running within the same day is
// idempotent: an existing unacknowledged missed-dose alert for the same
// medication and day suppresses a duplicate.
func (e *AlertEngine) CheckMissedDoses(ctx context.Context, patientID string) ([]models.Alert, error) {
	plan, err := e.store.GetCarePlan(patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load care plan: %w", err)
	}
	if plan == nil || len(plan.Medications) == 0 {
		return nil, nil
	}

	now := e.now()
	takenLogs, err := e.store.GetMedicationLogs(patientID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to load medication logs: %w", err)
	}
	openAlerts, err := e.store.GetAlerts(patientID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts: %w", err)
	}

	var created []models.Alert
	for _, med := range plan.Medications {
		if !med.StartDate.IsZero() && now.Before(med.StartDate) {
			continue
		}
		for _, ts := range med.Times {
			hour, minute, err := models.ParseClockTime(ts)
			if err != nil {
				slog.Warn("AlertEngine.CheckMissedDoses: skipping malformed dose time", "medication", med.Name, "time", ts)
				continue
			}
			scheduled := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
			if now.Sub(scheduled) <= missedDoseGrace {
				continue
			}
			if doseTaken(takenLogs, med.Name, scheduled) {
				continue
			}
			if missedAlertExists(openAlerts, med.Name, now) {
				continue
			}
			alert := models.Alert{
				AlertID:   uuid.NewString(),
				PatientID: patientID,
				AlertType: models.AlertMissedDose,
				Severity:  models.SeverityMedium,
				Message:   fmt.Sprintf("Missed %s dose scheduled for %s", med.Name, ts),
				Timestamp: now,
			}
			if err := e.store.CreateAlert(alert); err != nil {
				return created, fmt.Errorf("failed to persist missed-dose alert: %w", err)
			}
			created = append(created, alert)
			openAlerts = append(openAlerts, alert)
			slog.Info("AlertEngine.CheckMissedDoses: alert created", "patientID", patientID, "medication", med.Name, "time", ts)
		}
	}
	return created, nil
}

// doseTaken reports whether a taken log for the medication exists on the
// scheduled dose's calendar day.
func doseTaken(logs []models.MedicationLog, medName string, scheduled time.Time) bool {
	for _, l := range logs {
		if !l.Taken || !strings.EqualFold(l.MedicationName, medName) {
			continue
		}
		if sameDay(l.Timestamp, scheduled) {
			return true
		}
	}
	return false
}

// missedAlertExists dedups on the anchored medication phrase plus the alert
// day, so two medications sharing a name substring cannot collide.
func missedAlertExists(alerts []models.Alert, medName string, now time.Time) bool {
	phrase := "Missed " + medName + " dose"
	for _, a := range alerts {
		if a.AlertType != models.AlertMissedDose || a.Acknowledged {
			continue
		}
		if strings.HasPrefix(a.Message, phrase) && sameDay(a.Timestamp, now) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
