package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carebuddy/carebuddy/internal/models"
	"github.com/carebuddy/carebuddy/internal/store"
)

// reminderLookahead is the projection window for upcoming medication doses.
const reminderLookahead = time.Hour

// ReminderScheduler projects a care plan's daily medication times into a
// short look-ahead window. It is driven by an external periodic trigger and
// is not self-scheduling.
type ReminderScheduler struct {
	store store.Store
	now   func() time.Time
}

// NewReminderScheduler creates a reminder scheduler.
func NewReminderScheduler(s store.Store) *ReminderScheduler {
	return &ReminderScheduler{store: s, now: time.Now}
}

// Generate creates a reminder for each medication dose time falling
// strictly between now and now plus one hour today, skipping doses that
// already have an active reminder for the same medication on the same
// scheduled minute. Two medications sharing a dose time each get their own
// reminder.
func (r *ReminderScheduler) Generate(ctx context.Context, patientID string) ([]models.Reminder, error) {
	plan, err := r.store.GetCarePlan(patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load care plan: %w", err)
	}
	if plan == nil || len(plan.Medications) == 0 {
		return nil, nil
	}

	now := r.now()
	active, err := r.store.GetReminders(patientID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminders: %w", err)
	}

	var created []models.Reminder
	for _, med := range plan.Medications {
		if !med.StartDate.IsZero() && now.Before(med.StartDate) {
			continue
		}
		for _, ts := range med.Times {
			hour, minute, err := models.ParseClockTime(ts)
			if err != nil {
				slog.Warn("ReminderScheduler.Generate: skipping malformed dose time", "medication", med.Name, "time", ts)
				continue
			}
			scheduled := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
			if !scheduled.After(now) || !scheduled.Before(now.Add(reminderLookahead)) {
				continue
			}
			if reminderExists(active, med.Name, scheduled) {
				continue
			}
			reminder := models.Reminder{
				ReminderID:    uuid.NewString(),
				PatientID:     patientID,
				ReminderType:  "medication",
				Message:       fmt.Sprintf("Time to take %s (%s)", med.Name, med.Dosage),
				ScheduledTime: scheduled,
				Frequency:     "daily",
				Active:        true,
			}
			if err := r.store.CreateReminder(reminder); err != nil {
				return created, fmt.Errorf("failed to persist reminder: %w", err)
			}
			created = append(created, reminder)
			active = append(active, reminder)
			slog.Info("ReminderScheduler.Generate: reminder created", "patientID", patientID, "medication", med.Name, "at", scheduled)
		}
	}
	return created, nil
}

// reminderExists dedups on the anchored medication phrase plus the
// scheduled instant truncated to the minute, so medications sharing a dose
// time stay independent.
func reminderExists(active []models.Reminder, medName string, scheduled time.Time) bool {
	phrase := "Time to take " + medName + " ("
	target := scheduled.Truncate(time.Minute)
	for _, r := range active {
		if !strings.HasPrefix(r.Message, phrase) {
			continue
		}
		if r.ScheduledTime.Local().Truncate(time.Minute).Equal(target) {
			return true
		}
	}
	return false
}
