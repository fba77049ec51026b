package rules

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/carebuddy/carebuddy/internal/models"
	"github.com/carebuddy/carebuddy/internal/store"
)

func seedPlanWithTimes(t *testing.T, s store.Store, times ...string) {
	t.Helper()
	plan := models.CarePlan{
		PatientID:      "p1",
		DoctorID:       "d1",
		CreatedAt:      time.Now(),
		Medications:    []models.Medication{{Name: "Metformin", Dosage: "500mg", Times: times}},
		GlucoseTargets: models.DefaultGlucoseTarget(),
	}
	if err := s.SaveCarePlan(plan); err != nil {
		t.Fatalf("seed care plan failed: %v", err)
	}
}

func TestGenerate_WithinLookahead(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPlanWithTimes(t, s, "08:30", "12:00", "20:00")

	r := NewReminderScheduler(s)
	r.now = func() time.Time {
		return time.Date(2026, 8, 31, 8, 0, 0, 0, time.Local)
	}
	created, err := r.Generate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	// only 08:30 is strictly inside (08:00, 09:00)
	if len(created) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(created))
	}
	got := created[0]
	if got.ReminderType != "medication" || got.Frequency != "daily" || !got.Active {
		t.Errorf("unexpected reminder: %+v", got)
	}
	if !strings.Contains(got.Message, "Metformin") || !strings.Contains(got.Message, "500mg") {
		t.Errorf("unexpected message: %q", got.Message)
	}
	if got.ScheduledTime.Hour() != 8 || got.ScheduledTime.Minute() != 30 {
		t.Errorf("unexpected scheduled time: %v", got.ScheduledTime)
	}
}

func TestGenerate_BoundariesExcluded(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPlanWithTimes(t, s, "08:00", "09:00")

	r := NewReminderScheduler(s)
	r.now = func() time.Time {
		return time.Date(2026, 8, 31, 8, 0, 0, 0, time.Local)
	}
	created, err := r.Generate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("window boundaries are exclusive, got %d reminders", len(created))
	}
}

func TestGenerate_DedupOnScheduledMinute(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPlanWithTimes(t, s, "08:30")

	r := NewReminderScheduler(s)
	r.now = func() time.Time {
		return time.Date(2026, 8, 31, 8, 0, 0, 0, time.Local)
	}
	first, err := r.Generate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(first))
	}
	second, err := r.Generate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected dedup against active reminders, got %d", len(second))
	}

	// a deactivated reminder no longer blocks regeneration
	if err := s.DeactivateReminder("p1", first[0].ReminderID); err != nil {
		t.Fatalf("DeactivateReminder failed: %v", err)
	}
	third, err := r.Generate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("third Generate failed: %v", err)
	}
	if len(third) != 1 {
		t.Errorf("expected regeneration after deactivation, got %d", len(third))
	}
}

func TestGenerate_SharedDoseTimeGetsReminderPerMedication(t *testing.T) {
	s := store.NewInMemoryStore()
	plan := models.CarePlan{
		PatientID: "p1",
		DoctorID:  "d1",
		CreatedAt: time.Now(),
		Medications: []models.Medication{
			{Name: "Metformin", Dosage: "500mg", Times: []string{"08:30"}},
			{Name: "Glipizide", Dosage: "5mg", Times: []string{"08:30"}},
		},
		GlucoseTargets: models.DefaultGlucoseTarget(),
	}
	if err := s.SaveCarePlan(plan); err != nil {
		t.Fatalf("seed care plan failed: %v", err)
	}

	r := NewReminderScheduler(s)
	r.now = func() time.Time {
		return time.Date(2026, 8, 31, 8, 0, 0, 0, time.Local)
	}
	created, err := r.Generate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected one reminder per medication on a shared dose time, got %d", len(created))
	}
	messages := created[0].Message + "\n" + created[1].Message
	if !strings.Contains(messages, "Metformin") || !strings.Contains(messages, "Glipizide") {
		t.Errorf("expected reminders for both medications, got %q", messages)
	}

	// re-running still creates nothing for either medication
	second, err := r.Generate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected per-medication dedup on re-run, got %d", len(second))
	}
}

func TestGenerate_NoPlan(t *testing.T) {
	s := store.NewInMemoryStore()
	r := NewReminderScheduler(s)
	created, err := r.Generate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("expected no reminders without a care plan, got %d", len(created))
	}
}
