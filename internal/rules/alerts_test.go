package rules

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/carebuddy/carebuddy/internal/messaging"
	"github.com/carebuddy/carebuddy/internal/models"
	"github.com/carebuddy/carebuddy/internal/store"
)

// mockNotifier implements messaging.Notifier for testing.
type mockNotifier struct {
	notified []string
	payloads []string
	err      error
}

func (m *mockNotifier) Notify(ctx context.Context, channel messaging.Channel, destination, payload string) error {
	if m.err != nil {
		return m.err
	}
	m.notified = append(m.notified, destination)
	m.payloads = append(m.payloads, payload)
	return nil
}

func seedPatientWithPlan(t *testing.T, s store.Store, targets models.GlucoseTarget) {
	t.Helper()
	if err := s.CreatePatient(models.Patient{PatientID: "p1", Name: "Alice", Phone: "+15551234567", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("seed patient failed: %v", err)
	}
	plan := models.CarePlan{PatientID: "p1", DoctorID: "d1", CreatedAt: time.Now(), GlucoseTargets: targets}
	if err := s.SaveCarePlan(plan); err != nil {
		t.Fatalf("seed care plan failed: %v", err)
	}
}

func TestCheckGlucose_InRangeNoAlert(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPatientWithPlan(t, s, models.DefaultGlucoseTarget())
	e := NewAlertEngine(s, &mockNotifier{})

	alert, err := e.CheckGlucose(context.Background(), "p1", 100, models.ReadingFasting)
	if err != nil {
		t.Fatalf("CheckGlucose failed: %v", err)
	}
	if alert != nil {
		t.Errorf("in-range reading should produce no alert, got %+v", alert)
	}
	persisted, _ := s.GetAlerts("p1", false)
	if len(persisted) != 0 {
		t.Errorf("expected no persisted alerts, got %d", len(persisted))
	}
}

func TestCheckGlucose_LowFastingAlert(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPatientWithPlan(t, s, models.GlucoseTarget{FastingMin: 80, FastingMax: 130, PostMealMin: 80, PostMealMax: 180})
	notifier := &mockNotifier{}
	e := NewAlertEngine(s, notifier)

	alert, err := e.CheckGlucose(context.Background(), "p1", 60, models.ReadingFasting)
	if err != nil {
		t.Fatalf("CheckGlucose failed: %v", err)
	}
	if alert == nil {
		t.Fatal("expected an alert for fasting reading of 60")
	}
	if alert.Severity != models.SeverityHigh {
		t.Errorf("expected high severity, got %s", alert.Severity)
	}
	if alert.AlertType != models.AlertLowGlucose {
		t.Errorf("expected low_glucose alert type, got %s", alert.AlertType)
	}
	if !strings.Contains(alert.Message, "60") || !strings.Contains(alert.Message, "80-130") {
		t.Errorf("expected message to embed reading and band, got %q", alert.Message)
	}
	if alert.DoctorNotified {
		t.Error("high severity should not mark doctor notified")
	}
	if len(notifier.notified) != 0 {
		t.Errorf("high severity should not notify, got %v", notifier.notified)
	}
}

func TestCheckGlucose_CriticalNotifies(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPatientWithPlan(t, s, models.GlucoseTarget{FastingMin: 80, FastingMax: 130, PostMealMin: 80, PostMealMax: 180})
	notifier := &mockNotifier{}
	e := NewAlertEngine(s, notifier)

	alert, err := e.CheckGlucose(context.Background(), "p1", 310, models.ReadingPostMeal)
	if err != nil {
		t.Fatalf("CheckGlucose failed: %v", err)
	}
	if alert == nil || alert.Severity != models.SeverityCritical {
		t.Fatalf("expected critical alert, got %+v", alert)
	}
	if !alert.DoctorNotified {
		t.Error("critical alert should mark doctor notified")
	}
	if len(notifier.notified) != 1 || notifier.notified[0] != "+15551234567" {
		t.Errorf("expected one notification to the patient phone, got %v", notifier.notified)
	}
	if !strings.Contains(notifier.payloads[0], "dangerously high") {
		t.Errorf("unexpected notification body: %s", notifier.payloads[0])
	}
}

func TestCheckGlucose_NotificationFailureKeepsAlert(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPatientWithPlan(t, s, models.DefaultGlucoseTarget())
	e := NewAlertEngine(s, &mockNotifier{err: context.DeadlineExceeded})

	alert, err := e.CheckGlucose(context.Background(), "p1", 65, models.ReadingPostMeal)
	if err != nil {
		t.Fatalf("notification failure must not fail CheckGlucose: %v", err)
	}
	if alert == nil || !alert.DoctorNotified {
		t.Fatalf("expected persisted critical alert, got %+v", alert)
	}
	persisted, _ := s.GetAlerts("p1", true)
	if len(persisted) != 1 {
		t.Errorf("expected alert to persist despite notification failure, got %d", len(persisted))
	}
}

func TestCheckGlucose_DefaultTargetsWithoutPlan(t *testing.T) {
	s := store.NewInMemoryStore()
	e := NewAlertEngine(s, nil)

	// default fasting band is 80-130
	alert, err := e.CheckGlucose(context.Background(), "p1", 140, models.ReadingFasting)
	if err != nil {
		t.Fatalf("CheckGlucose failed: %v", err)
	}
	if alert == nil || alert.AlertType != models.AlertHighGlucose {
		t.Errorf("expected high_glucose alert against default targets, got %+v", alert)
	}
}

func TestCheckMissedDoses_GraceAndDedup(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPatientWithPlan(t, s, models.DefaultGlucoseTarget())
	plan, _ := s.GetCarePlan("p1")
	plan.Medications = []models.Medication{{Name: "Metformin", Dosage: "500mg", Times: []string{"08:00"}}}
	s.SaveCarePlan(*plan)

	e := NewAlertEngine(s, nil)
	e.now = func() time.Time {
		return time.Date(2026, 8, 31, 9, 0, 0, 0, time.Local)
	}

	first, err := e.CheckMissedDoses(context.Background(), "p1")
	if err != nil {
		t.Fatalf("CheckMissedDoses failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 missed-dose alert, got %d", len(first))
	}
	if first[0].Severity != models.SeverityMedium || first[0].AlertType != models.AlertMissedDose {
		t.Errorf("unexpected alert: %+v", first[0])
	}
	if !strings.Contains(first[0].Message, "Metformin") || !strings.Contains(first[0].Message, "08:00") {
		t.Errorf("unexpected message: %q", first[0].Message)
	}

	// second run the same day must not duplicate
	second, err := e.CheckMissedDoses(context.Background(), "p1")
	if err != nil {
		t.Fatalf("second CheckMissedDoses failed: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected dedup to suppress duplicates, got %d new alerts", len(second))
	}
	open, _ := s.GetAlerts("p1", true)
	if len(open) != 1 {
		t.Errorf("expected exactly one unacknowledged alert, got %d", len(open))
	}
}

func TestCheckMissedDoses_WithinGraceNoAlert(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPatientWithPlan(t, s, models.DefaultGlucoseTarget())
	plan, _ := s.GetCarePlan("p1")
	plan.Medications = []models.Medication{{Name: "Metformin", Times: []string{"08:00"}}}
	s.SaveCarePlan(*plan)

	e := NewAlertEngine(s, nil)
	e.now = func() time.Time {
		return time.Date(2026, 8, 31, 8, 20, 0, 0, time.Local)
	}
	alerts, err := e.CheckMissedDoses(context.Background(), "p1")
	if err != nil {
		t.Fatalf("CheckMissedDoses failed: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("dose inside the grace period should not alert, got %d", len(alerts))
	}
}

func TestCheckMissedDoses_TakenLogSuppresses(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPatientWithPlan(t, s, models.DefaultGlucoseTarget())
	plan, _ := s.GetCarePlan("p1")
	plan.Medications = []models.Medication{{Name: "Metformin", Times: []string{"08:00"}}}
	s.SaveCarePlan(*plan)

	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)
	s.AddMedicationLog(models.MedicationLog{LogID: "m1", PatientID: "p1", MedicationName: "Metformin", Taken: true, Timestamp: now.Add(-90 * time.Minute)})

	e := NewAlertEngine(s, nil)
	e.now = func() time.Time { return now }
	alerts, err := e.CheckMissedDoses(context.Background(), "p1")
	if err != nil {
		t.Fatalf("CheckMissedDoses failed: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("taken dose should not alert, got %d", len(alerts))
	}
}

func TestCheckMissedDoses_SharedNamePrefix(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPatientWithPlan(t, s, models.DefaultGlucoseTarget())
	plan, _ := s.GetCarePlan("p1")
	plan.Medications = []models.Medication{
		{Name: "Insulin", Times: []string{"08:00"}},
		{Name: "Insulin Glargine", Times: []string{"08:00"}},
	}
	s.SaveCarePlan(*plan)

	e := NewAlertEngine(s, nil)
	e.now = func() time.Time {
		return time.Date(2026, 8, 31, 9, 0, 0, 0, time.Local)
	}
	alerts, err := e.CheckMissedDoses(context.Background(), "p1")
	if err != nil {
		t.Fatalf("CheckMissedDoses failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Errorf("medications sharing a name prefix must alert independently, got %d", len(alerts))
	}
}
