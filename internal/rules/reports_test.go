package rules

import (
	"testing"
	"time"

	"github.com/carebuddy/carebuddy/internal/models"
	"github.com/carebuddy/carebuddy/internal/store"
)

func seedReportData(t *testing.T, s store.Store) {
	t.Helper()
	plan := models.CarePlan{
		PatientID:      "p1",
		DoctorID:       "d1",
		CreatedAt:      time.Now().AddDate(0, 0, -40),
		Medications:    []models.Medication{{Name: "Metformin", Times: []string{"08:00"}}},
		GlucoseTargets: models.DefaultGlucoseTarget(),
		HealthGoals:    models.HealthGoals{ActivityMinutesPerWeek: 140},
	}
	if err := s.SaveCarePlan(plan); err != nil {
		t.Fatalf("seed care plan failed: %v", err)
	}
	now := time.Now()
	s.AddGlucoseLog(models.GlucoseLog{LogID: "g1", PatientID: "p1", Reading: 100, ReadingType: models.ReadingFasting, Timestamp: now.AddDate(0, 0, -1)})
	s.AddGlucoseLog(models.GlucoseLog{LogID: "g2", PatientID: "p1", Reading: 200, ReadingType: models.ReadingPostMeal, Timestamp: now.AddDate(0, 0, -2)})
	s.AddGlucoseLog(models.GlucoseLog{LogID: "g3", PatientID: "p1", Reading: 90, ReadingType: models.ReadingFasting, Timestamp: now.AddDate(0, 0, -20)})
	s.AddMedicationLog(models.MedicationLog{LogID: "m1", PatientID: "p1", MedicationName: "Metformin", Taken: true, Timestamp: now.AddDate(0, 0, -1)})
	s.AddActivityLog(models.ActivityLog{LogID: "a1", PatientID: "p1", ActivityType: "walking", DurationMinutes: 30, Timestamp: now.AddDate(0, 0, -3)})
	s.CreateAlert(models.Alert{AlertID: "al1", PatientID: "p1", AlertType: models.AlertHighGlucose, Severity: models.SeverityHigh, Message: "m", Timestamp: now.AddDate(0, 0, -1)})
}

func TestWeeklyReport(t *testing.T) {
	s := store.NewInMemoryStore()
	seedReportData(t, s)
	b := NewReportBuilder(s)

	report, err := b.Weekly("p1")
	if err != nil {
		t.Fatalf("Weekly failed: %v", err)
	}
	if report.ReportType != "weekly" || report.WindowDays != 7 {
		t.Errorf("unexpected report header: %+v", report)
	}
	// only g1 and g2 fall inside the 7-day window
	if report.TimeInRange.Total != 2 {
		t.Errorf("expected 2 readings in window, got %d", report.TimeInRange.Total)
	}
	if report.AvgGlucose == nil || *report.AvgGlucose != 150 {
		t.Errorf("expected average 150, got %v", report.AvgGlucose)
	}
	if report.MinGlucose == nil || *report.MinGlucose != 100 || *report.MaxGlucose != 200 {
		t.Errorf("unexpected min/max: %v %v", report.MinGlucose, report.MaxGlucose)
	}
	if report.Adherence.Expected != 7 || report.Adherence.Taken != 1 {
		t.Errorf("unexpected adherence: %+v", report.Adherence)
	}
	if report.ActivityMinutes != 30 || report.ActivityGoal != 140 {
		t.Errorf("unexpected activity: %d vs goal %d", report.ActivityMinutes, report.ActivityGoal)
	}
	if report.AlertCounts[models.SeverityHigh] != 1 {
		t.Errorf("expected 1 high alert, got %+v", report.AlertCounts)
	}
	if len(report.Patterns) != 0 || report.Summary != "" {
		t.Errorf("weekly report should not carry patterns or summary, got %+v", report)
	}
}

func TestMonthlyReport_PatternsAndSummary(t *testing.T) {
	s := store.NewInMemoryStore()
	seedReportData(t, s)
	b := NewReportBuilder(s)

	report, err := b.Monthly("p1")
	if err != nil {
		t.Fatalf("Monthly failed: %v", err)
	}
	if report.ReportType != "monthly" || report.WindowDays != 30 {
		t.Errorf("unexpected report header: %+v", report)
	}
	if report.TimeInRange.Total != 3 {
		t.Errorf("expected 3 readings in the 30-day window, got %d", report.TimeInRange.Total)
	}
	if report.Summary == "" {
		t.Error("monthly report should carry a narrative summary")
	}
	if report.Patterns == nil {
		t.Error("monthly report should carry a patterns slice")
	}
}

func TestTimeInRangeFor_NoLogs(t *testing.T) {
	s := store.NewInMemoryStore()
	b := NewReportBuilder(s)
	tir, err := b.TimeInRangeFor("p1", 7)
	if err != nil {
		t.Fatalf("TimeInRangeFor failed: %v", err)
	}
	if tir.Percentage != nil {
		t.Errorf("expected nil percentage with no data, got %v", *tir.Percentage)
	}
}
