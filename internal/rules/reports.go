package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/carebuddy/carebuddy/internal/models"
	"github.com/carebuddy/carebuddy/internal/store"
)

const (
	weeklyWindowDays  = 7
	monthlyWindowDays = 30
)

// Report is a windowed aggregate of a patient's logs, alerts, and adherence.
type Report struct {
	PatientID       string                         `json:"patient_id"`
	ReportType      string                         `json:"report_type"` // weekly or monthly
	WindowDays      int                            `json:"window_days"`
	GeneratedAt     time.Time                      `json:"generated_at"`
	AvgGlucose      *float64                       `json:"avg_glucose"`
	MinGlucose      *float64                       `json:"min_glucose"`
	MaxGlucose      *float64                       `json:"max_glucose"`
	TimeInRange     TimeInRange                    `json:"time_in_range"`
	Adherence       AdherenceResult                `json:"adherence"`
	ActivityMinutes int                            `json:"activity_minutes"`
	ActivityGoal    int                            `json:"activity_goal,omitempty"`
	AlertCounts     map[models.AlertSeverity]int   `json:"alert_counts"`
	Patterns        []string                       `json:"patterns,omitempty"`
	Summary         string                         `json:"summary,omitempty"`
}

// ReportBuilder composes adherence, time-in-range, and pattern detection
// into weekly and monthly reports.
type ReportBuilder struct {
	store store.Store
	now   func() time.Time
}

// NewReportBuilder creates a report builder.
func NewReportBuilder(s store.Store) *ReportBuilder {
	return &ReportBuilder{store: s, now: time.Now}
}

// Weekly builds a 7-day report.
func (b *ReportBuilder) Weekly(patientID string) (*Report, error) {
	return b.build(patientID, "weekly", weeklyWindowDays, false)
}

// Monthly builds a 30-day report with pattern findings and a narrative
// summary.
func (b *ReportBuilder) Monthly(patientID string) (*Report, error) {
	return b.build(patientID, "monthly", monthlyWindowDays, true)
}

// TimeInRangeFor computes time-in-range for an arbitrary window, using care
// plan targets when present and the default targets otherwise.
func (b *ReportBuilder) TimeInRangeFor(patientID string, days int) (*TimeInRange, error) {
	targets, err := b.targetsFor(patientID)
	if err != nil {
		return nil, err
	}
	logs, err := b.store.GetGlucoseLogs(patientID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to load glucose logs: %w", err)
	}
	tir := ComputeTimeInRange(logs, targets)
	return &tir, nil
}

func (b *ReportBuilder) targetsFor(patientID string) (models.GlucoseTarget, error) {
	plan, err := b.store.GetCarePlan(patientID)
	if err != nil {
		return models.GlucoseTarget{}, fmt.Errorf("failed to load care plan: %w", err)
	}
	if plan == nil {
		return models.DefaultGlucoseTarget(), nil
	}
	return plan.GlucoseTargets, nil
}

func (b *ReportBuilder) build(patientID, reportType string, days int, withPatterns bool) (*Report, error) {
	plan, err := b.store.GetCarePlan(patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load care plan: %w", err)
	}
	targets := models.DefaultGlucoseTarget()
	if plan != nil {
		targets = plan.GlucoseTargets
	}

	glucoseLogs, err := b.store.GetGlucoseLogs(patientID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to load glucose logs: %w", err)
	}
	medLogs, err := b.store.GetMedicationLogs(patientID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to load medication logs: %w", err)
	}
	activityLogs, err := b.store.GetActivityLogs(patientID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity logs: %w", err)
	}
	alerts, err := b.store.GetAlerts(patientID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts: %w", err)
	}

	report := &Report{
		PatientID:   patientID,
		ReportType:  reportType,
		WindowDays:  days,
		GeneratedAt: b.now(),
		TimeInRange: ComputeTimeInRange(glucoseLogs, targets),
		Adherence:   Adherence(plan, medLogs, days),
		AlertCounts: make(map[models.AlertSeverity]int),
	}

	if len(glucoseLogs) > 0 {
		sum, min, max := glucoseLogs[0].Reading, glucoseLogs[0].Reading, glucoseLogs[0].Reading
		for _, l := range glucoseLogs[1:] {
			sum += l.Reading
			if l.Reading < min {
				min = l.Reading
			}
			if l.Reading > max {
				max = l.Reading
			}
		}
		avg := sum / float64(len(glucoseLogs))
		report.AvgGlucose = &avg
		report.MinGlucose = &min
		report.MaxGlucose = &max
	}

	for _, l := range activityLogs {
		report.ActivityMinutes += l.DurationMinutes
	}
	if plan != nil {
		report.ActivityGoal = plan.HealthGoals.ActivityMinutesPerWeek * days / weeklyWindowDays
	}

	cutoff := report.GeneratedAt.AddDate(0, 0, -days)
	for _, a := range alerts {
		if a.Timestamp.Before(cutoff) {
			continue
		}
		report.AlertCounts[a.Severity]++
	}

	if withPatterns {
		patterns := DetectPatterns(glucoseLogs, targets)
		report.Patterns = patterns.Findings
		report.Summary = narrativeSummary(report, patterns)
	}
	return report, nil
}

// narrativeSummary folds the monthly aggregates into a short prose string.
func narrativeSummary(r *Report, patterns PatternSummary) string {
	var b strings.Builder
	if r.TimeInRange.Percentage != nil {
		fmt.Fprintf(&b, "Over the last %d days, %0.1f%% of %d glucose readings were in range.", r.WindowDays, *r.TimeInRange.Percentage, r.TimeInRange.Total)
	} else {
		fmt.Fprintf(&b, "No glucose readings were logged in the last %d days.", r.WindowDays)
	}
	if r.Adherence.Expected > 0 {
		fmt.Fprintf(&b, " Medication adherence was %0.1f%% (%d of %d doses).", r.Adherence.Rate, r.Adherence.Taken, r.Adherence.Expected)
	}
	if r.ActivityMinutes > 0 {
		fmt.Fprintf(&b, " Total activity: %d minutes.", r.ActivityMinutes)
	}
	for _, f := range patterns.Findings {
		b.WriteString(" ")
		b.WriteString(f)
		b.WriteString(".")
	}
	return b.String()
}
