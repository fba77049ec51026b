// Package models defines the core data structures for CareBuddy.
//
// It includes the care plan, patient log, alert, and reminder types shared
// across the rules engine, pipeline, storage, and API modules.
package models

import (
	"errors"
	"fmt"
	"time"
)

// ReadingType identifies the context of a glucose reading.
type ReadingType string

const (
	ReadingFasting  ReadingType = "fasting"
	ReadingPostMeal ReadingType = "post_meal"
	ReadingRandom   ReadingType = "random"
	ReadingBedtime  ReadingType = "bedtime"
)

// IsValidReadingType checks if the given reading type is supported.
func IsValidReadingType(rt ReadingType) bool {
	switch rt {
	case ReadingFasting, ReadingPostMeal, ReadingRandom, ReadingBedtime:
		return true
	default:
		return false
	}
}

// AlertType classifies what condition an alert describes.
type AlertType string

const (
	AlertMissedDose  AlertType = "missed_dose"
	AlertHighGlucose AlertType = "high_glucose"
	AlertLowGlucose  AlertType = "low_glucose"
	AlertCritical    AlertType = "critical"
	AlertReminder    AlertType = "reminder"
)

// AlertSeverity grades how urgent an alert is.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Error variables for better error handling and testability
var (
	ErrMissingPatientID      = errors.New("patient ID cannot be empty")
	ErrMissingDoctorID       = errors.New("doctor ID cannot be empty")
	ErrMissingReading        = errors.New("glucose reading is required")
	ErrInvalidReadingType    = errors.New("invalid glucose reading type")
	ErrMissingMedicationName = errors.New("medication name cannot be empty")
	ErrInvalidGlucoseTargets = errors.New("glucose target minimum must be below maximum")
	ErrInvalidDoseTime       = errors.New("medication time must be in HH:MM format")
	ErrMissingDuration       = errors.New("activity duration is required")
	ErrMissingDescription    = errors.New("meal description cannot be empty")
)

// Medication is one prescribed medication in a care plan. Each entry in
// Times defines one expected dose per calendar day from StartDate onward.
type Medication struct {
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage"`
	Frequency string    `json:"frequency"` // e.g. "twice daily", "before meals"
	Times     []string  `json:"times"`     // "HH:MM" local-time strings
	StartDate time.Time `json:"start_date"`
	Notes     string    `json:"notes,omitempty"`
}

// Validate checks the medication name and the format of every dose time.
func (m *Medication) Validate() error {
	if m.Name == "" {
		return ErrMissingMedicationName
	}
	for _, t := range m.Times {
		if _, _, err := ParseClockTime(t); err != nil {
			return fmt.Errorf("medication %s: %w", m.Name, err)
		}
	}
	return nil
}

// ParseClockTime parses an "HH:MM" local-time string into hour and minute.
func ParseClockTime(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, ErrInvalidDoseTime
	}
	if _, err := fmt.Sscanf(s, "%02d:%02d", &hour, &minute); err != nil {
		return 0, 0, ErrInvalidDoseTime
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, ErrInvalidDoseTime
	}
	return hour, minute, nil
}

// GlucoseTarget holds the target bands for glucose readings, in mg/dL
// except the HbA1c target (percentage).
type GlucoseTarget struct {
	FastingMin  int     `json:"fasting_min"`
	FastingMax  int     `json:"fasting_max"`
	PostMealMin int     `json:"post_meal_min"`
	PostMealMax int     `json:"post_meal_max"`
	HbA1cTarget float64 `json:"hba1c_target,omitempty"`
}

// DefaultGlucoseTarget returns the standard adult type 2 diabetes targets.
func DefaultGlucoseTarget() GlucoseTarget {
	return GlucoseTarget{FastingMin: 80, FastingMax: 130, PostMealMin: 80, PostMealMax: 180}
}

// Validate enforces min < max for each band. The struct itself does not,
// so this must run at ingestion before a care plan is persisted.
func (t *GlucoseTarget) Validate() error {
	if t.FastingMin >= t.FastingMax || t.PostMealMin >= t.PostMealMax {
		return ErrInvalidGlucoseTargets
	}
	return nil
}

// HealthGoals captures personal, non-medication goals in a care plan.
type HealthGoals struct {
	WeightTarget           float64 `json:"weight_target,omitempty"`
	ActivityMinutesPerWeek int     `json:"activity_minutes_per_week,omitempty"`
	DietaryGoals           string  `json:"dietary_goals,omitempty"`
	OtherGoals             string  `json:"other_goals,omitempty"`
}

// CarePlan is the doctor-authored record of medications, glucose targets,
// and health goals for one patient. A new care plan supersedes the old one
// in full; there is no partial update.
type CarePlan struct {
	PatientID              string        `json:"patient_id"`
	DoctorID               string        `json:"doctor_id"`
	CreatedAt              time.Time     `json:"created_at"`
	Medications            []Medication  `json:"medications"`
	GlucoseTargets         GlucoseTarget `json:"glucose_targets"`
	HealthGoals            HealthGoals   `json:"health_goals"`
	DietaryRecommendations string        `json:"dietary_recommendations,omitempty"`
	Notes                  string        `json:"notes,omitempty"`
}

// Validate checks the identifiers, targets, and every medication.
func (cp *CarePlan) Validate() error {
	if cp.PatientID == "" {
		return ErrMissingPatientID
	}
	if cp.DoctorID == "" {
		return ErrMissingDoctorID
	}
	if err := cp.GlucoseTargets.Validate(); err != nil {
		return err
	}
	for i := range cp.Medications {
		if err := cp.Medications[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Patient holds contact and enrollment information for one patient.
type Patient struct {
	PatientID   string    `json:"patient_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	DateOfBirth string    `json:"date_of_birth,omitempty"`
	DoctorID    string    `json:"doctor_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Doctor holds contact information for a healthcare provider.
type Doctor struct {
	DoctorID  string    `json:"doctor_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Specialty string    `json:"specialty,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GlucoseLog is one blood glucose reading. Logs are append-only and
// immutable once written.
type GlucoseLog struct {
	LogID       string      `json:"log_id"`
	PatientID   string      `json:"patient_id"`
	Reading     float64     `json:"reading"`
	Timestamp   time.Time   `json:"timestamp"`
	ReadingType ReadingType `json:"reading_type"`
	Notes       string      `json:"notes,omitempty"`
}

// Validate rejects a log with a missing reading or unknown reading type
// before any state mutation.
func (l *GlucoseLog) Validate() error {
	if l.PatientID == "" {
		return ErrMissingPatientID
	}
	if l.Reading <= 0 {
		return ErrMissingReading
	}
	if !IsValidReadingType(l.ReadingType) {
		return ErrInvalidReadingType
	}
	return nil
}

// MedicationLog records one medication intake event.
type MedicationLog struct {
	LogID          string    `json:"log_id"`
	PatientID      string    `json:"patient_id"`
	MedicationName string    `json:"medication_name"`
	Dosage         string    `json:"dosage,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Taken          bool      `json:"taken"`
	Notes          string    `json:"notes,omitempty"`
}

// Validate checks required fields on a medication log.
func (l *MedicationLog) Validate() error {
	if l.PatientID == "" {
		return ErrMissingPatientID
	}
	if l.MedicationName == "" {
		return ErrMissingMedicationName
	}
	return nil
}

// MealLog records one meal.
type MealLog struct {
	LogID         string    `json:"log_id"`
	PatientID     string    `json:"patient_id"`
	MealType      string    `json:"meal_type"` // breakfast, lunch, dinner, snack
	Description   string    `json:"description"`
	Timestamp     time.Time `json:"timestamp"`
	CarbsEstimate float64   `json:"carbs_estimate,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// Validate checks required fields on a meal log.
func (l *MealLog) Validate() error {
	if l.PatientID == "" {
		return ErrMissingPatientID
	}
	if l.Description == "" {
		return ErrMissingDescription
	}
	return nil
}

// ActivityLog records one physical activity session.
type ActivityLog struct {
	LogID           string    `json:"log_id"`
	PatientID       string    `json:"patient_id"`
	ActivityType    string    `json:"activity_type"`
	DurationMinutes int       `json:"duration_minutes"`
	Intensity       string    `json:"intensity"` // light, moderate, vigorous
	Timestamp       time.Time `json:"timestamp"`
	Notes           string    `json:"notes,omitempty"`
}

// Validate checks required fields on an activity log.
func (l *ActivityLog) Validate() error {
	if l.PatientID == "" {
		return ErrMissingPatientID
	}
	if l.DurationMinutes <= 0 {
		return ErrMissingDuration
	}
	return nil
}

// Alert is a clinical signal raised by the rules engine. Alerts are never
// deleted; acknowledgment is a one-way false to true transition.
type Alert struct {
	AlertID        string        `json:"alert_id"`
	PatientID      string        `json:"patient_id"`
	AlertType      AlertType     `json:"alert_type"`
	Severity       AlertSeverity `json:"severity"`
	Message        string        `json:"message"`
	Timestamp      time.Time     `json:"timestamp"`
	Acknowledged   bool          `json:"acknowledged"`
	DoctorNotified bool          `json:"doctor_notified"`
}

// Reminder is a scheduled nudge generated from a care plan. Reminders are
// deactivated when superseded, never deleted.
type Reminder struct {
	ReminderID    string    `json:"reminder_id"`
	PatientID     string    `json:"patient_id"`
	ReminderType  string    `json:"reminder_type"` // medication, glucose_check, exercise, dietary
	Message       string    `json:"message"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Frequency     string    `json:"frequency"` // daily, weekly, one_time
	Active        bool      `json:"active"`
}

// APIStatus represents the status field of an API response.
type APIStatus string

const (
	StatusOK    APIStatus = "ok"
	StatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  APIStatus   `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success builds an OK response carrying a result payload.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: StatusOK, Result: result}
}

// SuccessWithMessage builds an OK response with a message and payload.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: StatusOK, Message: message, Result: result}
}

// Error builds an error response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: StatusError, Message: message}
}
