// Package store provides storage backends for CareBuddy.
//
// The rules engine reads persisted state (care plans, logs, alerts,
// reminders) at the start of a computation and never re-reads
// mid-computation. Logs are append-only per patient; the backends resolve
// concurrent writers by their own write ordering.
package store

import (
	"strings"

	"github.com/carebuddy/carebuddy/internal/models"
)

// Store defines the read/write contract the rules engine and API require.
type Store interface {
	CreatePatient(p models.Patient) error
	GetPatient(patientID string) (*models.Patient, error)
	ListPatients() ([]models.Patient, error)
	ListDoctorPatients(doctorID string) ([]models.Patient, error)

	CreateDoctor(d models.Doctor) error
	GetDoctor(doctorID string) (*models.Doctor, error)

	// SaveCarePlan replaces the patient's care plan wholesale; there are
	// no partial-field updates.
	SaveCarePlan(cp models.CarePlan) error
	GetCarePlan(patientID string) (*models.CarePlan, error)

	AddGlucoseLog(l models.GlucoseLog) error
	GetGlucoseLogs(patientID string, days int) ([]models.GlucoseLog, error)
	AddMedicationLog(l models.MedicationLog) error
	GetMedicationLogs(patientID string, days int) ([]models.MedicationLog, error)
	AddMealLog(l models.MealLog) error
	GetMealLogs(patientID string, days int) ([]models.MealLog, error)
	AddActivityLog(l models.ActivityLog) error
	GetActivityLogs(patientID string, days int) ([]models.ActivityLog, error)

	CreateAlert(a models.Alert) error
	GetAlerts(patientID string, unacknowledgedOnly bool) ([]models.Alert, error)
	// AcknowledgeAlert is a one-way false to true transition.
	AcknowledgeAlert(patientID, alertID string) error

	CreateReminder(r models.Reminder) error
	GetReminders(patientID string, activeOnly bool) ([]models.Reminder, error)
	DeactivateReminder(patientID, reminderID string) error

	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store implementations.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite file path as the store DSN.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL connection string as the store DSN.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL connection strings and
// "sqlite" for anything else (treated as a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
