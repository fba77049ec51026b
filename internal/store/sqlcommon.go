package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carebuddy/carebuddy/internal/models"
)

// sqlStore implements the Store query surface shared by the SQLite and
// Postgres backends. Queries are written with ? placeholders and rebound
// to $N for Postgres.
type sqlStore struct {
	db       *sql.DB
	postgres bool
}

// rebind converts ? placeholders to $N for Postgres drivers.
func (s *sqlStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (s *sqlStore) exec(query string, args ...interface{}) error {
	_, err := s.db.Exec(s.rebind(query), args...)
	return err
}

func (s *sqlStore) CreatePatient(p models.Patient) error {
	err := s.exec(`INSERT INTO patients (patient_id, name, email, phone, date_of_birth, doctor_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.PatientID, p.Name, nilIfEmpty(p.Email), nilIfEmpty(p.Phone), nilIfEmpty(p.DateOfBirth), nilIfEmpty(p.DoctorID), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create patient failed: %w", err)
	}
	return nil
}

func (s *sqlStore) GetPatient(patientID string) (*models.Patient, error) {
	row := s.db.QueryRow(s.rebind(`SELECT patient_id, name, email, phone, date_of_birth, doctor_id, created_at FROM patients WHERE patient_id = ?`), patientID)
	p, err := scanPatientRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get patient failed: %w", err)
	}
	return p, nil
}

func (s *sqlStore) ListPatients() ([]models.Patient, error) {
	rows, err := s.db.Query(`SELECT patient_id, name, email, phone, date_of_birth, doctor_id, created_at FROM patients ORDER BY patient_id`)
	if err != nil {
		return nil, fmt.Errorf("list patients failed: %w", err)
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (s *sqlStore) ListDoctorPatients(doctorID string) ([]models.Patient, error) {
	rows, err := s.db.Query(s.rebind(`SELECT patient_id, name, email, phone, date_of_birth, doctor_id, created_at FROM patients WHERE doctor_id = ? ORDER BY patient_id`), doctorID)
	if err != nil {
		return nil, fmt.Errorf("list doctor patients failed: %w", err)
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (s *sqlStore) CreateDoctor(d models.Doctor) error {
	err := s.exec(`INSERT INTO doctors (doctor_id, name, email, phone, specialty, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.DoctorID, d.Name, d.Email, nilIfEmpty(d.Phone), nilIfEmpty(d.Specialty), d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create doctor failed: %w", err)
	}
	return nil
}

func (s *sqlStore) GetDoctor(doctorID string) (*models.Doctor, error) {
	row := s.db.QueryRow(s.rebind(`SELECT doctor_id, name, email, phone, specialty, created_at FROM doctors WHERE doctor_id = ?`), doctorID)
	var d models.Doctor
	var phone, specialty sql.NullString
	err := row.Scan(&d.DoctorID, &d.Name, &d.Email, &phone, &specialty, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get doctor failed: %w", err)
	}
	d.Phone = phone.String
	d.Specialty = specialty.String
	return &d, nil
}

func (s *sqlStore) SaveCarePlan(cp models.CarePlan) error {
	medsJSON, err := json.Marshal(cp.Medications)
	if err != nil {
		return fmt.Errorf("marshal medications failed: %w", err)
	}
	targetsJSON, err := json.Marshal(cp.GlucoseTargets)
	if err != nil {
		return fmt.Errorf("marshal glucose targets failed: %w", err)
	}
	goalsJSON, err := json.Marshal(cp.HealthGoals)
	if err != nil {
		return fmt.Errorf("marshal health goals failed: %w", err)
	}
	// Wholesale replacement: a new care plan supersedes the old one in full.
	if err := s.exec(`DELETE FROM care_plans WHERE patient_id = ?`, cp.PatientID); err != nil {
		return fmt.Errorf("replace care plan failed: %w", err)
	}
	err = s.exec(`INSERT INTO care_plans (patient_id, doctor_id, created_at, medications, glucose_targets, health_goals, dietary_recommendations, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.PatientID, cp.DoctorID, cp.CreatedAt, string(medsJSON), string(targetsJSON), string(goalsJSON), nilIfEmpty(cp.DietaryRecommendations), nilIfEmpty(cp.Notes))
	if err != nil {
		return fmt.Errorf("save care plan failed: %w", err)
	}
	return nil
}

func (s *sqlStore) GetCarePlan(patientID string) (*models.CarePlan, error) {
	row := s.db.QueryRow(s.rebind(`SELECT patient_id, doctor_id, created_at, medications, glucose_targets, health_goals, dietary_recommendations, notes FROM care_plans WHERE patient_id = ?`), patientID)
	var cp models.CarePlan
	var medsJSON, targetsJSON, goalsJSON string
	var dietary, notes sql.NullString
	err := row.Scan(&cp.PatientID, &cp.DoctorID, &cp.CreatedAt, &medsJSON, &targetsJSON, &goalsJSON, &dietary, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get care plan failed: %w", err)
	}
	if err := json.Unmarshal([]byte(medsJSON), &cp.Medications); err != nil {
		return nil, fmt.Errorf("unmarshal medications failed: %w", err)
	}
	if err := json.Unmarshal([]byte(targetsJSON), &cp.GlucoseTargets); err != nil {
		return nil, fmt.Errorf("unmarshal glucose targets failed: %w", err)
	}
	if err := json.Unmarshal([]byte(goalsJSON), &cp.HealthGoals); err != nil {
		return nil, fmt.Errorf("unmarshal health goals failed: %w", err)
	}
	cp.DietaryRecommendations = dietary.String
	cp.Notes = notes.String
	return &cp, nil
}

func (s *sqlStore) AddGlucoseLog(l models.GlucoseLog) error {
	err := s.exec(`INSERT INTO glucose_logs (log_id, patient_id, reading, timestamp, reading_type, notes) VALUES (?, ?, ?, ?, ?, ?)`,
		l.LogID, l.PatientID, l.Reading, l.Timestamp, string(l.ReadingType), nilIfEmpty(l.Notes))
	if err != nil {
		return fmt.Errorf("add glucose log failed: %w", err)
	}
	return nil
}

func (s *sqlStore) GetGlucoseLogs(patientID string, days int) ([]models.GlucoseLog, error) {
	rows, err := s.db.Query(s.rebind(`SELECT log_id, patient_id, reading, timestamp, reading_type, notes FROM glucose_logs WHERE patient_id = ? AND timestamp >= ? ORDER BY timestamp`), patientID, cutoff(days))
	if err != nil {
		return nil, fmt.Errorf("get glucose logs failed: %w", err)
	}
	defer rows.Close()
	var out []models.GlucoseLog
	for rows.Next() {
		var l models.GlucoseLog
		var readingType string
		var notes sql.NullString
		if err := rows.Scan(&l.LogID, &l.PatientID, &l.Reading, &l.Timestamp, &readingType, &notes); err != nil {
			return nil, fmt.Errorf("scan glucose log failed: %w", err)
		}
		l.ReadingType = models.ReadingType(readingType)
		l.Notes = notes.String
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *sqlStore) AddMedicationLog(l models.MedicationLog) error {
	err := s.exec(`INSERT INTO medication_logs (log_id, patient_id, medication_name, dosage, timestamp, taken, notes) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.LogID, l.PatientID, l.MedicationName, nilIfEmpty(l.Dosage), l.Timestamp, l.Taken, nilIfEmpty(l.Notes))
	if err != nil {
		return fmt.Errorf("add medication log failed: %w", err)
	}
	return nil
}

func (s *sqlStore) GetMedicationLogs(patientID string, days int) ([]models.MedicationLog, error) {
	rows, err := s.db.Query(s.rebind(`SELECT log_id, patient_id, medication_name, dosage, timestamp, taken, notes FROM medication_logs WHERE patient_id = ? AND timestamp >= ? ORDER BY timestamp`), patientID, cutoff(days))
	if err != nil {
		return nil, fmt.Errorf("get medication logs failed: %w", err)
	}
	defer rows.Close()
	var out []models.MedicationLog
	for rows.Next() {
		var l models.MedicationLog
		var dosage, notes sql.NullString
		if err := rows.Scan(&l.LogID, &l.PatientID, &l.MedicationName, &dosage, &l.Timestamp, &l.Taken, &notes); err != nil {
			return nil, fmt.Errorf("scan medication log failed: %w", err)
		}
		l.Dosage = dosage.String
		l.Notes = notes.String
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *sqlStore) AddMealLog(l models.MealLog) error {
	err := s.exec(`INSERT INTO meal_logs (log_id, patient_id, meal_type, description, timestamp, carbs_estimate, notes) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.LogID, l.PatientID, l.MealType, l.Description, l.Timestamp, l.CarbsEstimate, nilIfEmpty(l.Notes))
	if err != nil {
		return fmt.Errorf("add meal log failed: %w", err)
	}
	return nil
}

func (s *sqlStore) GetMealLogs(patientID string, days int) ([]models.MealLog, error) {
	rows, err := s.db.Query(s.rebind(`SELECT log_id, patient_id, meal_type, description, timestamp, carbs_estimate, notes FROM meal_logs WHERE patient_id = ? AND timestamp >= ? ORDER BY timestamp`), patientID, cutoff(days))
	if err != nil {
		return nil, fmt.Errorf("get meal logs failed: %w", err)
	}
	defer rows.Close()
	var out []models.MealLog
	for rows.Next() {
		var l models.MealLog
		var notes sql.NullString
		if err := rows.Scan(&l.LogID, &l.PatientID, &l.MealType, &l.Description, &l.Timestamp, &l.CarbsEstimate, &notes); err != nil {
			return nil, fmt.Errorf("scan meal log failed: %w", err)
		}
		l.Notes = notes.String
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *sqlStore) AddActivityLog(l models.ActivityLog) error {
	err := s.exec(`INSERT INTO activity_logs (log_id, patient_id, activity_type, duration_minutes, intensity, timestamp, notes) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.LogID, l.PatientID, l.ActivityType, l.DurationMinutes, l.Intensity, l.Timestamp, nilIfEmpty(l.Notes))
	if err != nil {
		return fmt.Errorf("add activity log failed: %w", err)
	}
	return nil
}

func (s *sqlStore) GetActivityLogs(patientID string, days int) ([]models.ActivityLog, error) {
	rows, err := s.db.Query(s.rebind(`SELECT log_id, patient_id, activity_type, duration_minutes, intensity, timestamp, notes FROM activity_logs WHERE patient_id = ? AND timestamp >= ? ORDER BY timestamp`), patientID, cutoff(days))
	if err != nil {
		return nil, fmt.Errorf("get activity logs failed: %w", err)
	}
	defer rows.Close()
	var out []models.ActivityLog
	for rows.Next() {
		var l models.ActivityLog
		var notes sql.NullString
		if err := rows.Scan(&l.LogID, &l.PatientID, &l.ActivityType, &l.DurationMinutes, &l.Intensity, &l.Timestamp, &notes); err != nil {
			return nil, fmt.Errorf("scan activity log failed: %w", err)
		}
		l.Notes = notes.String
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *sqlStore) CreateAlert(a models.Alert) error {
	err := s.exec(`INSERT INTO alerts (alert_id, patient_id, alert_type, severity, message, timestamp, acknowledged, doctor_notified) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.AlertID, a.PatientID, string(a.AlertType), string(a.Severity), a.Message, a.Timestamp, a.Acknowledged, a.DoctorNotified)
	if err != nil {
		return fmt.Errorf("create alert failed: %w", err)
	}
	return nil
}

func (s *sqlStore) GetAlerts(patientID string, unacknowledgedOnly bool) ([]models.Alert, error) {
	query := `SELECT alert_id, patient_id, alert_type, severity, message, timestamp, acknowledged, doctor_notified FROM alerts WHERE patient_id = ?`
	if unacknowledgedOnly {
		query += ` AND acknowledged = FALSE`
	}
	query += ` ORDER BY timestamp DESC`
	rows, err := s.db.Query(s.rebind(query), patientID)
	if err != nil {
		return nil, fmt.Errorf("get alerts failed: %w", err)
	}
	defer rows.Close()
	var out []models.Alert
	for rows.Next() {
		var a models.Alert
		var alertType, severity string
		if err := rows.Scan(&a.AlertID, &a.PatientID, &alertType, &severity, &a.Message, &a.Timestamp, &a.Acknowledged, &a.DoctorNotified); err != nil {
			return nil, fmt.Errorf("scan alert failed: %w", err)
		}
		a.AlertType = models.AlertType(alertType)
		a.Severity = models.AlertSeverity(severity)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *sqlStore) AcknowledgeAlert(patientID, alertID string) error {
	res, err := s.db.Exec(s.rebind(`UPDATE alerts SET acknowledged = TRUE WHERE patient_id = ? AND alert_id = ?`), patientID, alertID)
	if err != nil {
		return fmt.Errorf("acknowledge alert failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("acknowledge alert failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("alert %s not found for patient %s", alertID, patientID)
	}
	return nil
}

func (s *sqlStore) CreateReminder(r models.Reminder) error {
	err := s.exec(`INSERT INTO reminders (reminder_id, patient_id, reminder_type, message, scheduled_time, frequency, active) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ReminderID, r.PatientID, r.ReminderType, r.Message, r.ScheduledTime, r.Frequency, r.Active)
	if err != nil {
		return fmt.Errorf("create reminder failed: %w", err)
	}
	return nil
}

func (s *sqlStore) GetReminders(patientID string, activeOnly bool) ([]models.Reminder, error) {
	query := `SELECT reminder_id, patient_id, reminder_type, message, scheduled_time, frequency, active FROM reminders WHERE patient_id = ?`
	if activeOnly {
		query += ` AND active = TRUE`
	}
	query += ` ORDER BY scheduled_time`
	rows, err := s.db.Query(s.rebind(query), patientID)
	if err != nil {
		return nil, fmt.Errorf("get reminders failed: %w", err)
	}
	defer rows.Close()
	var out []models.Reminder
	for rows.Next() {
		var r models.Reminder
		if err := rows.Scan(&r.ReminderID, &r.PatientID, &r.ReminderType, &r.Message, &r.ScheduledTime, &r.Frequency, &r.Active); err != nil {
			return nil, fmt.Errorf("scan reminder failed: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqlStore) DeactivateReminder(patientID, reminderID string) error {
	res, err := s.db.Exec(s.rebind(`UPDATE reminders SET active = FALSE WHERE patient_id = ? AND reminder_id = ?`), patientID, reminderID)
	if err != nil {
		return fmt.Errorf("deactivate reminder failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate reminder failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("reminder %s not found for patient %s", reminderID, patientID)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func cutoff(days int) time.Time {
	return time.Now().AddDate(0, 0, -days)
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func scanPatientRow(row *sql.Row) (*models.Patient, error) {
	var p models.Patient
	var email, phone, dob, doctorID sql.NullString
	err := row.Scan(&p.PatientID, &p.Name, &email, &phone, &dob, &doctorID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Email = email.String
	p.Phone = phone.String
	p.DateOfBirth = dob.String
	p.DoctorID = doctorID.String
	return &p, nil
}

func collectPatients(rows *sql.Rows) ([]models.Patient, error) {
	var out []models.Patient
	for rows.Next() {
		var p models.Patient
		var email, phone, dob, doctorID sql.NullString
		if err := rows.Scan(&p.PatientID, &p.Name, &email, &phone, &dob, &doctorID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan patient failed: %w", err)
		}
		p.Email = email.String
		p.Phone = phone.String
		p.DateOfBirth = dob.String
		p.DoctorID = doctorID.String
		out = append(out, p)
	}
	return out, rows.Err()
}
