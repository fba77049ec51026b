// Package store provides storage backends for CareBuddy.
//
// This file implements a mutex-guarded in-memory store, used by tests and
// as the fallback when no database DSN is configured.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carebuddy/carebuddy/internal/models"
)

// InMemoryStore keeps all records in process memory. State resets on
// restart; durable deployments use the SQLite or Postgres backends.
type InMemoryStore struct {
	mu             sync.RWMutex
	patients       map[string]models.Patient
	doctors        map[string]models.Doctor
	carePlans      map[string]models.CarePlan
	glucoseLogs    map[string][]models.GlucoseLog
	medicationLogs map[string][]models.MedicationLog
	mealLogs       map[string][]models.MealLog
	activityLogs   map[string][]models.ActivityLog
	alerts         map[string][]models.Alert
	reminders      map[string][]models.Reminder
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		patients:       make(map[string]models.Patient),
		doctors:        make(map[string]models.Doctor),
		carePlans:      make(map[string]models.CarePlan),
		glucoseLogs:    make(map[string][]models.GlucoseLog),
		medicationLogs: make(map[string][]models.MedicationLog),
		mealLogs:       make(map[string][]models.MealLog),
		activityLogs:   make(map[string][]models.ActivityLog),
		alerts:         make(map[string][]models.Alert),
		reminders:      make(map[string][]models.Reminder),
	}
}

func (s *InMemoryStore) CreatePatient(p models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[p.PatientID] = p
	return nil
}

func (s *InMemoryStore) GetPatient(patientID string) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[patientID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *InMemoryStore) ListPatients() ([]models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientID < out[j].PatientID })
	return out, nil
}

func (s *InMemoryStore) ListDoctorPatients(doctorID string) ([]models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Patient
	for _, p := range s.patients {
		if p.DoctorID == doctorID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientID < out[j].PatientID })
	return out, nil
}

func (s *InMemoryStore) CreateDoctor(d models.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors[d.DoctorID] = d
	return nil
}

func (s *InMemoryStore) GetDoctor(doctorID string) (*models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[doctorID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *InMemoryStore) SaveCarePlan(cp models.CarePlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carePlans[cp.PatientID] = cp
	return nil
}

func (s *InMemoryStore) GetCarePlan(patientID string) (*models.CarePlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.carePlans[patientID]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

func windowCutoff(days int) time.Time {
	return time.Now().AddDate(0, 0, -days)
}

func (s *InMemoryStore) AddGlucoseLog(l models.GlucoseLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.glucoseLogs[l.PatientID] = append(s.glucoseLogs[l.PatientID], l)
	return nil
}

func (s *InMemoryStore) GetGlucoseLogs(patientID string, days int) ([]models.GlucoseLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := windowCutoff(days)
	var out []models.GlucoseLog
	for _, l := range s.glucoseLogs[patientID] {
		if !l.Timestamp.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AddMedicationLog(l models.MedicationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.medicationLogs[l.PatientID] = append(s.medicationLogs[l.PatientID], l)
	return nil
}

func (s *InMemoryStore) GetMedicationLogs(patientID string, days int) ([]models.MedicationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := windowCutoff(days)
	var out []models.MedicationLog
	for _, l := range s.medicationLogs[patientID] {
		if !l.Timestamp.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AddMealLog(l models.MealLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mealLogs[l.PatientID] = append(s.mealLogs[l.PatientID], l)
	return nil
}

func (s *InMemoryStore) GetMealLogs(patientID string, days int) ([]models.MealLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := windowCutoff(days)
	var out []models.MealLog
	for _, l := range s.mealLogs[patientID] {
		if !l.Timestamp.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AddActivityLog(l models.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activityLogs[l.PatientID] = append(s.activityLogs[l.PatientID], l)
	return nil
}

func (s *InMemoryStore) GetActivityLogs(patientID string, days int) ([]models.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := windowCutoff(days)
	var out []models.ActivityLog
	for _, l := range s.activityLogs[patientID] {
		if !l.Timestamp.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *InMemoryStore) CreateAlert(a models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[a.PatientID] = append(s.alerts[a.PatientID], a)
	return nil
}

func (s *InMemoryStore) GetAlerts(patientID string, unacknowledgedOnly bool) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Alert
	for _, a := range s.alerts[patientID] {
		if unacknowledgedOnly && a.Acknowledged {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *InMemoryStore) AcknowledgeAlert(patientID, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alerts := s.alerts[patientID]
	for i := range alerts {
		if alerts[i].AlertID == alertID {
			alerts[i].Acknowledged = true
			return nil
		}
	}
	return fmt.Errorf("alert %s not found for patient %s", alertID, patientID)
}

func (s *InMemoryStore) CreateReminder(r models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders[r.PatientID] = append(s.reminders[r.PatientID], r)
	return nil
}

func (s *InMemoryStore) GetReminders(patientID string, activeOnly bool) ([]models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Reminder
	for _, r := range s.reminders[patientID] {
		if activeOnly && !r.Active {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *InMemoryStore) DeactivateReminder(patientID, reminderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reminders := s.reminders[patientID]
	for i := range reminders {
		if reminders[i].ReminderID == reminderID {
			reminders[i].Active = false
			return nil
		}
	}
	return fmt.Errorf("reminder %s not found for patient %s", reminderID, patientID)
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
