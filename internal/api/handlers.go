package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/carebuddy/carebuddy/internal/messaging"
	"github.com/carebuddy/carebuddy/internal/models"
	"github.com/carebuddy/carebuddy/internal/rules"
)

const defaultWindowDays = 7

type chatRequest struct {
	SessionID  string `json:"session_id,omitempty"`
	PatientID  string `json:"patient_id,omitempty"`
	Message    string `json:"message"`
	Specialist string `json:"specialist,omitempty"`
	Insights   bool   `json:"insights,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("CareBuddy is healthy", nil))
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	s.runChat(w, r, false)
}

func (s *Server) insightsHandler(w http.ResponseWriter, r *http.Request) {
	s.runChat(w, r, true)
}

func (s *Server) runChat(w http.ResponseWriter, r *http.Request, forceInsights bool) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if s.runner == nil {
		slog.Warn("Server.runChat: generation service unavailable")
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Generation service is not configured"))
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.runChat: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Message == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("message is required"))
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = req.PatientID
	}
	if sessionID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id or patient_id is required"))
		return
	}

	state, err := s.runner.Chat(r.Context(), sessionID, req.PatientID, req.Message, models.SpecialistMode(req.Specialist), forceInsights || req.Insights)
	if err != nil {
		slog.Error("Server.runChat: chat turn failed", "session", sessionID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(state))
}

func (s *Server) createPatientHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var p models.Patient
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if p.Name == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("name is required"))
		return
	}
	if p.PatientID == "" {
		p.PatientID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if err := s.store.CreatePatient(p); err != nil {
		slog.Error("Server.createPatientHandler: failed to create patient", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create patient"))
		return
	}
	slog.Info("Server.createPatientHandler: patient created", "patientID", p.PatientID)
	writeJSONResponse(w, http.StatusCreated, models.Success(p))
}

func (s *Server) listPatientsHandler(w http.ResponseWriter, r *http.Request) {
	patients, err := s.store.ListPatients()
	if err != nil {
		slog.Error("Server.listPatientsHandler: failed to list patients", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list patients"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(patients))
}

func (s *Server) getPatientHandler(w http.ResponseWriter, r *http.Request) {
	patient, err := s.store.GetPatient(r.PathValue("id"))
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load patient"))
		return
	}
	if patient == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Patient not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(patient))
}

func (s *Server) createDoctorHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var d models.Doctor
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if d.Name == "" || d.Email == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("name and email are required"))
		return
	}
	if d.DoctorID == "" {
		d.DoctorID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	if err := s.store.CreateDoctor(d); err != nil {
		slog.Error("Server.createDoctorHandler: failed to create doctor", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create doctor"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(d))
}

func (s *Server) getDoctorHandler(w http.ResponseWriter, r *http.Request) {
	doctor, err := s.store.GetDoctor(r.PathValue("id"))
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load doctor"))
		return
	}
	if doctor == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Doctor not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(doctor))
}

func (s *Server) doctorPatientsHandler(w http.ResponseWriter, r *http.Request) {
	patients, err := s.store.ListDoctorPatients(r.PathValue("id"))
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list patients"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(patients))
}

func (s *Server) saveCarePlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	patientID := r.PathValue("id")
	var cp models.CarePlan
	if err := json.NewDecoder(r.Body).Decode(&cp); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	cp.PatientID = patientID
	if cp.GlucoseTargets == (models.GlucoseTarget{}) {
		cp.GlucoseTargets = models.DefaultGlucoseTarget()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	if err := cp.Validate(); err != nil {
		slog.Warn("Server.saveCarePlanHandler: validation failed", "patientID", patientID, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	patient, err := s.store.GetPatient(patientID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load patient"))
		return
	}
	if patient == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Patient not found"))
		return
	}
	if err := s.store.SaveCarePlan(cp); err != nil {
		slog.Error("Server.saveCarePlanHandler: failed to save care plan", "patientID", patientID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save care plan"))
		return
	}
	slog.Info("Server.saveCarePlanHandler: care plan saved", "patientID", patientID)
	writeJSONResponse(w, http.StatusCreated, models.Success(cp))
}

func (s *Server) getCarePlanHandler(w http.ResponseWriter, r *http.Request) {
	plan, err := s.store.GetCarePlan(r.PathValue("id"))
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load care plan"))
		return
	}
	if plan == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Care plan not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(plan))
}

func (s *Server) logGlucoseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	patientID := r.PathValue("id")
	var l models.GlucoseLog
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	l.PatientID = patientID
	l.LogID = uuid.NewString()
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now()
	}
	if l.ReadingType == "" {
		l.ReadingType = models.ReadingRandom
	}
	if err := l.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.store.AddGlucoseLog(l); err != nil {
		slog.Error("Server.logGlucoseHandler: failed to add log", "patientID", patientID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record glucose log"))
		return
	}

	// a new reading immediately runs the threshold check
	alert, err := s.alerts.CheckGlucose(r.Context(), patientID, l.Reading, l.ReadingType)
	if err != nil {
		slog.Error("Server.logGlucoseHandler: glucose check failed", "patientID", patientID, "error", err)
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]interface{}{
		"log":   l,
		"alert": alert,
	}))
}

func (s *Server) getGlucoseLogsHandler(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.GetGlucoseLogs(r.PathValue("id"), daysQuery(r))
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load glucose logs"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(logs))
}

func (s *Server) logMedicationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	patientID := r.PathValue("id")
	var l models.MedicationLog
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	l.PatientID = patientID
	l.LogID = uuid.NewString()
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now()
	}
	if err := l.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.store.AddMedicationLog(l); err != nil {
		slog.Error("Server.logMedicationHandler: failed to add log", "patientID", patientID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record medication log"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(l))
}

func (s *Server) getMedicationLogsHandler(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.GetMedicationLogs(r.PathValue("id"), daysQuery(r))
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load medication logs"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(logs))
}

func (s *Server) logMealHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	patientID := r.PathValue("id")
	var l models.MealLog
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	l.PatientID = patientID
	l.LogID = uuid.NewString()
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now()
	}
	if err := l.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.store.AddMealLog(l); err != nil {
		slog.Error("Server.logMealHandler: failed to add log", "patientID", patientID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record meal log"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(l))
}

func (s *Server) getMealLogsHandler(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.GetMealLogs(r.PathValue("id"), daysQuery(r))
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load meal logs"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(logs))
}

func (s *Server) logActivityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	patientID := r.PathValue("id")
	var l models.ActivityLog
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	l.PatientID = patientID
	l.LogID = uuid.NewString()
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now()
	}
	if err := l.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.store.AddActivityLog(l); err != nil {
		slog.Error("Server.logActivityHandler: failed to add log", "patientID", patientID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record activity log"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(l))
}

func (s *Server) getActivityLogsHandler(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.GetActivityLogs(r.PathValue("id"), daysQuery(r))
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load activity logs"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(logs))
}

func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	days := daysQuery(r)

	tir, err := s.reports.TimeInRangeFor(patientID, days)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to compute time in range"))
		return
	}
	plan, err := s.store.GetCarePlan(patientID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load care plan"))
		return
	}
	medLogs, err := s.store.GetMedicationLogs(patientID, days)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load medication logs"))
		return
	}
	openAlerts, err := s.store.GetAlerts(patientID, true)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load alerts"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"patient_id":            patientID,
		"window_days":           days,
		"time_in_range":         tir,
		"adherence":             rules.Adherence(plan, medLogs, days),
		"unacknowledged_alerts": len(openAlerts),
	}))
}

func (s *Server) listAlertsHandler(w http.ResponseWriter, r *http.Request) {
	unacknowledgedOnly := r.URL.Query().Get("unacknowledged") == "true"
	alerts, err := s.store.GetAlerts(r.PathValue("id"), unacknowledgedOnly)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load alerts"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(alerts))
}

func (s *Server) checkAlertsHandler(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	alerts, err := s.alerts.CheckMissedDoses(r.Context(), patientID)
	if err != nil {
		slog.Error("Server.checkAlertsHandler: missed-dose check failed", "patientID", patientID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to check missed doses"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(alerts))
}

func (s *Server) acknowledgeAlertHandler(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	alertID := r.PathValue("alertID")
	if err := s.store.AcknowledgeAlert(patientID, alertID); err != nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Alert not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Alert acknowledged", nil))
}

func (s *Server) listRemindersHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") != "false"
	reminders, err := s.store.GetReminders(r.PathValue("id"), activeOnly)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load reminders"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(reminders))
}

func (s *Server) generateRemindersHandler(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	reminders, err := s.reminders.Generate(r.Context(), patientID)
	if err != nil {
		slog.Error("Server.generateRemindersHandler: generation failed", "patientID", patientID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate reminders"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(reminders))
}

func (s *Server) weeklyReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.Weekly(r.PathValue("id"))
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to build report"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(report))
}

func (s *Server) monthlyReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.Monthly(r.PathValue("id"))
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to build report"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(report))
}

// emergencyContactHandler connects a patient to their doctor in an
// emergency: it raises a critical doctor-notified alert and returns the
// doctor's contact details. Without an assigned (or resolvable) doctor the
// response directs the patient to emergency services instead.
func (s *Server) emergencyContactHandler(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	patient, err := s.store.GetPatient(patientID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load patient"))
		return
	}
	if patient == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Patient not found"))
		return
	}

	var doctor *models.Doctor
	if patient.DoctorID != "" {
		doctor, err = s.store.GetDoctor(patient.DoctorID)
		if err != nil {
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load doctor"))
			return
		}
	}
	if doctor == nil {
		msg := "No doctor assigned. Please call 911 or go to emergency room immediately."
		if patient.DoctorID != "" {
			msg = "Doctor not found. Please call 911 or go to emergency room immediately."
		}
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
			"emergency":          true,
			"message":            msg,
			"emergency_services": "911",
		}))
		return
	}

	alert := models.Alert{
		AlertID:        uuid.NewString(),
		PatientID:      patientID,
		AlertType:      models.AlertCritical,
		Severity:       models.SeverityCritical,
		Message:        "Emergency contact requested by patient",
		Timestamp:      time.Now(),
		DoctorNotified: true,
	}
	if err := s.store.CreateAlert(alert); err != nil {
		slog.Error("Server.emergencyContactHandler: failed to persist alert", "patientID", patientID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record emergency alert"))
		return
	}
	slog.Info("Server.emergencyContactHandler: emergency alert created", "patientID", patientID, "doctorID", doctor.DoctorID)

	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"emergency": true,
		"alert_id":  alert.AlertID,
		"doctor_contact": map[string]string{
			"name":  doctor.Name,
			"email": doctor.Email,
			"phone": doctor.Phone,
		},
		"message": fmt.Sprintf("Emergency alert sent to Dr. %s. They will contact you immediately.", doctor.Name),
		"backup":  "If unable to reach doctor, call 911 or go to emergency room.",
	}))
}

type appointmentRequest struct {
	PreferredDate string `json:"preferred_date,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// requestAppointmentHandler records a non-emergency appointment request and
// returns the doctor's contact details for follow-up.
func (s *Server) requestAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	patientID := r.PathValue("id")
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Reason == "" {
		req.Reason = "Routine check-up"
	}

	patient, err := s.store.GetPatient(patientID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load patient"))
		return
	}
	if patient == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Patient not found"))
		return
	}
	if patient.DoctorID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("No doctor assigned"))
		return
	}
	doctor, err := s.store.GetDoctor(patient.DoctorID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load doctor"))
		return
	}
	if doctor == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Doctor not found"))
		return
	}

	contact := patient.Email
	if contact == "" {
		contact = patient.Phone
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]interface{}{
		"appointment_id": uuid.NewString(),
		"patient_id":     patientID,
		"doctor_id":      patient.DoctorID,
		"requested_date": req.PreferredDate,
		"reason":         req.Reason,
		"status":         "pending",
		"created_at":     time.Now(),
		"doctor_contact": map[string]string{
			"name":  doctor.Name,
			"email": doctor.Email,
			"phone": doctor.Phone,
		},
		"message": fmt.Sprintf("Appointment request submitted. Doctor will contact you at %s", contact),
	}))
}

type smsReminderRequest struct {
	Type           string `json:"type,omitempty"`
	MedicationName string `json:"medication_name,omitempty"`
	Dosage         string `json:"dosage,omitempty"`
	Time           string `json:"time,omitempty"`
	CheckType      string `json:"check_type,omitempty"`
}

// sendSMSReminderHandler sends a one-off reminder SMS on demand, outside
// the scheduled reminder sweep.
func (s *Server) sendSMSReminderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if s.notifier == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("SMS service is not configured"))
		return
	}
	patientID := r.PathValue("id")
	var req smsReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Type == "" {
		req.Type = "medication"
	}

	patient, err := s.store.GetPatient(patientID)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load patient"))
		return
	}
	if patient == nil || patient.Phone == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Patient not found or no phone number"))
		return
	}

	var body string
	switch req.Type {
	case "medication":
		name := req.MedicationName
		if name == "" {
			name = "your medication"
		}
		timeStr := req.Time
		if timeStr == "" {
			timeStr = "now"
		}
		body = messaging.MedicationReminderSMS(name, req.Dosage, timeStr)
	case "glucose_check":
		checkType := req.CheckType
		if checkType == "" {
			checkType = "routine"
		}
		body = messaging.GlucoseCheckSMS(checkType)
	default:
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid reminder type"))
		return
	}

	if err := s.notifier.Notify(r.Context(), messaging.ChannelSMS, patient.Phone, body); err != nil {
		slog.Error("Server.sendSMSReminderHandler: delivery failed", "patientID", patientID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to send reminder"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Reminder sent", nil))
}

// daysQuery parses the ?days= window, defaulting to one week.
func daysQuery(r *http.Request) int {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return defaultWindowDays
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return defaultWindowDays
	}
	return days
}
