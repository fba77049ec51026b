package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/carebuddy/carebuddy/internal/messaging"
	"github.com/carebuddy/carebuddy/internal/pipeline"
	"github.com/carebuddy/carebuddy/internal/rules"
	"github.com/carebuddy/carebuddy/internal/store"
)

const defaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr     string
	Notifier messaging.Notifier
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address (overrides the :8080 default).
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithNotifier enables the manual SMS-reminder endpoint. Without it the
// endpoint answers 503.
func WithNotifier(n messaging.Notifier) Option {
	return func(o *Opts) { o.Notifier = n }
}

// Server wires the HTTP surface over the pipeline and rules engine. The
// runner may be nil when the generation capability is unconfigured; chat
// endpoints then answer 503 while the rules endpoints keep working.
type Server struct {
	addr      string
	mux       *http.ServeMux
	store     store.Store
	runner    *pipeline.Runner
	alerts    *rules.AlertEngine
	reminders *rules.ReminderScheduler
	reports   *rules.ReportBuilder
	notifier  messaging.Notifier
}

// NewServer creates the API server and registers its routes.
func NewServer(st store.Store, runner *pipeline.Runner, alerts *rules.AlertEngine, reminders *rules.ReminderScheduler, reports *rules.ReportBuilder, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	s := &Server{
		addr:      cfg.Addr,
		mux:       http.NewServeMux(),
		store:     st,
		runner:    runner,
		alerts:    alerts,
		reminders: reminders,
		reports:   reports,
		notifier:  cfg.Notifier,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.healthHandler)

	s.mux.HandleFunc("POST /api/chat", s.chatHandler)
	s.mux.HandleFunc("POST /api/insights", s.insightsHandler)

	s.mux.HandleFunc("POST /api/patients", s.createPatientHandler)
	s.mux.HandleFunc("GET /api/patients", s.listPatientsHandler)
	s.mux.HandleFunc("GET /api/patients/{id}", s.getPatientHandler)
	s.mux.HandleFunc("POST /api/doctors", s.createDoctorHandler)
	s.mux.HandleFunc("GET /api/doctors/{id}", s.getDoctorHandler)
	s.mux.HandleFunc("GET /api/doctors/{id}/patients", s.doctorPatientsHandler)

	s.mux.HandleFunc("POST /api/patients/{id}/careplan", s.saveCarePlanHandler)
	s.mux.HandleFunc("GET /api/patients/{id}/careplan", s.getCarePlanHandler)

	s.mux.HandleFunc("POST /api/patients/{id}/logs/glucose", s.logGlucoseHandler)
	s.mux.HandleFunc("GET /api/patients/{id}/logs/glucose", s.getGlucoseLogsHandler)
	s.mux.HandleFunc("POST /api/patients/{id}/logs/medication", s.logMedicationHandler)
	s.mux.HandleFunc("GET /api/patients/{id}/logs/medication", s.getMedicationLogsHandler)
	s.mux.HandleFunc("POST /api/patients/{id}/logs/meal", s.logMealHandler)
	s.mux.HandleFunc("GET /api/patients/{id}/logs/meal", s.getMealLogsHandler)
	s.mux.HandleFunc("POST /api/patients/{id}/logs/activity", s.logActivityHandler)
	s.mux.HandleFunc("GET /api/patients/{id}/logs/activity", s.getActivityLogsHandler)

	s.mux.HandleFunc("GET /api/patients/{id}/summary", s.summaryHandler)
	s.mux.HandleFunc("GET /api/patients/{id}/alerts", s.listAlertsHandler)
	s.mux.HandleFunc("POST /api/patients/{id}/alerts/check", s.checkAlertsHandler)
	s.mux.HandleFunc("POST /api/patients/{id}/alerts/{alertID}/acknowledge", s.acknowledgeAlertHandler)
	s.mux.HandleFunc("GET /api/patients/{id}/reminders", s.listRemindersHandler)
	s.mux.HandleFunc("POST /api/patients/{id}/reminders/generate", s.generateRemindersHandler)
	s.mux.HandleFunc("GET /api/patients/{id}/reports/weekly", s.weeklyReportHandler)
	s.mux.HandleFunc("GET /api/patients/{id}/reports/monthly", s.monthlyReportHandler)

	s.mux.HandleFunc("POST /api/patients/{id}/emergency", s.emergencyContactHandler)
	s.mux.HandleFunc("POST /api/patients/{id}/appointments", s.requestAppointmentHandler)
	s.mux.HandleFunc("POST /api/patients/{id}/sms/reminder", s.sendSMSReminderHandler)
}

// Handle registers an extra handler (Twilio webhooks) on the server mux.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// HandleFunc registers an extra handler function on the server mux.
func (s *Server) HandleFunc(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, h)
}

// Handler returns the root handler, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves HTTP until the context is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.mux}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
