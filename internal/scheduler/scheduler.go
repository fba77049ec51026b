// Package scheduler provides cron-driven periodic rule runs for CareBuddy:
// hourly reminder generation, reminder delivery, and missed-dose checks
// across all enrolled patients.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/carebuddy/carebuddy/internal/messaging"
	"github.com/carebuddy/carebuddy/internal/models"
	"github.com/carebuddy/carebuddy/internal/rules"
	"github.com/carebuddy/carebuddy/internal/store"
)

// hourlyExpr fires at the top of every hour, matching the one-hour
// reminder look-ahead window.
const hourlyExpr = "0 * * * *"

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RulesJob runs the periodic rules-engine sweep over every patient.
type RulesJob struct {
	store     store.Store
	alerts    *rules.AlertEngine
	reminders *rules.ReminderScheduler
	notifier  messaging.Notifier
}

// NewRulesJob creates the periodic sweep. The notifier may be nil, in
// which case reminders persist without delivery attempts.
func NewRulesJob(st store.Store, alerts *rules.AlertEngine, reminders *rules.ReminderScheduler, notifier messaging.Notifier) *RulesJob {
	return &RulesJob{store: st, alerts: alerts, reminders: reminders, notifier: notifier}
}

// Schedule registers the sweep to run hourly.
func (j *RulesJob) Schedule(s *Scheduler) error {
	return s.AddJob(hourlyExpr, j.Run)
}

// Run sweeps all patients once: generate and deliver upcoming medication
// reminders, then raise missed-dose alerts. Per-patient failures are
// logged and do not stop the sweep.
func (j *RulesJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	patients, err := j.store.ListPatients()
	if err != nil {
		slog.Error("RulesJob.Run: failed to list patients", "error", err)
		return
	}
	slog.Debug("RulesJob.Run: sweep started", "patients", len(patients))

	for _, p := range patients {
		created, err := j.reminders.Generate(ctx, p.PatientID)
		if err != nil {
			slog.Error("RulesJob.Run: reminder generation failed", "patientID", p.PatientID, "error", err)
		}
		j.deliver(ctx, p, created)

		if _, err := j.alerts.CheckMissedDoses(ctx, p.PatientID); err != nil {
			slog.Error("RulesJob.Run: missed-dose check failed", "patientID", p.PatientID, "error", err)
		}
	}
}

func (j *RulesJob) deliver(ctx context.Context, p models.Patient, reminders []models.Reminder) {
	if j.notifier == nil || p.Phone == "" {
		return
	}
	for _, r := range reminders {
		if err := j.notifier.Notify(ctx, messaging.ChannelSMS, p.Phone, r.Message); err != nil {
			slog.Error("RulesJob.deliver: reminder delivery failed", "patientID", p.PatientID, "error", err)
		}
	}
}
