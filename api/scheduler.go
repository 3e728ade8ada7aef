/*
scheduler.go - Expiry reminder scheduler

PURPOSE:
  Periodically sweeps the ledger for points that are about to expire and
  notifies the affected users. Expiry itself needs no job: balances are
  derived, so expired points simply stop counting. The sweep only sends
  reminders.

DESIGN:
  - robfig/cron drives the schedule (default: daily at 09:00 UTC)
  - Each run calls Engine.SendExpiryReminders with the configured window
  - Per-user notification failures are logged and skipped, never fatal

USAGE:
  sched := NewReminderScheduler(eng, "0 9 * * *", 7*24*time.Hour)
  sched.Start()
  // ... later
  sched.Stop()

SEE ALSO:
  - engine/reads.go: SendExpiryReminders
*/
package api

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/points-engine/engine"
)

// ReminderScheduler runs the expiry reminder sweep on a cron schedule.
type ReminderScheduler struct {
	engine *engine.Engine
	cron   *cron.Cron
	spec   string
	window time.Duration
}

// NewReminderScheduler creates a scheduler. spec is a standard 5-field
// cron expression; window is how far ahead to look for expiring points.
func NewReminderScheduler(eng *engine.Engine, spec string, window time.Duration) *ReminderScheduler {
	return &ReminderScheduler{
		engine: eng,
		cron:   cron.New(),
		spec:   spec,
		window: window,
	}
}

// Start registers the sweep and begins the cron loop.
func (s *ReminderScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.runOnce)
	if err != nil {
		return err
	}
	s.cron.Start()

	logrus.WithFields(logrus.Fields{
		"schedule": s.spec,
		"window":   s.window.String(),
	}).Info("expiry reminder scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *ReminderScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logrus.Info("expiry reminder scheduler stopped")
}

func (s *ReminderScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sent, err := s.engine.SendExpiryReminders(ctx, s.window)
	if err != nil {
		logrus.WithError(err).Error("expiry reminder sweep failed")
		return
	}
	logrus.WithField("reminders_sent", sent).Info("expiry reminder sweep complete")
}
