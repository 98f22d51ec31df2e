package scheduler

import (
	"context"
	"fmt"
	"time"

	"guardian_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const reminderJobTimeout = 5 * time.Minute

// DailyReminder is the job the scheduler drives.
type DailyReminder interface {
	RunDaily(ctx context.Context, now time.Time) (*app.ReminderResult, error)
}

type ReminderScheduler struct {
	cronEngine       *cron.Cron
	reminder         DailyReminder
	logger           *logrus.Entry
	cronSpecReminder string
	location         *time.Location
}

func NewReminderScheduler(
	reminder DailyReminder,
	logger *logrus.Entry,
	cronSpecReminder string, // e.g., "0 10 * * *" (10:00 AM daily)
	location *time.Location,
) *ReminderScheduler {
	return &ReminderScheduler{
		cronEngine:       cron.New(cron.WithLocation(location)),
		reminder:         reminder,
		logger:           logger,
		cronSpecReminder: cronSpecReminder,
		location:         location,
	}
}

// Start registers the jobs and starts the cron engine. A bad cron expression is returned
// instead of starting with a partial schedule.
func (s *ReminderScheduler) Start() error {
	s.logger.Info("Starting reminder scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecReminder, func() {
		s.logger.Info("Cron job triggered for daily introduction reminder.")
		s.runReminder(time.Now())
	})
	if err != nil {
		return fmt.Errorf("could not add daily reminder cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{"cron": s.cronSpecReminder, "location": s.location.String()}).Info("Reminder scheduler started with jobs.")
	return nil
}

func (s *ReminderScheduler) runReminder(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), reminderJobTimeout)
	defer cancel()

	res, err := s.reminder.RunDaily(ctx, now)
	if err != nil {
		s.logger.WithError(err).Error("Error during daily reminder")
		return
	}
	if res.Skipped {
		s.logger.WithField("reason", res.Reason).Info("Daily reminder skipped")
		return
	}
	s.logger.WithField("notified", len(res.Notified)).Info("Daily reminder finished")
}

func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Reminder scheduler gracefully stopped.")
}
