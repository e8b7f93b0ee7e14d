package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alrena-group/amqms-portal/internal/services"
)

const (
	// DeactivateSpec runs at 00:15 local time, after the date has rolled over
	DeactivateSpec = "15 0 * * *"
	// DigestSpec runs at 08:00 local time, at the start of the business day
	DigestSpec = "0 8 * * *"

	jobTimeout = 2 * time.Minute
)

// Scheduler runs the daily housekeeping jobs in the business timezone.
type Scheduler struct {
	cron     *cron.Cron
	jobs     services.HousekeepingService
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

func New(jobs services.HousekeepingService, location *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if location == nil {
		location = time.UTC
	}

	cronLogger := &slogCronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		jobs:     jobs,
		location: location,
		logger:   logger,
		now:      time.Now,
	}

	if _, err := s.cron.AddFunc(DeactivateSpec, func() { s.RunDeactivation(context.Background()) }); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(DigestSpec, func() { s.RunPendingDigest(context.Background()) }); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started",
		"timezone", s.location.String(),
		"deactivate", DeactivateSpec,
		"digest", DigestSpec)
}

// Stop prevents new runs and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// NextRuns lists the next activation of every registered job.
func (s *Scheduler) NextRuns() []time.Time {
	var next []time.Time
	for _, entry := range s.cron.Entries() {
		next = append(next, entry.Next)
	}
	return next
}

// RunDeactivation closes courses whose start date has passed.
func (s *Scheduler) RunDeactivation(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	count, err := s.jobs.DeactivateStartedCourses(ctx, s.now())
	if err != nil {
		s.logger.Error("Course deactivation job failed", "error", err)
		return
	}
	s.logger.Info("Course deactivation job finished", "deactivated", count)
}

// RunPendingDigest sends the admin the list of enrollments awaiting confirmation.
func (s *Scheduler) RunPendingDigest(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	count, err := s.jobs.PublishPendingDigest(ctx, s.now())
	if err != nil {
		s.logger.Error("Pending digest job failed", "error", err)
		return
	}
	s.logger.Info("Pending digest job finished", "pending", count)
}

// slogCronLogger adapts slog to cron.Logger.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l *slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
