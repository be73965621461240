// Package scheduler runs periodic jobs on a cron schedule.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"teamfinance/internal/log"
)

const shutdownTimeout = 30 * time.Second

// Scheduler is a cron-like job scheduler.
type Scheduler struct {
	*cron.Cron
}

// cronLogger adapts our logger to the cron.Logger interface.
type cronLogger struct {
	logger *log.Logger
}

// Info logs routine messages about cron's operation.
func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

// Error logs an error condition.
func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, log.FieldError, err)...)
}

// New returns a scheduler that skips a run while the previous one of the
// same job is still going and recovers job panics.
func New(logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Discard()
	}
	l := cronLogger{logger.WithComponent(log.ComponentScheduler)}
	return &Scheduler{
		Cron: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
	}
}

// Validate reports whether spec is a valid standard cron spec or descriptor.
func Validate(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}

// Shutdown stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Shutdown() {
	ctx, cancel := context.WithTimeout(s.Cron.Stop(), shutdownTimeout)
	defer cancel()
	<-ctx.Done()
}

// AddJob schedules fn with a context that is cancelled on Shutdown.
func (s *Scheduler) AddJob(ctx context.Context, spec string, fn func(context.Context)) (int, error) {
	id, err := s.Cron.AddFunc(spec, func() { fn(ctx) })
	return int(id), err
}

// Remove removes a job from the Scheduler.
func (s *Scheduler) Remove(id int) {
	s.Cron.Remove(cron.EntryID(id))
}
