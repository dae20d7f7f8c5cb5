// Package scheduler runs Sally's background housekeeping on cron schedules,
// such as sweeping abandoned voice sessions.
package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a running cron instance configured for standard 5-field
// expressions (minute, hour, day-of-month, month, day-of-week).
type Scheduler struct {
	cron *cron.Cron
}

// cronLogger routes cron's panic-recovery output through slog so a crashing
// job lands in the same log stream as the rest of the service.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("Scheduler: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("Scheduler: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

// NewScheduler creates and starts the scheduler. A panicking job is recovered
// and logged rather than taking the scheduler down.
func NewScheduler() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cronLogger{})))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a named task on the given cron expression. The name only
// appears in logs. It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(name, expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, func() {
		slog.Debug("Scheduler: running job", "job", name)
		task()
	})
	if err != nil {
		return err
	}
	slog.Debug("Scheduler.AddJob: job scheduled", "job", name, "cron", expr)
	return nil
}

// Stop halts scheduling and blocks until any in-flight job returns.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
