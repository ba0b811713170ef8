// Package scheduler runs per-league refreshes on cron schedules.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// API is the interface components depending on cron scheduling should use.
type API interface {
	Cron(spec string, callback func()) error
}

// Scheduler is the standard implementation of API using robfig/cron.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New builds a stopped scheduler; call Start to begin firing.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{logger: logger.Named("cron")}),
			cron.WithChain(cron.Recover(cronLogger{logger: logger.Named("cron")})),
		),
		logger: logger,
	}
}

// Cron registers a callback on a cron spec.
func (s *Scheduler) Cron(spec string, callback func()) error {
	if _, err := s.cron.AddFunc(spec, callback); err != nil {
		return fmt.Errorf("register cron %q: %w", spec, err)
	}
	return nil
}

// Start begins firing registered schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and returns once running callbacks finish or the
// context expires.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("cron stop timed out with callbacks still running")
	}
}

// cronLogger adapts zap to robfig/cron's logger interface.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(fields(keysAndValues), zap.Error(err))...)
}

func fields(keysAndValues []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		out = append(out, zap.Any(key, keysAndValues[i+1]))
	}
	return out
}
