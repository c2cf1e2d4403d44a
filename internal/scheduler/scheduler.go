package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"TrendAllocator/internal/advisor"
)

// Runner performs one independent run.
type Runner interface {
	Run(ctx context.Context) *advisor.Outcome
}

// Scheduler triggers runs from a cron expression (with seconds field).
// Overlapping triggers are skipped.
type Scheduler struct {
	Cron   *cron.Cron
	Runner Runner
	Ctx    context.Context
	Log    zerolog.Logger

	entry cron.EntryID
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log: log}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Runner: runner,
		Ctx:    ctx,
		Log:    log,
	}
}

// Register schedules the run task.
func (s *Scheduler) Register(spec string) error {
	id, err := s.Cron.AddFunc(spec, s.runTask)
	if err != nil {
		return fmt.Errorf("register run task %q: %w", spec, err)
	}
	s.entry = id
	return nil
}

// Next returns the next trigger time, or the zero time if nothing is registered.
func (s *Scheduler) Next() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.Cron.Entry(s.entry).Next
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info().Time("next_run", s.Next()).Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info().Msg("scheduler stopped")
}

// RunNow executes the run task immediately (for RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.runTask()
}

func (s *Scheduler) runTask() {
	if err := s.Ctx.Err(); err != nil {
		s.Log.Info().Msg("context cancelled, skipping run")
		return
	}
	outcome := s.Runner.Run(s.Ctx)
	s.Log.Info().
		Str("run_id", outcome.RunID).
		Time("next_run", s.Next()).
		Msg("scheduled run complete")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
