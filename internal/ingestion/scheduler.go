package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner is one ingestion pass.
type Runner interface {
	Run(ctx context.Context) (*Report, error)
}

// Scheduler runs ingestion on a cron schedule and on demand.
// All runs happen on the Start goroutine, so they never overlap.
type Scheduler struct {
	runner   Runner
	schedule cron.Schedule
	spec     string
	trigger  chan struct{}
	nowFn    func() time.Time
}

// NewScheduler parses a standard five-field cron expression.
func NewScheduler(runner Runner, spec string) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse ingest schedule %q: %w", spec, err)
	}
	return &Scheduler{
		runner:   runner,
		schedule: sched,
		spec:     spec,
		trigger:  make(chan struct{}, 1),
		nowFn:    time.Now,
	}, nil
}

// Trigger queues a run. It returns false when one is already queued.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Next is the next scheduled run time after now.
func (s *Scheduler) Next() time.Time {
	return s.schedule.Next(s.nowFn().UTC())
}

// Start runs once immediately to catch up with any backlog, then on every
// schedule tick or trigger until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	slog.Info("[Scheduler] Starting ingestion scheduler", "schedule", s.spec)

	s.runOnce(ctx, "startup")

	for {
		next := s.Next()
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			s.runOnce(ctx, "schedule")
		case <-s.trigger:
			timer.Stop()
			s.runOnce(ctx, "trigger")
		case <-ctx.Done():
			timer.Stop()
			slog.Info("[Scheduler] Stopping (context cancelled)")
			return nil
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, cause string) {
	if ctx.Err() != nil {
		return
	}
	report, err := s.runner.Run(ctx)
	if err != nil {
		slog.Error("[Scheduler] Ingestion run failed", "cause", cause, "error", err)
		return
	}
	slog.Info("[Scheduler] Ingestion run finished",
		"cause", cause,
		"run_id", report.RunID,
		"processed", report.Processed,
		"elapsed", report.Elapsed)
}
