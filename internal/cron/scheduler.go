package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

// scheduleParser accepts the standard 5-field cron syntax.
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// JobStats counts what happened to one registered job.
type JobStats struct {
	Runs     int64 `json:"runs"`
	Failures int64 `json:"failures"`
	Skips    int64 `json:"skips"`
}

// entry pairs a job with its execution guard and counters. The mutex keeps
// a slow tick from overlapping the next one; TryLock turns the overlap into
// a counted skip instead of a queue.
type entry struct {
	job     Job
	running sync.Mutex

	runs     atomic.Int64
	failures atomic.Int64
	skips    atomic.Int64
}

// Scheduler drives the engine's periodic maintenance jobs. At most one tick
// of a given job runs at a time; a tick arriving while the previous one is
// still working is skipped.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	order   []string
	entries map[string]*entry
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs must be registered before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// RegisterJob adds a job. Duplicate names and malformed schedule
// expressions are rejected here, before Start.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, dup := s.entries[name]; dup {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	if _, err := scheduleParser.Parse(j.Schedule()); err != nil {
		return fmt.Errorf("cron: job %q schedule %q: %w", name, j.Schedule(), err)
	}

	s.entries[name] = &entry{job: j}
	s.order = append(s.order, name)
	return nil
}

// Start schedules the registered jobs and begins ticking.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.cron = cron.New(cron.WithParser(scheduleParser))
	for _, name := range s.order {
		e := s.entries[name]
		if _, err := s.cron.AddJob(e.job.Schedule(), s.tick(ctx, e)); err != nil {
			cancel()
			return fmt.Errorf("cron: scheduling job %q: %w", name, err)
		}
	}

	s.cron.Start()
	s.logger.Info("cron: maintenance scheduler started", "jobs", len(s.order))
	return nil
}

// tick wraps one job for the cron runner, guarding against overlap.
func (s *Scheduler) tick(ctx context.Context, e *entry) cron.Job {
	return cron.FuncJob(func() {
		if !e.running.TryLock() {
			e.skips.Add(1)
			s.logger.Warn("cron: previous tick still running, skipping",
				"job", e.job.Name(),
			)
			return
		}
		defer e.running.Unlock()

		e.runs.Add(1)
		if err := e.job.Run(ctx); err != nil {
			e.failures.Add(1)
			s.logger.Error("cron: job failed",
				"job", e.job.Name(),
				"error", err,
			)
		}
	})
}

// Stats reports per-job counters, keyed by job name.
func (s *Scheduler) Stats() map[string]JobStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[string]JobStats, len(s.entries))
	for name, e := range s.entries {
		stats[name] = JobStats{
			Runs:     e.runs.Load(),
			Failures: e.failures.Load(),
			Skips:    e.skips.Load(),
		}
	}
	return stats
}

// Stop shuts the scheduler down, waiting for in-flight ticks to finish.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("cron: maintenance scheduler stopped")
	}
	return nil
}
