// Package cron schedules the engine's periodic maintenance: sweeping
// expired prompt cache entries and rescanning workspace layer overrides.
package cron

import "context"

// Job is one periodic maintenance task.
type Job interface {
	// Name identifies the job in logs and stats. Unique per scheduler.
	Name() string

	// Schedule is a standard 5-field cron expression.
	Schedule() string

	// Run does one tick of work. Long-running jobs should honor ctx.
	Run(ctx context.Context) error
}
