package cron

import (
	"context"
	"fmt"
	"log/slog"
)

// PromptCache is the subset of the engine cache needed by cron jobs.
// Defined here to avoid a dependency on the context package.
type PromptCache interface {
	SweepExpired() int
}

// LayerResolver is the subset of the layer store needed by cron jobs.
type LayerResolver interface {
	ResolveOverrides(workspacePath string) error
}

// CacheSweepJob evicts expired entries from the static prompt cache so
// long-idle processes do not pin stale prompt material.
type CacheSweepJob struct {
	Cache        PromptCache
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/5 * * * *"
}

// Compile-time interface check.
var _ Job = (*CacheSweepJob)(nil)

// Name implements Job.
func (j *CacheSweepJob) Name() string { return "cache_sweep" }

// Schedule implements Job.
func (j *CacheSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run sweeps expired cache entries.
func (j *CacheSweepJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: cache sweep cancelled: %w", ctx.Err())
	}
	swept := j.Cache.SweepExpired()
	if swept > 0 {
		j.Logger.Info("cron: swept expired cache entries", "count", swept)
	}
	return nil
}

// OverrideRescanJob re-resolves workspace layer overrides, picking up
// files added or removed while the process runs.
type OverrideRescanJob struct {
	Layers       LayerResolver
	Workspace    string
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/2 * * * *"
}

// Compile-time interface check.
var _ Job = (*OverrideRescanJob)(nil)

// Name implements Job.
func (j *OverrideRescanJob) Name() string { return "override_rescan" }

// Schedule implements Job.
func (j *OverrideRescanJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/2 * * * *"
}

// Run rescans the workspace override directory.
func (j *OverrideRescanJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: override rescan cancelled: %w", ctx.Err())
	}
	if err := j.Layers.ResolveOverrides(j.Workspace); err != nil {
		return fmt.Errorf("cron: override rescan: %w", err)
	}
	return nil
}
