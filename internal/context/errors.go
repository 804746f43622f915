package ctxengine

import "errors"

// Sentinel errors surfaced by the context engine.
var (
	// ErrBudgetInfeasible indicates the token budget cannot cover the
	// mandatory floor sections. Always fatal to the call; there is no
	// silent floor violation.
	ErrBudgetInfeasible = errors.New("ctxengine: budget infeasible")

	// ErrSummarizerUnavailable indicates a summary was needed but no
	// summarizer is configured or it failed. The compressor degrades to
	// hard truncation; the degraded path is counted and reportable.
	ErrSummarizerUnavailable = errors.New("ctxengine: summarizer unavailable")

	// ErrCacheCorrupted indicates a cache entry failed its integrity
	// check. The entry is discarded and recomputed; the event is reported
	// for observability but is not fatal.
	ErrCacheCorrupted = errors.New("ctxengine: cache entry corrupted")
)
